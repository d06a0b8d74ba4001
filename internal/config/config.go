package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Log
		Audit
		Tasks
		TagSweep
		Metrics
		Global
	}

	Database struct {
		Path string
		// MaxConcurrencyRetries bounds the client-wins retries of one save.
		MaxConcurrencyRetries int
		LogLevel              string // gorm logger: silent, error, warn, info
	}
	Log struct {
		File       string // empty logs to the console only
		Level      string
		MaxSizeMB  int
		MaxBackups int
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format, empty disables
		SnapshotDir     string // JSON copies of deleted album graphs, empty disables
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	TagSweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Metrics struct {
		Addr string // e.g. ":9090", empty disables the listener
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("max_concurrency_retries", DefaultMaxConcurrencyRetries)
	v.SetDefault("database_log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("audit_retention_days", DefaultAuditRetentionDays)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")
	v.SetDefault("audit_snapshot_dir", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("metrics_addr", "")

	// Maintenance defaults
	v.SetDefault("tag_sweep_enabled", true)
	v.SetDefault("tag_sweep_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		Database: Database{
			Path:                  v.GetString("DATABASE_PATH"),
			MaxConcurrencyRetries: v.GetInt("MAX_CONCURRENCY_RETRIES"),
			LogLevel:              v.GetString("DATABASE_LOG_LEVEL"),
		},
		Log: Log{
			File:       v.GetString("LOG_FILE"),
			Level:      v.GetString("LOG_LEVEL"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
			SnapshotDir:     v.GetString("AUDIT_SNAPSHOT_DIR"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		TagSweep: TagSweep{
			Enabled:  v.GetBool("TAG_SWEEP_ENABLED"),
			Schedule: v.GetString("TAG_SWEEP_SCHEDULE"),
		},
		Metrics: Metrics{
			Addr: v.GetString("METRICS_ADDR"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
