package database

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/gallery/internal/entities"
)

// Models lists every table owned by the persistence core, in migration order.
var Models = []any{
	&entities.Gallery{},
	&entities.Album{},
	&entities.MediaObject{},
	&entities.MetadataItem{},
	&entities.Tag{},
	&entities.MetadataTag{},
	&entities.AuditEvent{},
}

type Database struct {
	DB *gorm.DB
}

type Option func(*options)

type options struct {
	logLevel logger.LogLevel
}

// WithLogLevel sets the gorm statement log level ("silent", "error", "warn", "info").
func WithLogLevel(level string) Option {
	return func(o *options) {
		o.logLevel = parseLogLevel(level)
	}
}

// NewDatabase opens the SQLite file at dbPath with foreign keys enforced,
// runs the migrations and returns the handle.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	o := options{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         newGormLogger(o.logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writers queued in
	// process instead of failing with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateGallery inserts an empty gallery and returns it.
func (d *Database) CreateGallery(description string) (*entities.Gallery, error) {
	gallery := &entities.Gallery{Description: description}
	if err := d.DB.Create(gallery).Error; err != nil {
		return nil, TranslateError(err)
	}
	return gallery, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_journal=WAL&_busy_timeout=5000"
}
