package database

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"
)

// gormZerologWriter redirects gorm statement logging to zerolog.
type gormZerologWriter struct{}

func (gormZerologWriter) Printf(format string, v ...any) {
	log.Debug().Str("component", "gorm").Msgf(format, v...)
}

func newGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(gormZerologWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
