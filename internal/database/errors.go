package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrConcurrencyConflict indicates a row changed underneath an update and
	// the bounded retry gave up.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrNotFound indicates a referenced row (album, media object, metadata item) is absent.
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation indicates a uniqueness or foreign key constraint rejected a write.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrValidation indicates a nil or invalid argument.
	ErrValidation = errors.New("validation failed")
)

// TranslateError maps gorm and sqlite errors onto the package sentinels. The
// original error stays in the chain.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraintViolation) ||
		errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrValidation) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}

	return err
}

// NotFoundf builds an ErrNotFound with a description of the missing row.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
