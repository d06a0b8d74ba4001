// Package uow implements the unit-of-work every persistence operation flushes
// through.
//
// A Store collects inserts, updates and deletes and applies them in enqueue
// order inside one transaction when Save is called. Updates are guarded by the
// row version token embedded in every entity (entities.RowVersion):
//
//	UPDATE albums SET ..., version = <baseline+1> WHERE id = ? AND version = <baseline>
//
// An update that matches no row is a concurrency conflict. Save then reloads
// the stored version of that row as the new baseline, keeps the local field
// values and tries again ("client wins"), up to RetryPolicy.MaxRetries times.
// Any other error is returned immediately.
//
// A Store belongs to one logical operation and must not be shared between
// goroutines.
package uow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/metrics"
)

// Versioned is implemented by every entity embedding entities.RowVersion.
type Versioned interface {
	GetVersion() int
	SetVersion(version int)
}

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type change struct {
	kind     changeKind
	entity   any
	baseline int // update: version the stored row is expected to carry
	previous int // insert: version the entity carried when it was queued

	// insert: the primary key is generated by the database and must be
	// cleared before a retry or after a failed save
	generatedKey bool
}

// ConflictError reports an update whose baseline version no longer matches
// the stored row.
type ConflictError struct {
	Table string
	Key   map[string]any

	index int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v: stored row version changed", e.Table, e.Key)
}

func (e *ConflictError) Unwrap() error {
	return database.ErrConcurrencyConflict
}

type Store struct {
	db      *gorm.DB
	id      string
	policy  RetryPolicy
	pending []*change
	logger  zerolog.Logger
}

type Option func(*Store)

// WithMaxRetries overrides DefaultMaxRetries. Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n < 0 {
			n = 0
		}
		s.policy.MaxRetries = n
	}
}

// NewStore opens a unit of work on db.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		id:     uuid.NewString(),
		policy: RetryPolicy{MaxRetries: DefaultMaxRetries},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.With().Str("uow", s.id).Logger()
	return s
}

// ID identifies the unit of work in logs.
func (s *Store) ID() string {
	return s.id
}

// DB returns the session the store reads from.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Pending returns the number of queued changes.
func (s *Store) Pending() int {
	return len(s.pending)
}

// Add queues entity for insertion. Associations are never cascaded.
func (s *Store) Add(entity any) {
	c := &change{kind: changeInsert, entity: entity}
	if v, ok := entity.(Versioned); ok {
		c.previous = v.GetVersion()
	}
	s.pending = append(s.pending, c)
}

// MarkModified queues an update of every column of entity, guarded by the
// version entity carries now.
func (s *Store) MarkModified(entity Versioned) {
	for _, c := range s.pending {
		if c.entity == any(entity) && (c.kind == changeInsert || c.kind == changeUpdate) {
			return
		}
	}
	s.pending = append(s.pending, &change{kind: changeUpdate, entity: entity, baseline: entity.GetVersion()})
}

// Delete queues entity for removal. Deleting an entity that is only queued
// for insertion cancels the insert.
func (s *Store) Delete(entity any) {
	for i, c := range s.pending {
		if c.entity == entity && c.kind == changeInsert {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
	s.pending = append(s.pending, &change{kind: changeDelete, entity: entity})
}

// Find loads the first row matching conds into dest. A missing row is ErrNotFound.
func (s *Store) Find(dest any, conds ...any) error {
	return database.TranslateError(s.db.Take(dest, conds...).Error)
}

// Query loads every row matching query into dest.
func (s *Store) Query(dest any, query any, args ...any) error {
	return database.TranslateError(s.db.Where(query, args...).Find(dest).Error)
}

// Discard drops every queued change and puts versions and generated keys
// back to their values from before the changes were queued.
func (s *Store) Discard() {
	s.restore()
	s.pending = nil
}

// Save flushes the queued changes. On failure the queue is discarded, so a
// later Save never writes changes of an abandoned one. It returns nil without
// touching the database when nothing is queued.
func (s *Store) Save() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.prepare(); err != nil {
		s.Discard()
		return err
	}

	for attempt := 1; ; attempt++ {
		err := s.flush()

		switch s.policy.Next(attempt, err) {
		case DecisionDone:
			if attempt > 1 {
				s.logger.Info().Int("attempts", attempt).Msg("save succeeded after concurrency retries")
			}
			s.pending = nil
			return nil

		case DecisionRetry:
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				s.Discard()
				return err
			}
			s.logger.Warn().
				Str("table", conflict.Table).
				Interface("key", conflict.Key).
				Int("attempt", attempt).
				Msg("concurrency conflict, reloading baseline")
			if err := s.reload(conflict); err != nil {
				s.Discard()
				return err
			}

		default:
			s.Discard()
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				metrics.ConcurrencyRetriesExhaustedTotal.WithLabelValues(conflict.Table).Inc()
				s.logger.Error().
					Str("table", conflict.Table).
					Interface("key", conflict.Key).
					Int("attempts", attempt).
					Msg("concurrency retries exhausted")
				return fmt.Errorf("save abandoned after %d attempts: %w", attempt, err)
			}
			return err
		}
	}
}

func (s *Store) prepare() error {
	for _, c := range s.pending {
		if c.kind != changeInsert {
			continue
		}
		_, key, err := s.primaryKey(c.entity)
		if err != nil {
			return err
		}
		c.generatedKey = len(key) == 1 && isZeroKey(key)
	}
	return nil
}

func (s *Store) flush() error {
	start := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i, c := range s.pending {
			if err := s.apply(tx, i, c); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.FlushTotal.WithLabelValues("success").Inc()
	case errors.Is(err, database.ErrConcurrencyConflict):
		metrics.FlushTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.FlushTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (s *Store) apply(tx *gorm.DB, index int, c *change) error {
	switch c.kind {
	case changeInsert:
		if c.generatedKey {
			if err := s.resetKey(c.entity); err != nil {
				return err
			}
		}
		if v, ok := c.entity.(Versioned); ok {
			v.SetVersion(1)
		}
		return database.TranslateError(tx.Omit(clause.Associations).Create(c.entity).Error)

	case changeUpdate:
		v := c.entity.(Versioned)
		v.SetVersion(c.baseline + 1)
		result := tx.Model(c.entity).
			Select("*").
			Omit(clause.Associations, "CreatedAt").
			Where("version = ?", c.baseline).
			Updates(c.entity)
		if result.Error != nil {
			return database.TranslateError(result.Error)
		}
		if result.RowsAffected == 0 {
			table, key, err := s.primaryKey(c.entity)
			if err != nil {
				return err
			}
			metrics.ConcurrencyConflictsTotal.WithLabelValues(table).Inc()
			return &ConflictError{Table: table, Key: key, index: index}
		}
		return nil

	case changeDelete:
		_, key, err := s.primaryKey(c.entity)
		if err != nil {
			return err
		}
		if hasZeroKey(key) {
			return nil
		}
		// A row that is already gone is fine: nothing is left to delete.
		return database.TranslateError(tx.Omit(clause.Associations).Delete(c.entity).Error)
	}
	return fmt.Errorf("unknown change kind %d", c.kind)
}

// reload replaces the baseline of the conflicting update with the version
// currently stored. Local field values are left as they are.
func (s *Store) reload(conflict *ConflictError) error {
	c := s.pending[conflict.index]
	fresh := reflect.New(reflect.TypeOf(c.entity).Elem()).Interface()
	if err := s.db.Where(conflict.Key).Take(fresh).Error; err != nil {
		return fmt.Errorf("reload %s %v: %w", conflict.Table, conflict.Key, database.TranslateError(err))
	}
	c.baseline = fresh.(Versioned).GetVersion()
	return nil
}

// restore puts versions and generated keys back to their pre-save values so
// the in-memory entities do not claim state that was never committed.
func (s *Store) restore() {
	for _, c := range s.pending {
		switch c.kind {
		case changeUpdate:
			c.entity.(Versioned).SetVersion(c.baseline)
		case changeInsert:
			if c.generatedKey {
				_ = s.resetKey(c.entity)
			}
			if v, ok := c.entity.(Versioned); ok {
				v.SetVersion(c.previous)
			}
		}
	}
}

func (s *Store) primaryKey(entity any) (string, map[string]any, error) {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(entity); err != nil {
		return "", nil, fmt.Errorf("parse %T: %w", entity, err)
	}
	rv := reflect.Indirect(reflect.ValueOf(entity))
	key := make(map[string]any, len(stmt.Schema.PrimaryFields))
	for _, field := range stmt.Schema.PrimaryFields {
		value, _ := field.ValueOf(context.Background(), rv)
		key[field.DBName] = value
	}
	return stmt.Schema.Table, key, nil
}

func (s *Store) resetKey(entity any) error {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(entity); err != nil {
		return fmt.Errorf("parse %T: %w", entity, err)
	}
	rv := reflect.Indirect(reflect.ValueOf(entity))
	for _, field := range stmt.Schema.PrimaryFields {
		if err := field.Set(context.Background(), rv, reflect.Zero(field.FieldType).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func isZeroKey(key map[string]any) bool {
	for _, v := range key {
		if v != nil && !reflect.ValueOf(v).IsZero() {
			return false
		}
	}
	return true
}

func hasZeroKey(key map[string]any) bool {
	for _, v := range key {
		if v == nil || reflect.ValueOf(v).IsZero() {
			return true
		}
	}
	return false
}
