package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/notes-service/pkg/database"
	"github.com/suteetoe/notes-service/prometheus"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a tenant scoped lookup matches nothing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on unique constraint violations
	ErrDuplicate = errors.New("record already exists")
)

// Store is the persistence collaborator. Every note and user query takes
// the caller's tenant id and filters on it.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations and seeding
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func track(operation string) func() {
	start := time.Now()
	done := prometheus.TrackDBOperation(operation)
	return func() { done(start) }
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case database.IsDuplicateKeyErr(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Page bounds a listing
type Page struct {
	Offset int
	Limit  int
}

// Transaction runs fn against a Store bound to one database transaction
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
