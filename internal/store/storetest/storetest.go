// Package storetest opens migrated in-memory databases for tests
package storetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/pkg/config"
	"github.com/suteetoe/notes-service/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var counter int64

// NewDB returns a migrated, private in-memory sqlite database closed with the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:notes_%d?mode=memory&cache=shared", atomic.AddInt64(&counter, 1))
	db, err := database.Open(&config.DBConfig{
		Driver:   "sqlite",
		DSN:      name,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateModels(db, model.Models()...))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// New returns a Store over NewDB
func New(t testing.TB) *store.Store {
	t.Helper()
	return store.New(NewDB(t))
}
