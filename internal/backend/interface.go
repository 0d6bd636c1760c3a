// Package backend builds the store selected by configuration. Exactly one
// implementation is created; a failure is returned to the caller, never
// papered over by switching to another backend.
package backend

import (
	"context"
	"errors"
	"time"

	"carteira/internal/cache"
	"carteira/internal/store"
)

// ErrInvalidBackend is returned for an unknown or misconfigured backend type.
var ErrInvalidBackend = errors.New("invalid backend")

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the selected stores and their cleanup function.
type BackendResult struct {
	Type         BackendType
	Transactions store.TransactionStore
	// Categories is the catalog wrapped in the category cache.
	Categories store.CategoryCatalog
	// Caches can be registered with a cache.Manager for periodic cleanup.
	Caches  []cache.Cleaner
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	PostgresURL            string
	PostgresConnectRetries int

	// Memory backend specific
	DataDirectory string

	// Category cache
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
