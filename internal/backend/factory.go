package backend

import (
	"context"
	"fmt"
	"time"

	"carteira/internal/cache"
	"carteira/internal/log"
	"carteira/internal/storage"
	"carteira/internal/storage/postgres"
	"carteira/internal/store"
	"carteira/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the configured store. It never falls back to another type.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		s       store.Store
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		s, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		var repo *storage.SQLiteRepository
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err == nil {
			s, cleanup = repo, repo.Close
			f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		}
	case PostgresBackend:
		var repo *postgres.Repository
		repo, err = postgres.New(ctx, config.PostgresURL, postgres.Options{ConnectRetries: config.PostgresConnectRetries})
		if err == nil {
			s, cleanup = repo, repo.Close
			f.logger.Info("Initialized PostgreSQL backend")
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidBackend, config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", config.Type, err)
	}

	size, ttl := config.CategoryCacheSize, config.CategoryCacheTTL
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	catalog := cache.NewCatalog(s, size, ttl)

	return &BackendResult{
		Type:         config.Type,
		Transactions: s,
		Categories:   catalog,
		Caches:       catalog.Caches(),
		Cleanup:      cleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (store.Store, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	s, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return s, nil
}
