package backend

import (
	"fmt"

	"carteira/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:                   BackendType(appConfig.DataBackend),
		SQLiteDBPath:           appConfig.SQLiteDBPath,
		PostgresURL:            appConfig.PostgresURL,
		PostgresConnectRetries: appConfig.PostgresConnectRetries,
		DataDirectory:          appConfig.DataDirectory,
		CategoryCacheSize:      appConfig.CategoryCacheSize,
		CategoryCacheTTL:       appConfig.CategoryCacheTTL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: type %q, must be one of %v", ErrInvalidBackend, c.Type, GetBackendTypeStrings())
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("%w: SQLite database path is required for sqlite backend", ErrInvalidBackend)
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: database URL is required for postgres backend", ErrInvalidBackend)
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
