package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"carteira/internal/store"
	"carteira/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"postgresql://u:p@db:5432/carteira":                 "postgres://u:p@db:5432/carteira",
		"postgres://u:p@db/carteira?connect_timeout=5":      "postgres://u:p@db/carteira?connect_timeout=5",
		"postgres://u:p@db/carteira?sslmode=require":        "postgres://u:p@db/carteira?sslmode=require",
		"postgres://u:p@localhost/carteira?sslmode=disable": "postgres://u:p@localhost/carteira?sslmode=disable",
	}
	for in, want := range cases {
		got := NormalizeURL(in)
		assert.Equal(t, want, got, in)
		if !strings.Contains(in, "sslmode=disable") {
			assert.NotContains(t, got, "sslmode=disable", in)
		}
	}
}

// Set CARTEIRA_TEST_POSTGRES_URL to run the store contract against a real server.
func TestRepositoryContract(t *testing.T) {
	url := os.Getenv("CARTEIRA_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("CARTEIRA_TEST_POSTGRES_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, err := New(ctx, url, Options{ConnectRetries: 3, RetryDelay: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := repo.pool.Exec(ctx, `DELETE FROM transactions`)
		require.NoError(t, err)
		_, err = repo.pool.Exec(ctx, `DELETE FROM categories WHERE NOT is_default`)
		require.NoError(t, err)
		return repo
	})
}
