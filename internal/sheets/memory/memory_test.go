package memory

import (
	"context"
	"testing"

	"carteira/internal/core"
	"carteira/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_UpsertKeepsOrder(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.UpsertTransaction(ctx, core.Transaction{ID: "a", Description: "first"}))
	require.NoError(t, m.UpsertTransaction(ctx, core.Transaction{ID: "b"}))
	require.NoError(t, m.UpsertTransaction(ctx, core.Transaction{ID: "a", Description: "edited"}))

	rows := m.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "edited", rows[0].Description)
	assert.Equal(t, "b", rows[1].ID)

	assert.Error(t, m.UpsertTransaction(ctx, core.Transaction{}))
}

func TestMirror_Delete(t *testing.T) {
	m := New()
	ctx := context.Background()
	require.NoError(t, m.UpsertTransaction(ctx, core.Transaction{ID: "a"}))

	require.NoError(t, m.DeleteTransaction(ctx, "a"))
	require.NoError(t, m.DeleteTransaction(ctx, "missing"))

	assert.Empty(t, m.Rows())
	assert.Equal(t, []string{"a", "missing"}, m.Deleted())
}

func TestMirror_Save(t *testing.T) {
	m := New()

	ref, err := m.Save(context.Background(), export.File{Name: "transacoes_2024-03-15.csv", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "mem:transacoes_2024-03-15", ref)

	f, ok := m.Tab("transacoes_2024-03-15")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), f.Content)
}
