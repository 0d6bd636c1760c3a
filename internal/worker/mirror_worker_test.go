package worker

import (
	"context"
	"errors"
	"testing"

	"carteira/internal/amqp"
	"carteira/internal/core"
	sheetmem "carteira/internal/sheets/memory"
	"carteira/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMirror struct{ err error }

func (m failingMirror) UpsertTransaction(context.Context, core.Transaction) error { return m.err }

func (m failingMirror) DeleteTransaction(context.Context, string) error { return m.err }

func TestMirrorWorker_HandleEvent(t *testing.T) {
	mem := memory.New()
	mirror := sheetmem.New()
	w := NewMirrorWorker(mem, mirror, nil)
	ctx := context.Background()

	tx, err := mem.InsertTransaction(ctx, core.Transaction{
		UserID: "u", Type: core.Expense, Amount: "12.00", CategoryID: "expense-2", Date: core.NewDate(2024, 5, 2),
	})
	require.NoError(t, err)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, tx.ID, "u")))
	rows := mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, tx.ID, rows[0].ID)
	assert.Equal(t, "Transporte", rows[0].CategoryName())

	desc := "Uber"
	_, err = mem.UpdateTransaction(ctx, "u", tx.ID, core.TransactionPatch{Description: &desc})
	require.NoError(t, err)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, tx.ID, "u")))
	rows = mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Uber", rows[0].Description)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, tx.ID, "u")))
	assert.Empty(t, mirror.Rows())
}

func TestMirrorWorker_LateEventForDeletedTransaction(t *testing.T) {
	mirror := sheetmem.New()
	w := NewMirrorWorker(memory.New(), mirror, nil)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventUpdated, "gone", "")))
	assert.Equal(t, []string{"gone"}, mirror.Deleted())
}

func TestMirrorWorker_Errors(t *testing.T) {
	mem := memory.New()
	boom := errors.New("quota exceeded")
	w := NewMirrorWorker(mem, failingMirror{err: boom}, nil)
	ctx := context.Background()

	err := w.HandleEvent(ctx, &amqp.TransactionEvent{Kind: "archived", TransactionID: "x"})
	assert.Error(t, err)

	tx, err := mem.InsertTransaction(ctx, core.Transaction{Type: core.Income, Amount: "1", Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	assert.ErrorIs(t, w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, tx.ID, "")), boom)
}
