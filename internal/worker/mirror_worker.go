// Package worker hosts the background consumers: the spreadsheet mirror and
// the monthly report scheduler.
package worker

import (
	"context"
	"errors"
	"fmt"

	"carteira/internal/amqp"
	"carteira/internal/log"
	"carteira/internal/sheets"
	"carteira/internal/store"
)

// MirrorWorker applies transaction events to the spreadsheet mirror.
type MirrorWorker struct {
	txs    store.TransactionStore
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(txs store.TransactionStore, mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{txs: txs, mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent fetches the current state of the transaction and upserts or
// deletes its row. A created or updated event for a transaction that no longer
// exists removes the row, so late events cannot resurrect deleted records.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldEventKind, ev.Kind,
		log.FieldTransactionID, ev.TransactionID)

	switch ev.Kind {
	case amqp.EventCreated, amqp.EventUpdated:
		tx, err := w.txs.GetTransaction(ctx, ev.UserID, ev.TransactionID)
		if errors.Is(err, store.ErrNotFound) {
			return w.delete(ctx, ev.TransactionID)
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("mirror transaction: %w", err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored",
			log.FieldOperation, log.OpMirror,
			log.FieldTransactionID, tx.ID)
		return nil
	case amqp.EventDeleted:
		return w.delete(ctx, ev.TransactionID)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (w *MirrorWorker) delete(ctx context.Context, id string) error {
	if err := w.mirror.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete mirrored transaction: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirrored transaction removed",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	return nil
}
