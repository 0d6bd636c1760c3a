// Package services orchestrates stores, the aggregation engine, the export
// formatter and the event stream.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/store"
)

// ErrUnknownCategory is returned when a transaction references a category that
// does not exist or is not visible to the caller.
var ErrUnknownCategory = errors.New("unknown category")

// EventPublisher publishes transaction change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService validates transaction writes and announces committed
// changes on the event stream.
type TransactionService struct {
	txs    store.TransactionStore
	cats   store.CategoryCatalog
	events EventPublisher
	logger *log.Logger
}

// NewTransactionService builds the service. events may be nil, in which case no
// events are published.
func NewTransactionService(txs store.TransactionStore, cats store.CategoryCatalog, events EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		txs:    txs,
		cats:   cats,
		events: events,
		logger: logger.WithComponent(log.ComponentTransaction),
	}
}

// List returns the transactions matching f.
func (s *TransactionService) List(ctx context.Context, f store.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.txs.QueryTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.txs.GetTransaction(ctx, userID, id)
}

// Create validates tx, checks its category and stores it under userID.
func (s *TransactionService) Create(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = ""
	tx.UserID = userID
	tx.Description = cleanDescription(tx.Description)
	tx.Category = nil
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, userID, tx.CategoryID, tx.Type); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.txs.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTransactionID, created.ID,
		log.FieldType, created.Type)

	s.publish(ctx, amqp.EventCreated, created.ID, userID)
	return created, nil
}

// Update applies patch to the transaction and validates the result before
// writing it.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	current, err := s.txs.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if patch.Description != nil {
		d := cleanDescription(*patch.Description)
		patch.Description = &d
	}
	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.CategoryID != nil || patch.Type != nil {
		if err := s.checkCategory(ctx, userID, next.CategoryID, next.Type); err != nil {
			return core.Transaction{}, err
		}
	}

	updated, err := s.txs.UpdateTransaction(ctx, userID, id, patch)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldTransactionID, id)

	s.publish(ctx, amqp.EventUpdated, id, userID)
	return updated, nil
}

// cleanDescription trims d and stores line breaks as LF, the form a CSV
// reader gives back.
func cleanDescription(d string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(d))
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.txs.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)

	s.publish(ctx, amqp.EventDeleted, id, userID)
	return nil
}

func (s *TransactionService) checkCategory(ctx context.Context, userID, categoryID string, typ core.TransactionType) error {
	if categoryID == "" {
		return nil
	}
	cat, err := s.cats.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !store.Visible(cat, userID)) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, categoryID)
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if cat.Type != typ {
		return fmt.Errorf("%w: category %q is %s", core.ErrCategoryTypeMismatch, cat.Name, cat.Type)
	}
	return nil
}

// publish sends a change event. The write is already committed, so failures
// are logged and swallowed.
func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, transactionID, userID string) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping event", log.FieldEventKind, kind)
		return
	}
	ev := amqp.NewTransactionEvent(kind, transactionID, userID)
	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventKind, kind,
			log.FieldTransactionID, transactionID,
			log.FieldError, err)
	}
}
