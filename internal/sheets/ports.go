// Package sheets holds the ports implemented by spreadsheet adapters.
package sheets

import (
	"context"

	"carteira/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps one spreadsheet row per transaction.
	TransactionMirror interface {
		// UpsertTransaction writes the row of tx, replacing an existing one with the same id.
		UpsertTransaction(ctx context.Context, tx core.Transaction) error
		// DeleteTransaction removes the row of id. A missing row is not an error.
		DeleteTransaction(ctx context.Context, id string) error
	}
)
