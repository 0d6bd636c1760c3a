package ofx

import (
	"context"
	"fmt"

	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/store"
)

// TransactionWriter is the part of the transaction service the importer needs.
type TransactionWriter interface {
	List(ctx context.Context, f store.Filter) ([]core.Transaction, error)
	Create(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
}

// Result counts what an import did.
type Result struct {
	Imported   int
	Duplicates int
}

// Importer writes parsed statement records through the transaction service.
type Importer struct {
	txs    TransactionWriter
	logger *log.Logger

	// CategoryFor picks a category id for a record. Nil leaves records uncategorized.
	CategoryFor func(Record) string
}

func NewImporter(txs TransactionWriter, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Importer{txs: txs, logger: logger.WithComponent(log.ComponentImport)}
}

// Import stores records for userID, skipping lines that repeat within the batch
// (same FITID and account) or already exist in the store (same date, type,
// amount and description). progress, when set, is called once per record.
func (im *Importer) Import(ctx context.Context, userID string, records []Record, progress func()) (Result, error) {
	var res Result
	if len(records) == 0 {
		return res, nil
	}

	existing, err := im.existingKeys(ctx, userID, records)
	if err != nil {
		return res, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if progress != nil {
			progress()
		}
		if rec.FITID != "" {
			id := rec.Account + "/" + rec.FITID
			if _, dup := seen[id]; dup {
				res.Duplicates++
				continue
			}
			seen[id] = struct{}{}
		}
		key := dedupKey(rec.Transaction)
		if _, dup := existing[key]; dup {
			res.Duplicates++
			continue
		}

		tx := rec.Transaction
		if im.CategoryFor != nil {
			tx.CategoryID = im.CategoryFor(rec)
		}
		if _, err := im.txs.Create(ctx, userID, tx); err != nil {
			return res, fmt.Errorf("import %s: %w", rec.FITID, err)
		}
		existing[key] = struct{}{}
		res.Imported++
	}

	im.logger.InfoContext(ctx, "Statement imported",
		log.FieldOperation, log.OpImport,
		log.FieldUserID, userID,
		log.FieldCount, res.Imported,
		"duplicates", res.Duplicates)
	return res, nil
}

func (im *Importer) existingKeys(ctx context.Context, userID string, records []Record) (map[string]struct{}, error) {
	start, end := records[0].Transaction.Date, records[0].Transaction.Date
	for _, r := range records[1:] {
		if r.Transaction.Date.Before(start) {
			start = r.Transaction.Date
		}
		if r.Transaction.Date.After(end) {
			end = r.Transaction.Date
		}
	}
	txs, err := im.txs.List(ctx, store.Filter{UserID: userID, StartDate: start, EndDate: end})
	if err != nil {
		return nil, fmt.Errorf("load existing transactions: %w", err)
	}
	keys := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		keys[dedupKey(tx)] = struct{}{}
	}
	return keys, nil
}

func dedupKey(tx core.Transaction) string {
	amount := string(tx.Amount)
	if m, err := tx.Amount.Money(); err == nil {
		amount = m.String()
	}
	return tx.Date.String() + "|" + string(tx.Type) + "|" + amount + "|" + tx.Description
}
