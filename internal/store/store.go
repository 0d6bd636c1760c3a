// Package store defines the persistence contracts the rest of the system
// depends on. Implementations live in store/memory, storage and
// storage/postgres; backend picks one of them from configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"carteira/internal/core"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDefaultCategory = errors.New("default categories cannot be modified")
	ErrInvalidFilter   = errors.New("invalid filter")
)

type (
	// Filter selects transactions. Zero fields do not constrain the result.
	// The date range is inclusive on both ends.
	Filter struct {
		UserID     string
		StartDate  core.Date
		EndDate    core.Date
		Type       core.TransactionType
		CategoryID string
		MinAmount  *core.Money
		MaxAmount  *core.Money
		Limit      int
	}

	CategoryQuery struct {
		UserID string
		Type   core.TransactionType
	}

	// TransactionStore persists transactions. Query results carry the joined
	// category when one is set and are ordered by date, newest first; callers
	// must not rely on that order for correctness.
	TransactionStore interface {
		QueryTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// CategoryCatalog lists the default categories plus the ones owned by a user.
	CategoryCatalog interface {
		ListCategories(ctx context.Context, q CategoryQuery) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error)
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	// Store is implemented by every backend.
	Store interface {
		TransactionStore
		CategoryCatalog
	}
)

func (f Filter) Validate() error {
	if f.Type != "" && !f.Type.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, core.ErrInvalidType)
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidFilter, f.StartDate, f.EndDate)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.Cents < f.MinAmount.Cents {
		return fmt.Errorf("%w: min amount is greater than max amount", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

// Matches reports whether tx satisfies every condition of f except Limit.
// A transaction whose amount cannot be parsed only matches when no amount
// bound is set, so that it reaches the engine and fails there.
func (f Filter) Matches(tx core.Transaction) bool {
	if tx.UserID != f.UserID {
		return false
	}
	if !tx.Date.Within(f.StartDate, f.EndDate) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && tx.CategoryID != f.CategoryID {
		return false
	}
	if f.MinAmount == nil && f.MaxAmount == nil {
		return true
	}
	m, err := tx.Amount.Money()
	if err != nil {
		return false
	}
	if f.MinAmount != nil && m.Cents < f.MinAmount.Cents {
		return false
	}
	if f.MaxAmount != nil && m.Cents > f.MaxAmount.Cents {
		return false
	}
	return true
}

// Visible reports whether a category can be seen by userID.
func Visible(c core.Category, userID string) bool {
	return c.IsDefault || c.UserID == userID
}

// CheckMutable returns ErrDefaultCategory for default categories and
// ErrNotFound for categories owned by someone else.
func CheckMutable(c core.Category, userID string) error {
	if c.IsDefault {
		return ErrDefaultCategory
	}
	if c.UserID != userID {
		return ErrNotFound
	}
	return nil
}

// SortTransactions orders txs by date, then creation time, newest first.
func SortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// SortCategories orders categories by type, then name.
func SortCategories(cats []core.Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Type != cats[j].Type {
			return cats[i].Type < cats[j].Type
		}
		if cats[i].Name != cats[j].Name {
			return cats[i].Name < cats[j].Name
		}
		return cats[i].ID < cats[j].ID
	})
}
