// Package report computes summaries, category rollups and monthly series from
// transaction lists. Every function is pure: no I/O, no logging, and the result
// does not depend on the order of the input.
package report

import (
	"errors"
	"fmt"
	"sort"

	"carteira/internal/core"
)

// ErrInvalidRange is returned when a date range is missing a bound or is reversed.
var ErrInvalidRange = errors.New("invalid date range")

// ValidateRange checks that [start, end] is a closed, ordered range.
func ValidateRange(start, end core.Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidRange)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, start, end)
	}
	return nil
}

// amountOf parses the amount of tx and checks its type.
func amountOf(tx core.Transaction) (core.Money, error) {
	if !tx.Type.IsValid() {
		return core.Money{}, fmt.Errorf("transaction %q: %w: %q", tx.ID, core.ErrInvalidType, tx.Type)
	}
	m, err := tx.Amount.Money()
	if err != nil {
		return core.Money{}, &core.AmountError{TransactionID: tx.ID, Value: tx.Amount, Err: err}
	}
	return m, nil
}

// ComputeFinancialSummary totals income and expenses of the transactions dated
// within [start, end], both inclusive. Transactions outside the range are ignored.
func ComputeFinancialSummary(txs []core.Transaction, start, end core.Date) (core.FinancialSummary, error) {
	if err := ValidateRange(start, end); err != nil {
		return core.FinancialSummary{}, err
	}
	s := core.FinancialSummary{Start: start, End: end}
	for _, tx := range txs {
		if !tx.Date.Within(start, end) {
			continue
		}
		m, err := amountOf(tx)
		if err != nil {
			return core.FinancialSummary{}, err
		}
		if tx.Type == core.Income {
			s.TotalIncome, err = s.TotalIncome.SafeAdd(m)
		} else {
			s.TotalExpenses, err = s.TotalExpenses.SafeAdd(m)
		}
		if err != nil {
			return core.FinancialSummary{}, err
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s, nil
}

// ComputeCategoryRollup groups transactions by category id. Transactions with no
// category land in a single bucket with an empty id. The result is sorted by
// category id with that bucket last.
func ComputeCategoryRollup(txs []core.Transaction) ([]core.CategoryRollup, error) {
	byID := make(map[string]*core.CategoryRollup)
	for _, tx := range txs {
		m, err := amountOf(tx)
		if err != nil {
			return nil, err
		}
		r, ok := byID[tx.CategoryID]
		if !ok {
			r = &core.CategoryRollup{CategoryID: tx.CategoryID}
			if tx.CategoryID == "" {
				r.Name, r.Icon = core.UncategorizedName, core.UncategorizedIcon
			}
			byID[tx.CategoryID] = r
		}
		if tx.CategoryID != "" && tx.Category != nil {
			pickLabel(r, tx.Category.Name, tx.Category.Icon)
		}
		if tx.Type == core.Income {
			r.Income, err = r.Income.SafeAdd(m)
		} else {
			r.Expense, err = r.Expense.SafeAdd(m)
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]core.CategoryRollup, 0, len(byID))
	for _, r := range byID {
		if r.Name == "" {
			r.Name = r.CategoryID
		}
		if r.Icon == "" {
			r.Icon = core.UncategorizedIcon
		}
		r.Total = r.Income.Sub(r.Expense)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CategoryID, out[j].CategoryID
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		return a < b
	})
	return out, nil
}

// pickLabel keeps the smallest non-empty name seen for a category, and the
// smallest icon among rows carrying that name.
func pickLabel(r *core.CategoryRollup, name, icon string) {
	if name == "" {
		return
	}
	switch {
	case r.Name == "" || name < r.Name:
		r.Name, r.Icon = name, icon
	case name == r.Name && icon != "" && (r.Icon == "" || icon < r.Icon):
		r.Icon = icon
	}
}

// TopCategories returns at most n rollups with activity of the given type,
// largest first. Ties keep the input order. n <= 0 means no limit.
func TopCategories(rollups []core.CategoryRollup, typ core.TransactionType, n int) []core.CategoryRollup {
	value := func(r core.CategoryRollup) int64 {
		if typ == core.Income {
			return r.Income.Cents
		}
		return r.Expense.Cents
	}
	out := make([]core.CategoryRollup, 0, len(rollups))
	for _, r := range rollups {
		if value(r) > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return value(out[i]) > value(out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
