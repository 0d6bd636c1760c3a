package report

import (
	"fmt"
	"strings"
	"time"

	"carteira/internal/core"
)

// Quick range names accepted by QuickRange.
const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

var monthAbbrev = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year, month int) (core.Date, core.Date) {
	start := core.NewDate(year, month, 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	return start, end
}

// QuickRange resolves a named range relative to now. Weeks run Sunday to Saturday.
func QuickRange(name string, now time.Time) (core.Date, core.Date, error) {
	today := core.DateOf(now)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RangeToday:
		return today, today, nil
	case RangeWeek:
		start := today.AddDays(-int(today.Weekday()))
		return start, start.AddDays(6), nil
	case RangeMonth:
		s, e := MonthRange(today.Year(), today.Month())
		return s, e, nil
	case RangeYear:
		return core.NewDate(today.Year(), 1, 1), core.NewDate(today.Year(), 12, 31), nil
	default:
		return core.Date{}, core.Date{}, fmt.Errorf("%w: unknown range %q", ErrInvalidRange, name)
	}
}

// MonthLabel formats a month as "jan/24".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s/%02d", monthAbbrev[month-1], year%100)
}

// MonthlySeries returns one point per calendar month for the months ending at
// anchor's month, oldest first. Cumulative carries the running balance across
// the series, starting from zero at the first month.
func MonthlySeries(txs []core.Transaction, anchor core.Date, months int) ([]core.MonthPoint, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive, got %d", ErrInvalidRange, months)
	}
	if anchor.IsZero() {
		return nil, fmt.Errorf("%w: anchor is required", ErrInvalidRange)
	}
	first := core.NewDate(anchor.Year(), anchor.Month(), 1).AddDate(0, -(months - 1), 0)

	points := make([]core.MonthPoint, months)
	index := make(map[[2]int]int, months)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i] = core.MonthPoint{Year: m.Year(), Month: int(m.Month()), Label: MonthLabel(m.Year(), int(m.Month()))}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	for _, tx := range txs {
		i, ok := index[[2]int{tx.Date.Year(), tx.Date.Month()}]
		if !ok {
			continue
		}
		amount, err := amountOf(tx)
		if err != nil {
			return nil, err
		}
		if tx.Type == core.Income {
			points[i].Income, err = points[i].Income.SafeAdd(amount)
		} else {
			points[i].Expenses, err = points[i].Expenses.SafeAdd(amount)
		}
		if err != nil {
			return nil, err
		}
	}

	var running core.Money
	for i := range points {
		points[i].Balance = points[i].Income.Sub(points[i].Expenses)
		var err error
		if running, err = running.SafeAdd(points[i].Balance); err != nil {
			return nil, err
		}
		points[i].Cumulative = running
	}
	return points, nil
}
