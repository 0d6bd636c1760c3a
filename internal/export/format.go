package export

import (
	"strings"
	"time"

	"carteira/internal/core"
)

const (
	dateLayout      = "02/01/2006"
	timestampLayout = "02/01/2006, 15:04:05"
	fileDateLayout  = "2006-01-02"
)

// FormatAmount renders m with a decimal comma and two fraction digits, e.g. "1234,56".
func FormatAmount(m core.Money) string {
	return strings.Replace(m.String(), ".", ",", 1)
}

// FormatDate renders a calendar date as dd/mm/yyyy.
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// FormatTimestamp renders t in loc as "dd/mm/yyyy, HH:MM:SS". A nil loc means UTC.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

// TypeLabel translates a transaction type for export headers and cells.
func TypeLabel(t core.TransactionType) string {
	switch t {
	case core.Income:
		return "Receita"
	case core.Expense:
		return "Despesa"
	default:
		return string(t)
	}
}

func fileName(prefix string, now time.Time) string {
	return prefix + now.UTC().Format(fileDateLayout) + ".csv"
}
