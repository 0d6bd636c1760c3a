// Package export turns transactions, summaries and rollups into CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Row is one record keyed by column name.
type Row map[string]any

// ToDelimitedText renders rows as comma-separated text with a header line.
// Only the listed columns are written, in the given order. Missing or nil
// values become empty fields. Quoting follows RFC 4180. No rows means no output,
// not even a header. A CSV reader returns a CRLF inside a quoted field as LF, so
// only LF line breaks survive a round trip unchanged.
func ToDelimitedText(rows []Row, columns []string) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			record[j] = field(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}
	return b.String(), nil
}

func field(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
