package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"carteira/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDelimitedText_Quoting(t *testing.T) {
	rows := []Row{{"Descrição": `Lunch, "quick"`, "Valor": "10,00"}}
	got, err := ToDelimitedText(rows, []string{"Descrição", "Valor"})
	require.NoError(t, err)
	assert.Equal(t, "Descrição,Valor\n\"Lunch, \"\"quick\"\"\",\"10,00\"\n", got)
	assert.Contains(t, got, `"Lunch, ""quick"""`)
}

func TestToDelimitedText_EmptyRows(t *testing.T) {
	got, err := ToDelimitedText(nil, []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToDelimitedText_ColumnSubsetAndMissing(t *testing.T) {
	rows := []Row{
		{"a": "1", "b": "2", "c": "ignored"},
		{"a": nil, "b": core.Cents(150)},
		{"b": 3},
	}
	got, err := ToDelimitedText(rows, []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "b,a\n2,1\n1.50,\n3,\n", got)
	assert.NotContains(t, got, "nil")
	assert.NotContains(t, got, "<nil>")
}

func TestToDelimitedText_RoundTrip(t *testing.T) {
	columns := []string{"id", "text", "note"}
	values := [][]string{
		{"1", "plain", ""},
		{"2", "comma, inside", `quote " inside`},
		{"3", "line\nbreak", `"fully quoted"`},
		{"4", " leading space", "tab\there"},
		{"5", "ünïcödé ✓", "R$ 1.234,56"},
	}
	rows := make([]Row, len(values))
	for i, v := range values {
		rows[i] = Row{"id": v[0], "text": v[1], "note": v[2]}
	}

	text, err := ToDelimitedText(rows, columns)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(values)+1)
	assert.Equal(t, columns, records[0])
	assert.Equal(t, values, records[1:])
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1234,56", FormatAmount(core.Cents(123456)))
	assert.Equal(t, "0,00", FormatAmount(core.Money{}))
	assert.Equal(t, "-7,05", FormatAmount(core.Cents(-705)))
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Receita", TypeLabel(core.Income))
	assert.Equal(t, "Despesa", TypeLabel(core.Expense))
}
