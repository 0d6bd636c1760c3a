package export

import (
	"errors"
	"fmt"
	"time"

	"carteira/internal/core"
)

// ContentType is the media type of every exported file.
const ContentType = "text/csv; charset=utf-8"

// ErrNothingToExport is returned when an export would produce an empty file.
var ErrNothingToExport = errors.New("nothing to export")

// Column sets of each export.
var (
	TransactionColumns = []string{"Data", "Tipo", "Categoria", "Descrição", "Valor", "Criado em"}
	SummaryColumns     = []string{"Período", "Total de Receitas", "Total de Despesas", "Saldo", "Gerado em"}
	CategoryColumns    = []string{"Categoria", "Receitas", "Despesas", "Total"}
)

// File is a rendered export ready to be handed to a Sink.
type File struct {
	Name    string
	Columns []string
	Rows    []Row
	Content []byte
}

func newFile(name string, columns []string, rows []Row) (File, error) {
	text, err := ToDelimitedText(rows, columns)
	if err != nil {
		return File{}, fmt.Errorf("render %s: %w", name, err)
	}
	return File{Name: name, Columns: columns, Rows: rows, Content: []byte(text)}, nil
}

// Transactions exports one row per transaction. Creation timestamps are shown in loc.
func Transactions(txs []core.Transaction, now time.Time, loc *time.Location) (File, error) {
	if len(txs) == 0 {
		return File{}, ErrNothingToExport
	}
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		amount, err := tx.Amount.Money()
		if err != nil {
			return File{}, &core.AmountError{TransactionID: tx.ID, Value: tx.Amount, Err: err}
		}
		rows = append(rows, Row{
			"Data":      FormatDate(tx.Date),
			"Tipo":      TypeLabel(tx.Type),
			"Categoria": tx.CategoryName(),
			"Descrição": tx.Description,
			"Valor":     FormatAmount(amount),
			"Criado em": FormatTimestamp(tx.CreatedAt, loc),
		})
	}
	return newFile(fileName("transacoes_", now), TransactionColumns, rows)
}

// FinancialSummary exports a summary as a single row labelled with period.
// A nil summary is exported as zeros.
func FinancialSummary(summary *core.FinancialSummary, period string, now time.Time, loc *time.Location) (File, error) {
	var s core.FinancialSummary
	if summary != nil {
		s = *summary
	}
	rows := []Row{{
		"Período":           period,
		"Total de Receitas": FormatAmount(s.TotalIncome),
		"Total de Despesas": FormatAmount(s.TotalExpenses),
		"Saldo":             FormatAmount(s.Balance),
		"Gerado em":         FormatTimestamp(now, loc),
	}}
	return newFile(fileName("resumo_financeiro_", now), SummaryColumns, rows)
}

// Categories exports category rollups. label names the selection in the file
// name, e.g. "expense" gives categorias_expense_2024-01-31.csv.
func Categories(rollups []core.CategoryRollup, label string, now time.Time) (File, error) {
	if len(rollups) == 0 {
		return File{}, ErrNothingToExport
	}
	rows := make([]Row, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, Row{
			"Categoria": r.Name,
			"Receitas":  FormatAmount(r.Income),
			"Despesas":  FormatAmount(r.Expense),
			"Total":     FormatAmount(r.Total),
		})
	}
	return newFile(fileName("categorias_"+label+"_", now), CategoryColumns, rows)
}

// PeriodLabel describes a date range for the summary export, e.g. "01/01/2024 a 31/01/2024".
func PeriodLabel(start, end core.Date) string {
	return FormatDate(start) + " a " + FormatDate(end)
}
