package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/log"
	"carteira/internal/report"
	"carteira/internal/store"
)

// Category export selections.
const (
	SelectionAll     = "all"
	SelectionIncome  = "income"
	SelectionExpense = "expense"
)

// ReportService fetches transactions from the store and hands them to the
// aggregation engine and the export formatter. Nothing is cached.
type ReportService struct {
	txs    store.TransactionStore
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithReportClock overrides the clock used for export timestamps and file names.
func WithReportClock(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

// NewReportService builds the service. Export timestamps are rendered in loc;
// nil means UTC.
func NewReportService(txs store.TransactionStore, loc *time.Location, logger *log.Logger, opts ...ReportOption) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &ReportService{
		txs:    txs,
		loc:    loc,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentReport),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the service location.
func (s *ReportService) Today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

// Summary totals the user's transactions dated within [start, end].
func (s *ReportService) Summary(ctx context.Context, userID string, start, end core.Date) (core.FinancialSummary, error) {
	txs, err := s.fetch(ctx, userID, start, end, "")
	if err != nil {
		return core.FinancialSummary{}, err
	}
	return report.ComputeFinancialSummary(txs, start, end)
}

// CategoryRollup groups the user's transactions within [start, end] by
// category. typ restricts the input to one transaction type when set.
func (s *ReportService) CategoryRollup(ctx context.Context, userID string, start, end core.Date, typ core.TransactionType) ([]core.CategoryRollup, error) {
	txs, err := s.fetch(ctx, userID, start, end, typ)
	if err != nil {
		return nil, err
	}
	return report.ComputeCategoryRollup(txs)
}

// Monthly returns the series of the months months ending at anchor's month.
func (s *ReportService) Monthly(ctx context.Context, userID string, anchor core.Date, months int) ([]core.MonthPoint, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive, got %d", report.ErrInvalidRange, months)
	}
	if anchor.IsZero() {
		anchor = s.Today()
	}
	first, _ := report.MonthRange(anchor.Year(), anchor.Month())
	start := core.Date{Time: first.AddDate(0, -(months - 1), 0)}
	_, end := report.MonthRange(anchor.Year(), anchor.Month())

	txs, err := s.fetch(ctx, userID, start, end, "")
	if err != nil {
		return nil, err
	}
	return report.MonthlySeries(txs, anchor, months)
}

// ExportTransactions renders the transactions matching f.
func (s *ReportService) ExportTransactions(ctx context.Context, f store.Filter) (export.File, error) {
	if err := f.Validate(); err != nil {
		return export.File{}, err
	}
	txs, err := s.txs.QueryTransactions(ctx, f)
	if err != nil {
		return export.File{}, fmt.Errorf("query transactions: %w", err)
	}
	file, err := export.Transactions(txs, s.now(), s.loc)
	if err != nil {
		return export.File{}, err
	}
	s.logExport(ctx, file, len(txs))
	return file, nil
}

// ExportSummary renders the summary of [start, end].
func (s *ReportService) ExportSummary(ctx context.Context, userID string, start, end core.Date) (export.File, error) {
	summary, err := s.Summary(ctx, userID, start, end)
	if err != nil {
		return export.File{}, err
	}
	return s.SummaryFile(ctx, summary)
}

// SummaryFile renders a summary that was already computed.
func (s *ReportService) SummaryFile(ctx context.Context, summary core.FinancialSummary) (export.File, error) {
	file, err := export.FinancialSummary(&summary, export.PeriodLabel(summary.Start, summary.End), s.now(), s.loc)
	if err != nil {
		return export.File{}, err
	}
	s.logExport(ctx, file, 1)
	return file, nil
}

// ExportCategories renders the category rollup of [start, end]. selection is
// one of all, income or expense and also names the file.
func (s *ReportService) ExportCategories(ctx context.Context, userID string, start, end core.Date, selection string) (export.File, error) {
	selection = strings.ToLower(strings.TrimSpace(selection))
	var typ core.TransactionType
	switch selection {
	case "", SelectionAll:
		selection = SelectionAll
	case SelectionIncome:
		typ = core.Income
	case SelectionExpense:
		typ = core.Expense
	default:
		return export.File{}, fmt.Errorf("%w: %q", core.ErrInvalidType, selection)
	}

	rollups, err := s.CategoryRollup(ctx, userID, start, end, typ)
	if err != nil {
		return export.File{}, err
	}
	file, err := export.Categories(rollups, selection, s.now())
	if err != nil {
		return export.File{}, err
	}
	s.logExport(ctx, file, len(rollups))
	return file, nil
}

func (s *ReportService) fetch(ctx context.Context, userID string, start, end core.Date, typ core.TransactionType) ([]core.Transaction, error) {
	if err := report.ValidateRange(start, end); err != nil {
		return nil, err
	}
	txs, err := s.txs.QueryTransactions(ctx, store.Filter{UserID: userID, StartDate: start, EndDate: end, Type: typ})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return txs, nil
}

func (s *ReportService) logExport(ctx context.Context, f export.File, count int) {
	s.logger.InfoContext(ctx, "Export rendered",
		log.FieldOperation, log.OpExport,
		log.FieldFile, f.Name,
		log.FieldCount, count)
}
