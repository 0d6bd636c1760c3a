package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/log"
	"carteira/internal/mail"
	"carteira/internal/report"

	"github.com/robfig/cron/v3"
)

// ReportExporter renders the monthly files. *services.ReportService implements it.
type ReportExporter interface {
	Summary(ctx context.Context, userID string, start, end core.Date) (core.FinancialSummary, error)
	SummaryFile(ctx context.Context, summary core.FinancialSummary) (export.File, error)
	ExportCategories(ctx context.Context, userID string, start, end core.Date, selection string) (export.File, error)
}

// Mailer delivers messages. *mail.Sender implements it.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// SchedulerConfig configures the monthly report.
type SchedulerConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule   string
	UserID     string
	Recipients []string
	Location   *time.Location
}

// ReportScheduler exports the previous month's summary and category rollup on
// a cron schedule, saves the files to every sink and mails them.
type ReportScheduler struct {
	cfg      SchedulerConfig
	schedule cron.Schedule
	reports  ReportExporter
	sinks    []export.Sink
	mailer   Mailer
	now      func() time.Time
	logger   *log.Logger
}

type SchedulerOption func(*ReportScheduler)

// WithSchedulerClock overrides the clock used to pick the reported month.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *ReportScheduler) { s.now = now }
}

// NewReportScheduler validates the schedule. mailer may be nil.
func NewReportScheduler(cfg SchedulerConfig, reports ReportExporter, sinks []export.Sink, mailer Mailer, logger *log.Logger, opts ...SchedulerOption) (*ReportScheduler, error) {
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	s := &ReportScheduler{
		cfg:      cfg,
		schedule: schedule,
		reports:  reports,
		sinks:    sinks,
		mailer:   mailer,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentScheduler),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, producing a report at every tick.
func (s *ReportScheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.cfg.Location))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Monthly report failed", log.FieldError, err)
		}
	}))
	c.Start()
	s.logger.InfoContext(ctx, "Report scheduler started",
		"schedule", s.cfg.Schedule,
		"next_run", s.schedule.Next(s.now().In(s.cfg.Location)))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.InfoContext(ctx, "Report scheduler stopped")
	return nil
}

// PreviousMonth returns the calendar month before the one containing now.
func PreviousMonth(now time.Time) (core.Date, core.Date) {
	y, m, _ := now.Date()
	prev := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return report.MonthRange(prev.Year(), int(prev.Month()))
}

// RunOnce produces the report of the previous month.
func (s *ReportScheduler) RunOnce(ctx context.Context) error {
	start, end := PreviousMonth(s.now().In(s.cfg.Location))
	label := report.MonthLabel(start.Year(), start.Month())

	summary, err := s.reports.Summary(ctx, s.cfg.UserID, start, end)
	if err != nil {
		return fmt.Errorf("summary %s: %w", label, err)
	}
	summaryFile, err := s.reports.SummaryFile(ctx, summary)
	if err != nil {
		return fmt.Errorf("export summary %s: %w", label, err)
	}
	files := []export.File{summaryFile}

	categoriesFile, err := s.reports.ExportCategories(ctx, s.cfg.UserID, start, end, "all")
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		s.logger.InfoContext(ctx, "No categories to export", "month", label)
	case err != nil:
		return fmt.Errorf("export categories %s: %w", label, err)
	default:
		files = append(files, categoriesFile)
	}

	var errs []error
	for _, sink := range s.sinks {
		for _, f := range files {
			ref, err := sink.Save(ctx, f)
			if err != nil {
				errs = append(errs, fmt.Errorf("save %s: %w", f.Name, err))
				continue
			}
			s.logger.InfoContext(ctx, "Report saved", log.FieldFile, f.Name, log.FieldRef, ref)
		}
	}

	if s.mailer != nil && len(s.cfg.Recipients) > 0 {
		msg := mail.Message{
			To:      s.cfg.Recipients,
			Subject: "Resumo financeiro " + label,
			Body: fmt.Sprintf("Período: %s\nReceitas: %s\nDespesas: %s\nSaldo: %s\n",
				export.PeriodLabel(start, end),
				export.FormatAmount(summary.TotalIncome),
				export.FormatAmount(summary.TotalExpenses),
				export.FormatAmount(summary.Balance)),
			Files: files,
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.InfoContext(ctx, "Monthly report produced",
		"month", label,
		log.FieldStartDate, start.String(),
		log.FieldEndDate, end.String(),
		log.FieldCount, len(files))
	return errors.Join(errs...)
}
