package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carteira/internal/backend"
	"carteira/internal/cli"
	"carteira/internal/config"
	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/report"
	"carteira/internal/services"

	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	loc    *time.Location
	userID string

	be           *backend.BackendResult
	transactions *services.TransactionService
	categories   *services.CategoryService
	reports      *services.ReportService
}

var (
	current = &app{}
	rootCmd = &cobra.Command{
		Use:   "carteira-cli",
		Short: "Personal finance tracker",
		Long: `carteira-cli reads and writes the same store as the carteira API.

It prints summaries, exports CSV reports, imports OFX bank statements and
manages categories.`,
		SilenceUsage:       true,
		PersistentPreRunE:  initApp,
		PersistentPostRunE: closeApp,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&current.userID, "user", "", "owner id of the records (empty for single-user mode)")

	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initApp(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	current.cfg = cfg
	current.logger = cli.SetupLogger(cfg)
	current.loc = cli.Location(cfg, current.logger)
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if current.be == nil {
		return nil
	}
	return current.be.Close()
}

// open connects to the configured backend and builds the services. Commands
// that only need the configuration do not call it.
func (a *app) open(ctx context.Context) error {
	if a.be != nil {
		return nil
	}
	be, err := cli.InitBackend(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.be = be
	a.transactions = services.NewTransactionService(be.Transactions, be.Categories, nil, a.logger)
	a.categories = services.NewCategoryService(be.Categories, a.logger)
	a.reports = services.NewReportService(be.Transactions, a.loc, a.logger)
	return nil
}

// rangeFlags selects a period by name or by explicit dates.
type rangeFlags struct {
	name  string
	start string
	end   string
}

func (r *rangeFlags) register(cmd *cobra.Command, defaultName string) {
	cmd.Flags().StringVar(&r.name, "range", defaultName, "named period: today, week, month or year")
	cmd.Flags().StringVar(&r.start, "start", "", "first day (YYYY-MM-DD), overrides --range")
	cmd.Flags().StringVar(&r.end, "end", "", "last day (YYYY-MM-DD), overrides --range")
}

// resolve returns the selected period. Explicit dates win over the name.
func (r *rangeFlags) resolve(today core.Date) (core.Date, core.Date, error) {
	if r.start == "" && r.end == "" {
		return report.QuickRange(r.name, today.Time)
	}
	start, err := core.ParseDate(r.start)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	end, err := core.ParseDate(r.end)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	if err := report.ValidateRange(start, end); err != nil {
		return core.Date{}, core.Date{}, err
	}
	return start, end, nil
}
