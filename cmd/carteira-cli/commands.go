package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"carteira/internal/config"
	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/importer/ofx"
	"carteira/internal/log"
	"carteira/internal/storage"
	"carteira/internal/storage/postgres"
	"carteira/internal/store"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var period rangeFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and balance for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := current.open(ctx); err != nil {
				return err
			}
			start, end, err := period.resolve(current.reports.Today())
			if err != nil {
				return err
			}

			summary, err := current.reports.Summary(ctx, current.userID, start, end)
			if err != nil {
				return err
			}
			rollups, err := current.reports.CategoryRollup(ctx, current.userID, start, end, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderSummary(out, summary)
			fmt.Fprintln(out)
			renderRollups(out, rollups)
			return nil
		},
	}
	period.register(cmd, "month")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		period rangeFlags
		dir    string
		typ    string
	)

	cmd := &cobra.Command{
		Use:       "export <transactions|summary|categories>",
		Short:     "Write a CSV report to a directory",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"transactions", "summary", "categories"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := current.open(ctx); err != nil {
				return err
			}
			start, end, err := period.resolve(current.reports.Today())
			if err != nil {
				return err
			}
			if dir == "" {
				dir = current.cfg.ExportDir
			}

			var file export.File
			switch args[0] {
			case "transactions":
				f, ferr := transactionFilter(typ, start, end)
				if ferr != nil {
					return ferr
				}
				file, err = current.reports.ExportTransactions(ctx, f)
			case "summary":
				file, err = current.reports.ExportSummary(ctx, current.userID, start, end)
			case "categories":
				file, err = current.reports.ExportCategories(ctx, current.userID, start, end, typ)
			}
			if errors.Is(err, export.ErrNothingToExport) {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Nada para exportar no período."))
				return nil
			}
			if err != nil {
				return err
			}

			ref, err := export.NewFileSink(afero.NewOsFs(), dir).Save(ctx, file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Exportado: "+ref))
			return nil
		},
	}
	period.register(cmd, "month")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default EXPORT_DIR)")
	cmd.Flags().StringVar(&typ, "type", "all", "all, income or expense")
	return cmd
}

func transactionFilter(typ string, start, end core.Date) (store.Filter, error) {
	f := store.Filter{UserID: current.userID, StartDate: start, EndDate: end}
	if typ != "" && typ != "all" {
		t, err := core.ParseTransactionType(typ)
		if err != nil {
			return store.Filter{}, err
		}
		f.Type = t
	}
	return f, nil
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from bank files",
	}
	cmd.AddCommand(importOFXCmd())
	return cmd
}

func importOFXCmd() *cobra.Command {
	var (
		dryRun          bool
		incomeCategory  string
		expenseCategory string
	)

	cmd := &cobra.Command{
		Use:   "ofx <files...>",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import transactions from OFX or QFX statements exported by your bank.

Lines already imported are skipped, so a statement can be imported again safely.

Examples:
  carteira-cli import ofx ~/Downloads/extrato_jan.ofx
  carteira-cli import ofx --expense-category expense-9 ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var records []ofx.Record
			for _, pattern := range args {
				files, err := filepath.Glob(pattern)
				if err != nil {
					return fmt.Errorf("invalid pattern %s: %w", pattern, err)
				}
				if len(files) == 0 {
					files = []string{pattern}
				}
				for _, path := range files {
					recs, err := parseOFXFile(path)
					if err != nil {
						return err
					}
					current.logger.Info("Parsed statement", log.FieldFile, filepath.Base(path), log.FieldCount, len(recs))
					records = append(records, recs...)
				}
			}

			if dryRun {
				fmt.Fprintf(out, "%d lançamentos encontrados (nada foi gravado)\n", len(records))
				return nil
			}
			if err := current.open(ctx); err != nil {
				return err
			}

			importer := ofx.NewImporter(current.transactions, current.logger)
			importer.CategoryFor = func(r ofx.Record) string {
				if r.Transaction.Type == core.Income {
					return incomeCategory
				}
				return expenseCategory
			}

			bar := progressbar.NewOptions(len(records),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Importando...[reset]"),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
			)
			res, err := importer.Import(ctx, current.userID, records, func() { _ = bar.Add(1) })
			if err != nil {
				return err
			}
			_ = bar.Finish()

			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("%d importados, %d duplicados ignorados", res.Imported, res.Duplicates)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "parse the files without saving")
	cmd.Flags().StringVar(&incomeCategory, "income-category", "", "category id for imported income")
	cmd.Flags().StringVar(&expenseCategory, "expense-category", "", "category id for imported expenses")
	return cmd
}

func parseOFXFile(path string) ([]ofx.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := ofx.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and add categories",
	}
	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the default categories and your own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := current.open(ctx); err != nil {
				return err
			}
			var t core.TransactionType
			if typ != "" {
				var err error
				if t, err = core.ParseTransactionType(typ); err != nil {
					return err
				}
			}
			cats, err := current.categories.List(ctx, current.userID, t)
			if err != nil {
				return err
			}
			renderCategories(cmd.OutOrStdout(), cats)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "income or expense")
	return cmd
}

func addCategoryCmd() *cobra.Command {
	var (
		typ  string
		icon string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := current.open(ctx); err != nil {
				return err
			}
			t, err := core.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			c, err := current.categories.Create(ctx, current.userID, core.Category{Name: args[0], Icon: icon, Type: t})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Categoria criada: %s (%s)", c.Name, c.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "expense", "income or expense")
	cmd.Flags().StringVar(&icon, "icon", "", "emoji shown next to the name")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := current.cfg
			var err error
			switch cfg.DataBackend {
			case config.BackendSQLite:
				if err = os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err == nil {
					err = storage.RunMigrations(cfg.SQLiteDBPath)
				}
			case config.BackendPostgres:
				err = postgres.RunMigrations(cfg.PostgresURL)
			default:
				return fmt.Errorf("backend %q has no schema to migrate", cfg.DataBackend)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Migrações aplicadas ("+cfg.DataBackend+")"))
			return nil
		},
	}
}
