package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"carteira/internal/core"
	"carteira/internal/export"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

func reais(m core.Money) string {
	return "R$ " + export.FormatAmount(m)
}

func balanceStyle(m core.Money) lipgloss.Style {
	if m.IsNegative() {
		return expenseStyle
	}
	return incomeStyle
}

func renderSummary(w io.Writer, s core.FinancialSummary) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Resumo %s", export.PeriodLabel(s.Start, s.End))))
	fmt.Fprintf(w, "  Receitas: %s\n", incomeStyle.Render(reais(s.TotalIncome)))
	fmt.Fprintf(w, "  Despesas: %s\n", expenseStyle.Render(reais(s.TotalExpenses)))
	fmt.Fprintf(w, "  Saldo:    %s\n", balanceStyle(s.Balance).Render(reais(s.Balance)))
}

func renderRollups(w io.Writer, rollups []core.CategoryRollup) {
	if len(rollups) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nenhuma transação no período."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Categoria"),
		headerStyle.Render("Receitas"),
		headerStyle.Render("Despesas"),
		headerStyle.Render("Total"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 20), strings.Repeat("-", 12), strings.Repeat("-", 12), strings.Repeat("-", 12))
	for _, r := range rollups {
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", r.Icon, r.Name, reais(r.Income), reais(r.Expense), reais(r.Total))
	}
}

func renderCategories(w io.Writer, cats []core.Category) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Nome"),
		headerStyle.Render("Tipo"),
		headerStyle.Render("Padrão"))
	for _, c := range cats {
		def := ""
		if c.IsDefault {
			def = mutedStyle.Render("sim")
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n", c.ID, c.Icon, c.Name, export.TypeLabel(c.Type), def)
	}
}
