package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	"walletsync/internal/screen"
)

func summaryCmd() *cobra.Command {
	var (
		month  string
		income bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a month's totals, category breakdown and yearly trend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parsePeriod(month)
			if err != nil {
				return err
			}
			userID, err := app.UserID()
			if err != nil {
				return err
			}
			s := screen.NewAnalysis(userID, app.Gateway, app.Bus, p, app.Logger)
			s.ShowIncome(income)
			if err := s.Refresh(cmd.Context(), false); err != nil {
				return err
			}
			return printAnalysis(s.View())
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	cmd.Flags().BoolVar(&income, "income", false, "break down income instead of expenses")
	return cmd
}

func printAnalysis(v screen.AnalysisView) error {
	s := v.Summary
	fmt.Println(cli.TitleStyle.Render("Summary " + v.Period.String()))
	fmt.Printf("Income   %s  (%.2f/day, %.2f/week)\n", cli.FormatAmount(s.Income), s.DailyIncome, s.WeeklyIncome)
	fmt.Printf("Expense  %s  (%.2f/day, %.2f/week)\n", cli.ErrorStyle.Render(s.Expense.String()), s.DailyExpense, s.WeeklyExpense)
	fmt.Printf("Net      %s  over %d transactions\n\n", cli.FormatAmount(s.Net), s.Count)

	label := "Expenses by category"
	if v.IsIncome {
		label = "Income by category"
	}
	fmt.Println(cli.HeaderStyle.Render(label))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, sh := range v.Breakdown {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sh.Name, sh.Amount, cli.FormatPercent(sh.Percentage))
	}
	if len(v.Breakdown) == 0 {
		fmt.Fprintln(w, cli.SubtleStyle.Render("nothing recorded"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Trend %d", v.Period.Year)))
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, m := range v.Trend {
		if m.Income.IsZero() && m.Expense.IsZero() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Period, m.Income, m.Expense, cli.FormatAmount(m.Net()))
	}
	return w.Flush()
}
