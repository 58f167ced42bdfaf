package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	"walletsync/internal/core"
	"walletsync/internal/log"
	"walletsync/internal/screen"
)

func watchCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the summary and account views live until interrupted",
		Long: `watch focuses the analysis, accounts and transactions views and re-renders
them whenever a transaction changes, locally or (with AMQP_URL set) in any
other walletsync process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parsePeriod(month)
			if err != nil {
				return err
			}
			userID, err := app.UserID()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), userID, p)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	return cmd
}

func runWatch(parent context.Context, userID string, p core.Period) error {
	logger := app.Logger

	analysis := screen.NewAnalysis(userID, app.Gateway, app.Bus, p, logger)
	accounts := screen.NewAccounts(userID, app.Gateway, app.Bus, logger)
	txs := screen.NewTransactions(userID, app.Gateway, app.Bus, p, logger)

	analysis.OnChange(func(v screen.AnalysisView) {
		fmt.Printf("%s %s income %s expense %s net %s\n",
			cli.SubtleStyle.Render(time.Now().Format(time.TimeOnly)), v.Period,
			v.Summary.Income, v.Summary.Expense, cli.FormatAmount(v.Summary.Net))
	})
	accounts.OnChange(func(v screen.AccountsView) {
		fmt.Printf("%s net worth %s across %d accounts\n",
			cli.SubtleStyle.Render(time.Now().Format(time.TimeOnly)), cli.FormatAmount(v.NetWorth), len(v.Accounts))
	})
	txs.OnChange(func(v screen.TransactionsView) {
		fmt.Printf("%s %d transactions in %s\n",
			cli.SubtleStyle.Render(time.Now().Format(time.TimeOnly)), len(v.Items), v.Period)
	})

	if app.Config.CacheTTL > 0 {
		app.Cache.StartCleanup(app.Config.CacheTTL)
	}

	ctx, done := cli.GracefulShutdown(parent, logger, 10*time.Second, func() {
		analysis.Blur()
		accounts.Blur()
		txs.Blur()
	})

	if bridge := app.Bridge(); bridge != nil {
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("Event bridge stopped", log.FieldError, err)
			}
		}()
	}

	for _, focus := range []func(context.Context) error{analysis.Focus, accounts.Focus, txs.Focus} {
		if err := focus(ctx); err != nil {
			logger.Warn("Initial load failed, waiting for the next change", log.FieldError, err)
		}
	}
	logger.Info("Watching for changes", log.FieldUserID, userID)

	cli.WaitForShutdown(ctx, done)
	return nil
}
