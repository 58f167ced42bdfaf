package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	"walletsync/internal/core"
	"walletsync/internal/log"
)

var (
	app     *cli.App
	rootCmd = &cobra.Command{
		Use:   "walletsync",
		Short: "Personal finance ledger with live cross-screen sync",
		Long: `walletsync keeps accounts, categories and transactions in a remote store
and keeps every open view consistent after each change.

Configuration is read from the environment (and .env for local development).`,
		SilenceUsage:       true,
		PersistentPreRunE:  initApp,
		PersistentPostRunE: closeApp,
	}
)

func init() {
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render(core.UserMessage(err)))
		fmt.Fprintln(os.Stderr, cli.SubtleStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func initApp(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg)

	start := time.Now()
	app, err = cli.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("Application initialized",
		log.FieldBackend, cfg.DataBackend,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

// parsePeriod reads YYYY-MM, defaulting to the current month.
func parsePeriod(s string) (core.Period, error) {
	if s == "" {
		return core.PeriodOf(time.Now()), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", core.ErrValidation, s)
	}
	return core.PeriodOf(t), nil
}
