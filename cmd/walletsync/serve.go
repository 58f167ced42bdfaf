package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	apihttp "walletsync/internal/http"
	"walletsync/internal/log"
	"walletsync/internal/middleware/ratelimit"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the live event stream",
		Long: `serve exposes accounts, categories, transactions and the monthly summary
over HTTP. GET /api/events streams a server-sent event after every change made
through the API or, with AMQP_URL set, by any other walletsync process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = app.Config.Port
			}
			return runServe(cmd.Context(), ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT or 8081)")
	return cmd
}

func runServe(parent context.Context, addr string) error {
	logger := app.Logger

	srv := apihttp.NewServer(addr, apihttp.Deps{
		Gateway:   app.Gateway,
		Session:   app.Session,
		Bus:       app.Bus,
		Uploader:  app.Uploader(),
		RateLimit: ratelimit.Config{RequestsPerMinute: app.Config.RateLimitPerMinute},
		Logger:    logger.WithComponent(log.ComponentHTTP),
	})

	if app.Config.CacheTTL > 0 {
		app.Cache.StartCleanup(app.Config.CacheTTL)
	}

	ctx, done := cli.GracefulShutdown(parent, logger, 10*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", log.FieldError, err)
		}
	})

	if bridge := app.Bridge(); bridge != nil {
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("Event bridge stopped", log.FieldError, err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-ctx.Done():
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
