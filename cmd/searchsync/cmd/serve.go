package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/metrics"
	chiTransport "github.com/kailas-cloud/searchsync/internal/transport/chi"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for search, import, flush and lifecycle events.

When queue.driver is nats the process also consumes queued units unless
--worker=false is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, withWorker)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "worker", true, "Consume queued units in this process")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, withWorker bool) error {
	a, err := newApp(ctx, root, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	metrics.RegisterHTTPMetrics()

	if withWorker && a.bus != nil {
		stop, err := a.startWorker()
		if err != nil {
			return err
		}
		defer func() { _ = stop() }()
	}

	server := chiTransport.NewServer(a.search, a.index, a.loader, a.health, a.logger)
	httpCfg := a.cfg.HTTP
	addr := fmt.Sprintf(":%d", httpCfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, a.cfg.Auth.APIKeys, a.logger),
		ReadTimeout:  time.Duration(httpCfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(httpCfg.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(httpCfg.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
