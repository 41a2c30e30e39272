package cli

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/httpapi"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", a.cfg.HTTP.Addr)
			if err != nil {
				return errors.Wrapf(err, "serve: listen on %s", a.cfg.HTTP.Addr)
			}
			return a.serve(ctx, listener)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().Float64("rate-limit", 0, "requests per second across the API (0 keeps the config value)")
	cmd.Flags().Int("burst", 0, "rate limiter burst")
	return cmd
}

func (a *app) handler() http.Handler {
	return httpapi.New(a.validator,
		httpapi.WithLogger(a.logger),
		httpapi.WithRateLimit(a.cfg.HTTP.RateLimit, a.cfg.HTTP.Burst),
		httpapi.WithMaxBodyBytes(a.cfg.HTTP.MaxBodyBytes),
		httpapi.WithUploadOptions(a.cfg.UploadOptions()),
		httpapi.WithMetricsHandler(a.metrics.Handler()),
	)
}

func (a *app) serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("http server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "serve: shutdown")
	}
	return nil
}
