package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"go.uber.org/zap"
)

// Run serves handler on cfg.Address until ctx is canceled, sweeping idle
// sessions from store every sweep interval, then shuts down gracefully.
func Run(ctx context.Context, cfg *Config, handler http.Handler, store *session.Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, store, cfg.SessionTTL, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "server.Run"),
			zap.String("address", cfg.Address),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
			zap.Duration("sessionTTL", cfg.SessionTTL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down",
		zap.String("op", "server.Run"),
		zap.Duration("timeout", cfg.ShutdownTimeout),
	)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// sweepInterval is how often idle sessions are checked for a given TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func sweepSessions(ctx context.Context, store *session.Store, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval(ttl))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(ttl); n > 0 {
				logger.Info("expired idle sessions",
					zap.String("op", "server.sweepSessions"),
					zap.Int("removed", n),
					zap.Int("remaining", store.Len()),
				)
			}
		}
	}
}
