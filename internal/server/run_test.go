package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"go.uber.org/zap"
)

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, http.NotFoundHandler(), session.NewStore(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.Address = "256.0.0.1:bad"

	if err := Run(context.Background(), cfg, http.NotFoundHandler(), session.NewStore(), zap.NewNop()); err == nil {
		t.Fatal("expected an error for an invalid listen address")
	}
}

func TestSweepSessionsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepSessions(ctx, session.NewStore(), time.Hour, zap.NewNop())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweepSessions did not return after cancel")
	}
}
