package diaryservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/factory"
)

func TestCalculateStartupHealthTimeout(t *testing.T) {
	cases := map[int]int{0: 60, 10: 60, 30: 60, 45: 90}
	for in, want := range cases {
		if got := calculateStartupHealthTimeout(in); got != want {
			t.Fatalf("interval %d: expected %d, got %d", in, want, got)
		}
	}
}

type flag struct{ v atomic.Bool }

func (f *flag) IsHealthy() bool { return f.v.Load() }

func TestWaitUntilHealthy(t *testing.T) {
	cfg := config.NewForTesting()
	f := &flag{}
	go func() {
		time.Sleep(300 * time.Millisecond)
		f.v.Store(true)
	}()
	if err := waitUntilHealthy(context.Background(), cfg, f); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitUntilHealthy(ctx, cfg, &flag{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestBuildRouter_HealthWithoutAuthService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewForTesting()
	cfg.JWTSecret = "test-secret"
	c, err := factory.Build(ctx, cfg, zerolog.Nop(), factory.WithAuthenticator())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	_, svcHealth := startHealthCheckers(ctx, cfg, zerolog.Nop(), c)
	h := buildRouter(c, svcHealth, zerolog.Nop())

	// auth routes answer 503 when no auth service is configured
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/recover", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK && rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected health status %d", rec.Code)
	}
}
