package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/health"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// HealthChecker caches the result of periodic store probes. It reports
// unhealthy until the first probe succeeds.
type HealthChecker struct {
	store        Store
	up           atomic.Bool
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewHealthChecker returns a checker for s.
func NewHealthChecker(s Store, log zerolog.Logger, probeTimeout time.Duration) *HealthChecker {
	return &HealthChecker{store: s, log: log, probeTimeout: probeTimeout}
}

func (hc *HealthChecker) Name() string { return "store" }

// IsHealthy is non-blocking.
func (hc *HealthChecker) IsHealthy() bool { return hc.up.Load() }

// Start probes every interval until ctx is done.
func (hc *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	health.RunProbeLoop(ctx, interval, hc.probeTimeout, func(checkCtx context.Context) {
		hc.up.Store(hc.probe(checkCtx) == nil)
	})
}

// probe prefers a driver ping and falls back to a keyed settings read; a
// missing row still proves the database answered.
func (hc *HealthChecker) probe(ctx context.Context) error {
	var err error
	if p, ok := hc.store.(health.HealthPinger); ok {
		err = p.HealthPing(ctx)
	} else if _, err = hc.store.Settings().Get(ctx, "__health_check__"); errors.Is(err, model.ErrNotFound) {
		err = nil
	}
	if err != nil {
		hc.log.Error().Stack().Str("checker", hc.Name()).Err(err).Msg("store health check failed")
	}
	return err
}
