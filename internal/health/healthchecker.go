package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component-level checkers (store, ai).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// HealthPinger can be implemented by components to expose a specialized
// health check. HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// ServiceHealthChecker folds component checkers into one service flag and
// logs every UP/DOWN transition.
type ServiceHealthChecker struct {
	up   atomic.Bool
	deps []HealthChecker
	log  zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	return &ServiceHealthChecker{deps: deps, log: log}
}

// IsHealthy returns the flag computed by the last evaluation.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.up.Load() }

// Unhealthy lists the names of components currently reporting down.
func (h *ServiceHealthChecker) Unhealthy() []string {
	var out []string
	for _, c := range h.deps {
		if !c.IsHealthy() {
			out = append(out, c.Name())
		}
	}
	return out
}

// Start re-evaluates the components every interval until ctx is done.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	first := true
	RunProbeLoop(ctx, interval, interval, func(context.Context) {
		down := h.Unhealthy()
		up := len(down) == 0
		if prev := h.up.Swap(up); prev == up && !first {
			return
		}
		first = false
		if up {
			h.log.Info().Msg("service health: UP")
		} else {
			h.log.Error().Strs("down", down).Msg("service health: DOWN")
		}
	})
}

// PingChecker turns any HealthPinger into a HealthChecker.
type PingChecker struct {
	name         string
	pinger       HealthPinger
	up           atomic.Bool
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewPingChecker creates a checker named name that calls p.HealthPing.
func NewPingChecker(name string, p HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *PingChecker {
	return &PingChecker{name: name, pinger: p, log: log, probeTimeout: probeTimeout}
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.up.Load() }

// Start probes until ctx is done.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	RunProbeLoop(ctx, interval, c.probeTimeout, func(probeCtx context.Context) {
		if err := c.pinger.HealthPing(probeCtx); err != nil {
			c.log.Error().Err(err).Str("checker", c.name).Msg("health check failed")
			c.up.Store(false)
			return
		}
		c.up.Store(true)
	})
}

// RunProbeLoop calls probe once immediately and then on every tick, each
// time under its own timeout, until ctx is done.
func RunProbeLoop(ctx context.Context, interval, probeTimeout time.Duration, probe func(context.Context)) {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		probe(checkCtx)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
