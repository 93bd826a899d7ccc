// Package diaryservice runs the diary HTTP API.
package diaryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/api"
	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/factory"
	"github.com/thekoushikdurgas/diary/internal/health"
	"github.com/thekoushikdurgas/diary/internal/logger"
	"github.com/thekoushikdurgas/diary/internal/store"
)

// Run starts the diary HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("diary-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Bool("media_offload", cfg.MediaOffloadEnabled()).
		Msg("Diary service starting")

	ctx, stop := newServerContext()
	defer stop()

	c, err := factory.Build(ctx, cfg, log, factory.WithAuthenticator())
	if err != nil {
		log.Error().Stack().Err(err).Msg("Dependencies unavailable")
		return err
	}
	defer closeComponents(c, cfg, log)

	storeChecker, svcHealth := startHealthCheckers(ctx, cfg, log, c)

	// Only the store gates startup; a failing AI backend is reported by
	// /api/health but the library stays usable without it.
	if err := waitUntilHealthy(ctx, cfg, storeChecker); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, buildRouter(c, svcHealth, log))
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

func buildRouter(c *factory.Components, svcHealth api.HealthReporter, log zerolog.Logger) http.Handler {
	d := api.Deps{
		Library:       c.Library,
		Preferences:   c.Preferences,
		Authenticator: c.Authenticator,
		Health:        svcHealth,
		Log:           log,
	}
	// a nil *auth.Client must stay a nil interface
	if c.AuthClient != nil {
		d.Auth = c.AuthClient
	}
	return api.NewRouter(d)
}

// startHealthCheckers starts the store and AI probes plus the service-level
// aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, c *factory.Components) (health.HealthChecker, *health.ServiceHealthChecker) {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewHealthChecker(c.Store, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	aiChecker := health.NewPingChecker("ai", c.AI, log, probeTimeout)
	go aiChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker, aiChecker)
	go svcHealth.Start(ctx, interval)
	return storeChecker, svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// AI calls can take most of AITimeout; the stream endpoint lifts this per request
		WriteTimeout: cfg.AITimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// closeComponents waits for enrichment jobs still in flight, then closes the store.
func closeComponents(c *factory.Components, cfg *config.Config, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := c.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

type healthFlag interface{ IsHealthy() bool }

// waitUntilHealthy blocks until h reports healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, h healthFlag) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if h.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: store not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
