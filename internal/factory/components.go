// Package factory assembles the diary's runtime from configuration. The HTTP
// service, the CLI and the MCP server all build their object graph here.
package factory

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/content"
	"github.com/thekoushikdurgas/diary/internal/enrich"
	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/services"
	"github.com/thekoushikdurgas/diary/internal/session"
	storepkg "github.com/thekoushikdurgas/diary/internal/store"
	"github.com/thekoushikdurgas/diary/internal/tasks"
)

// Components is the wired object graph.
type Components struct {
	Config *config.Config

	Store       storepkg.Store
	Broker      *events.Broker
	Items       *content.Gateway
	AI          *ai.Lazy
	Media       *media.Resolver
	Runner      *tasks.Runner
	Enricher    *enrich.Pipeline
	Library     *services.Library
	Preferences *session.Preferences

	// AuthClient is nil when no auth service is configured.
	AuthClient *auth.Client
	// Authenticator is nil unless WithAuthenticator was requested.
	Authenticator auth.Authenticator
}

type buildOptions struct {
	authenticator bool
	ai            ai.Gateway
}

// BuildOption tweaks Build.
type BuildOption func(*buildOptions)

// WithAuthenticator makes Build fail unless bearer tokens can be verified.
// The HTTP service needs this; the CLI does not.
func WithAuthenticator() BuildOption {
	return func(o *buildOptions) { o.authenticator = true }
}

// WithAI replaces the Gemini client, mainly for tests.
func WithAI(g ai.Gateway) BuildOption {
	return func(o *buildOptions) { o.ai = g }
}

// Build opens the store and wires every component on top of it. The context
// bounds background loops such as the Postgres change listener, so it should
// live as long as the components.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...BuildOption) (*Components, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Components{Config: cfg, Broker: events.NewBroker()}

	st, err := NewStore(ctx, cfg, c.Broker, log.With().Str("component", "store").Logger())
	if err != nil {
		return nil, err
	}
	c.Store = st

	c.Media, err = NewMedia(ctx, cfg, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	c.AuthClient, err = NewAuthClient(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if o.authenticator {
		c.Authenticator, err = NewAuthenticator(cfg, c.AuthClient)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	c.AI = NewAI(cfg, log)
	var model ai.Gateway = c.AI
	if o.ai != nil {
		model = o.ai
	}

	c.Items = content.New(st.Items(), c.Broker, log.With().Str("component", "content").Logger(), content.WithOffloader(c.Media))
	c.Preferences = session.NewPreferences(st.Profiles(), st.Settings())

	runnerLog := log.With().Str("component", "tasks").Logger()
	c.Runner = tasks.NewRunner(tasks.Config{
		// transcription or summary plus categorization
		Timeout: 2*cfg.AITimeout() + 30*time.Second,
		Logger:  runnerLog,
		ErrorHandler: func(kind, key string, err error) {
			runnerLog.Warn().Err(err).Str("kind", kind).Str("key", key).Msg("background job failed")
		},
	})
	c.Enricher = enrich.New(c.Items, model, c.Media, c.Runner, log.With().Str("component", "enrich").Logger())
	c.Library = services.NewLibrary(c.Items, model, c.Media, c.Enricher,
		log.With().Str("component", "library").Logger(),
		services.WithSettings(c.Preferences))

	return c, nil
}

// Close drains background jobs until ctx is done and then closes the store.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	if c.Runner != nil {
		if err := c.Runner.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
