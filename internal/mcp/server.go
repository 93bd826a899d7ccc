// Package mcp serves the diary as MCP tools for assistant hosts.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/factory"
	"github.com/thekoushikdurgas/diary/internal/logger"
	"github.com/thekoushikdurgas/diary/internal/mcp/handlers"
	"github.com/thekoushikdurgas/diary/internal/session"
)

// Settings configures the MCP front end. Variables use the DIARY_MCP_ prefix;
// everything else comes from the shared DIARY_ configuration.
type Settings struct {
	// Credentials for a headless login. When empty the session saved by
	// diaryctl login is reused.
	Email    string `envconfig:"EMAIL" default:""`
	Password string `envconfig:"PASSWORD" default:""`

	// Transport is "stdio", "http" or "auto" (stdio when stdin is not a terminal).
	Transport string `envconfig:"TRANSPORT" default:"auto"`
	Addr      string `envconfig:"ADDR" default:":8091"`

	// ServiceURL points the tools at a running diary service instead of
	// opening the database in process.
	ServiceURL     string        `envconfig:"SERVICE_URL" default:""`
	ServiceTimeout time.Duration `envconfig:"SERVICE_TIMEOUT" default:"90s"`

	ServerName      string        `envconfig:"SERVER_NAME" default:"diary-mcp"`
	ServerVersion   string        `envconfig:"SERVER_VERSION" default:"0.1.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
}

// LoadSettings reads DIARY_MCP_* variables.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("DIARY_MCP", &s); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &s, nil
}

type toolRegisterer interface {
	RegisterTools(s *server.MCPServer) error
}

// NewServer builds the MCP server with the library tools registered.
func NewServer(name, version string, lib handlers.Library, user handlers.CurrentUser) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, h := range []toolRegisterer{handlers.NewLibraryHandler(lib, user)} {
		if err := h.RegisterTools(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SessionUser resolves tool calls to the manager's signed-in user, refreshing
// the access token when needed.
func SessionUser(m *session.Manager) handlers.CurrentUser {
	return func(ctx context.Context) (string, error) {
		s, err := m.RequireSession(ctx)
		if err != nil {
			return "", err
		}
		return s.User.ID, nil
	}
}

// Run starts the MCP server and blocks until shutdown or error.
func Run() error {
	// stdout belongs to the stdio transport
	l := logger.NewConsole("diary-mcp", os.Stderr)

	cfg, err := config.New()
	if err != nil {
		l.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	settings, err := LoadSettings()
	if err != nil {
		return err
	}
	l = l.Level(logger.ParseLevel(cfg.LogLevel))
	log.Logger = l

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		lib  handlers.Library
		user handlers.CurrentUser
	)
	if settings.ServiceURL != "" {
		lib, user, err = connectRemote(ctx, settings, savedSession(), l)
		if err != nil {
			return err
		}
	} else {
		c, err := factory.Build(ctx, cfg, l)
		if err != nil {
			l.Error().Stack().Err(err).Msg("Dependencies unavailable")
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
			defer cancel()
			if err := c.Close(closeCtx); err != nil {
				l.Warn().Err(err).Msg("shutdown incomplete")
			}
		}()

		mgr, err := signIn(ctx, c, settings, l)
		if err != nil {
			return err
		}
		lib, user = c.Library, SessionUser(mgr)
	}

	s, err := NewServer(settings.ServerName, settings.ServerVersion, lib, user)
	if err != nil {
		return err
	}

	if useStdio(settings.Transport) {
		l.Info().Msg("Starting diary MCP server (stdio transport)")
		return server.ServeStdio(s)
	}
	return serveHTTP(ctx, s, settings, l)
}

func signIn(ctx context.Context, c *factory.Components, settings *Settings, l zerolog.Logger) (*session.Manager, error) {
	if c.AuthClient == nil {
		return nil, errors.New("DIARY_AUTH_URL is required for the MCP server")
	}

	mgr := session.NewManager(c.AuthClient, c.Preferences, savedSession(), l.With().Str("component", "session").Logger())

	if settings.Email != "" {
		if _, err := mgr.LogIn(ctx, settings.Email, settings.Password); err != nil {
			l.Error().Err(err).Str("email", settings.Email).Msg("login failed")
			return nil, err
		}
	}
	s, err := mgr.RequireSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("no session: set DIARY_MCP_EMAIL/DIARY_MCP_PASSWORD or run diaryctl login: %w", err)
	}
	l.Info().Str("user_id", s.User.ID).Msg("signed in")
	return mgr, nil
}

// savedSession is the diaryctl session file, or memory when there is no
// config directory.
func savedSession() session.Persister {
	if path, err := session.DefaultPath(); err == nil {
		return session.NewFileStore(path)
	}
	return &session.MemoryStore{}
}

func serveHTTP(ctx context.Context, s *server.MCPServer, settings *Settings, l zerolog.Logger) error {
	streamSrv := server.NewStreamableHTTPServer(s,
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(30*time.Second),
	)
	srv := &http.Server{
		Addr:        settings.Addr,
		Handler:     streamSrv,
		ReadTimeout: settings.ReadTimeout,
		// no write deadline: responses may stream
		WriteTimeout: 0,
		IdleTimeout:  settings.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info().Str("addr", settings.Addr).Msg("Starting diary MCP server (Streamable HTTP)")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		l.Error().Err(err).Msg("HTTP server error")
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Error during HTTP server shutdown")
	}
	if err := streamSrv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Error during MCP server shutdown")
	}
	l.Info().Msg("MCP server shutdown complete")
	return nil
}

// useStdio resolves the transport setting; "auto" picks stdio when stdin is
// not a terminal (the host launched us).
func useStdio(transport string) bool {
	switch transport {
	case "stdio":
		return true
	case "http":
		return false
	}
	if fi, err := os.Stdin.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}
