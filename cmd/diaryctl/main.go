package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/factory"
	"github.com/thekoushikdurgas/diary/internal/logger"
	"github.com/thekoushikdurgas/diary/internal/session"
)

var (
	sessionFile string
	debug       bool
	jsonOutput  bool
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "diaryctl",
		Short:         "diaryctl manages your AI-organized diary from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = logger.NewConsole("diaryctl", cmd.ErrOrStderr())
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "Where the login session is kept (default $XDG_CONFIG_HOME/diary/session.json)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newSignUpCmd())
	rootCmd.AddCommand(newLogInCmd())
	rootCmd.AddCommand(newLogOutCmd())
	rootCmd.AddCommand(newWhoAmICmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTagCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newOrganizeCmd())
	rootCmd.AddCommand(newSummarizeCmd())
	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newEditImageCmd())
	rootCmd.AddCommand(newImagineCmd())
	rootCmd.AddCommand(newChatCmd())

	return rootCmd
}

// app is the in-process diary a command works against.
type app struct {
	cfg *config.Config
	c   *factory.Components
	mgr *session.Manager
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	c, err := factory.Build(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	if c.AuthClient == nil {
		_ = c.Close(context.Background())
		return nil, errors.New("DIARY_AUTH_URL is not set")
	}

	path := sessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			_ = c.Close(context.Background())
			return nil, err
		}
	}
	mgr := session.NewManager(c.AuthClient, c.Preferences, session.NewFileStore(path), log.Logger)
	return &app{cfg: cfg, c: c, mgr: mgr}, nil
}

// Close waits for background enrichment started by this command so it is
// not cut off when the process exits.
func (a *app) Close() {
	timeout := time.Duration(a.cfg.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.c.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("background work did not finish")
	}
}

func (a *app) userID(ctx context.Context) (string, error) {
	s, err := a.mgr.RequireSession(ctx)
	if err != nil {
		return "", fmt.Errorf("not logged in (run diaryctl login): %w", err)
	}
	return s.User.ID, nil
}

// withUser opens the app, resolves the signed-in user and runs fn.
func withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app, userID string) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	userID, err := a.userID(cmd.Context())
	if err != nil {
		return err
	}
	return fn(cmd.Context(), a, userID)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
