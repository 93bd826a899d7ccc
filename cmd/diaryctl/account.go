package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// readPassword returns the --password flag, DIARY_PASSWORD, or a password
// typed at the terminal without echo.
func readPassword(cmd *cobra.Command, p string) (string, error) {
	if p != "" {
		return p, nil
	}
	if env := os.Getenv("DIARY_PASSWORD"); env != "" {
		return env, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func newSignUpCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			res, err := a.mgr.SignUp(cmd.Context(), email, pw, name)
			if err != nil {
				return err
			}
			if res.Session == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Confirm your email, then run diaryctl login.\n", res.User.Email)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Logged in as %s\n", res.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 6 characters (or DIARY_PASSWORD, or prompted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogInCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			s, err := a.mgr.LogIn(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or DIARY_PASSWORD, or prompted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogOutCmd() *cobra.Command {
	var reset string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if reset != "" {
				if err := a.mgr.SendPasswordResetEmail(cmd.Context(), reset); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password reset email sent to %s\n", reset)
			}
			if err := a.mgr.LogOut(cmd.Context()); err != nil {
				// the local session is gone either way
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: remote sign-out failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	cmd.Flags().StringVar(&reset, "reset-password", "", "Also send a password reset email to this address")
	return cmd
}

type whoami struct {
	ID       string              `json:"id"`
	Email    string              `json:"email"`
	Profile  *model.Profile      `json:"profile,omitempty"`
	Settings *model.UserSettings `json:"settings,omitempty"`
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, profile and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.mgr.RequireSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("not logged in (run diaryctl login): %w", err)
			}
			out := whoami{ID: s.User.ID, Email: s.User.Email}
			out.Profile, out.Settings, err = a.mgr.GetUserProfileAndSettings(cmd.Context())
			if err != nil && !model.IsNotFound(err) {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n", out.ID, out.Email)
			if out.Profile != nil && out.Profile.FullName != "" {
				fmt.Fprintf(w, "name:  %s\n", out.Profile.FullName)
			}
			if out.Settings != nil {
				fmt.Fprintf(w, "theme: %s  view: %s  deep thought: %t\n",
					out.Settings.Theme, out.Settings.DefaultView, out.Settings.ChatDeepThought)
			}
			return nil
		},
	}
}

func newSettingsCmd() *cobra.Command {
	var theme, view string
	var deep, pending bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change theme, start view, the deep-thought default or the pending badge",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.SettingsPatch
			if cmd.Flags().Changed("theme") {
				patch.Theme = &theme
			}
			if cmd.Flags().Changed("view") {
				patch.DefaultView = &view
			}
			if cmd.Flags().Changed("deep-thought") {
				patch.ChatDeepThought = &deep
			}
			if cmd.Flags().Changed("show-pending") {
				patch.ShowAIPending = &pending
			}
			return withUser(cmd, func(ctx context.Context, a *app, _ string) error {
				s, err := a.mgr.UpdateUserSettings(ctx, patch)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), s)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "theme: %s  view: %s  deep thought: %t\n", s.Theme, s.DefaultView, s.ChatDeepThought)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "system, light or dark")
	cmd.Flags().StringVar(&view, "view", "", "feed, calendar or chat")
	cmd.Flags().BoolVar(&deep, "deep-thought", false, "Use the reasoning model for chat by default")
	cmd.Flags().BoolVar(&pending, "show-pending", true, "Mark items still awaiting AI enrichment")
	return cmd
}
