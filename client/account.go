package client

import (
	"context"
	"net/http"
)

// SignUp creates an account.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*SignUpResult, error) {
	var out SignUpResult
	err := c.do(ctx, call{
		op: "signUp", method: http.MethodPost, path: "/api/auth/signup", anonymous: true,
		body: map[string]string{"email": email, "password": password, "fullName": fullName},
		want: http.StatusCreated, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LogIn exchanges email and password for a session. Hand it to UseSession
// to authenticate later calls.
func (c *Client) LogIn(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := c.do(ctx, call{
		op: "logIn", method: http.MethodPost, path: "/api/auth/login", anonymous: true,
		body: map[string]string{"email": email, "password": password},
		out:  &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var out Session
	err := c.do(ctx, call{
		op: "refresh", method: http.MethodPost, path: "/api/auth/refresh", anonymous: true,
		body: map[string]string{"refreshToken": refreshToken},
		out:  &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendPasswordResetEmail asks the service to email a reset link.
func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	return c.do(ctx, call{
		op: "recover", method: http.MethodPost, path: "/api/auth/recover", anonymous: true,
		body: map[string]string{"email": email},
	})
}

// LogOut revokes the current session.
func (c *Client) LogOut(ctx context.Context) error {
	return c.do(ctx, call{op: "logOut", method: http.MethodPost, path: "/api/auth/logout"})
}

// Me returns the signed-in user with profile and settings.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if err := c.do(ctx, call{op: "getMe", method: http.MethodGet, path: "/api/me", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes email, password or display name and returns the
// refreshed profile.
func (c *Client) UpdateUser(ctx context.Context, changes UserChanges) (*Profile, error) {
	var out struct {
		Profile *Profile `json:"profile"`
	}
	if err := c.do(ctx, call{op: "updateMe", method: http.MethodPatch, path: "/api/me", body: changes, out: &out}); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// UpdateSettings applies a partial settings change.
func (c *Client) UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, call{op: "updateSettings", method: http.MethodPut, path: "/api/me/settings", body: patch, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the service health. A DOWN service answers 503, reported
// as an APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	err := c.do(ctx, call{op: "health", method: http.MethodGet, path: "/api/health", anonymous: true, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
