// Package auth talks to the hosted auth service (a GoTrue-compatible REST
// API) and verifies the access tokens it issues.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// Config points the client at the auth service.
type Config struct {
	URL string
	// APIKey is the project's public key, sent as the apikey header.
	APIKey  string
	Timeout time.Duration
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	User         model.User `json:"user"`
}

// Expiry returns when the access token stops being valid.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Time{}
}

// Expired reports whether the access token is past (or within skew of) its
// expiry. A session without expiry information is never expired.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(skew).Before(exp)
}

// UserAttributes are the fields UpdateUser may change. Nil means unchanged.
type UserAttributes struct {
	Email    *string
	Password *string
	FullName *string
}

// SignUpResult carries the new user and, when the service confirms email
// addresses automatically, a session.
type SignUpResult struct {
	User    model.User
	Session *Session
}

// Client is a stateless auth REST client.
type Client struct {
	http *resty.Client
}

// New returns a client. It fails with ErrNotConfigured when no URL is set.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, &model.AuthError{Op: "init", Err: ErrNotConfigured}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		c.SetHeader("apikey", cfg.APIKey)
	}
	return &Client{http: c}, nil
}

// SignUp registers a user with email and password.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*SignUpResult, error) {
	const op = "signUp"
	body := map[string]any{"email": email, "password": password}
	if fullName != "" {
		body["data"] = map[string]any{"full_name": fullName}
	}
	raw, err := c.do(ctx, op, "", http.MethodPost, "/signup", body)
	if err != nil {
		return nil, err
	}

	// The service answers with a session when it auto-confirms, with a bare
	// user otherwise.
	var probe struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(raw, &probe)
	if probe.AccessToken != "" {
		s, err := decodeSession(op, raw)
		if err != nil {
			return nil, err
		}
		return &SignUpResult{User: s.User, Session: s}, nil
	}
	u, err := decodeUser(op, raw)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: *u}, nil
}

// LogIn exchanges email and password for a session.
func (c *Client) LogIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "logIn"
	raw, err := c.do(ctx, op, "", http.MethodPost, "/token?grant_type=password",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return decodeSession(op, raw)
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	const op = "refresh"
	if refreshToken == "" {
		return nil, &model.AuthError{Op: op, Err: ErrMissingToken}
	}
	raw, err := c.do(ctx, op, "", http.MethodPost, "/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	return decodeSession(op, raw)
}

// LogOut revokes the session behind accessToken.
func (c *Client) LogOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, "logOut", accessToken, http.MethodPost, "/logout", nil)
	return err
}

// Recover sends a password reset email.
func (c *Client) Recover(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return model.NewValidationError("email", "email is required")
	}
	_, err := c.do(ctx, "recover", "", http.MethodPost, "/recover", map[string]string{"email": email})
	return err
}

// GetUser returns the user the access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	const op = "getUser"
	raw, err := c.do(ctx, op, accessToken, http.MethodGet, "/user", nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(op, raw)
}

// UpdateUser changes email, password or display name.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*model.User, error) {
	const op = "updateUser"
	body := map[string]any{}
	if attrs.Email != nil {
		body["email"] = *attrs.Email
	}
	if attrs.Password != nil {
		body["password"] = *attrs.Password
	}
	if attrs.FullName != nil {
		body["data"] = map[string]any{"full_name": *attrs.FullName}
	}
	if len(body) == 0 {
		return nil, model.NewValidationError("user", "no fields to update")
	}
	raw, err := c.do(ctx, op, accessToken, http.MethodPut, "/user", body)
	if err != nil {
		return nil, err
	}
	return decodeUser(op, raw)
}

func (c *Client) do(ctx context.Context, op, bearer, method, path string, body any) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if bearer != "" {
		req.SetAuthToken(bearer)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &model.AuthError{Op: op, Err: err}
	}
	if resp.IsError() {
		return nil, &model.AuthError{Op: op, StatusCode: resp.StatusCode(), Err: decodeError(resp.Body())}
	}
	return resp.Body(), nil
}

// wireUser is the service's user object.
type wireUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (w wireUser) toModel() model.User {
	u := model.User{ID: w.ID, Email: w.Email, CreatedAt: w.CreatedAt}
	if name, ok := w.UserMetadata["full_name"].(string); ok {
		u.FullName = name
	}
	return u
}

func decodeUser(op string, raw []byte) (*model.User, error) {
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &model.AuthError{Op: op, Err: fmt.Errorf("decode user: %w", err)}
	}
	if w.ID == "" {
		return nil, &model.AuthError{Op: op, Err: errors.New("response has no user id")}
	}
	u := w.toModel()
	return &u, nil
}

func decodeSession(op string, raw []byte) (*Session, error) {
	var w struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		TokenType    string   `json:"token_type"`
		ExpiresIn    int64    `json:"expires_in"`
		ExpiresAt    int64    `json:"expires_at"`
		User         wireUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &model.AuthError{Op: op, Err: fmt.Errorf("decode session: %w", err)}
	}
	if w.AccessToken == "" {
		return nil, &model.AuthError{Op: op, Err: errors.New("response has no access token")}
	}
	s := &Session{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		TokenType:    w.TokenType,
		ExpiresIn:    w.ExpiresIn,
		ExpiresAt:    w.ExpiresAt,
		User:         w.User.toModel(),
	}
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	return s, nil
}

// decodeError reads the several error shapes the service uses.
func decodeError(body []byte) error {
	var e struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
			if s != "" {
				return fmt.Errorf("%w: %s", ErrRejected, s)
			}
		}
	}
	return ErrRejected
}
