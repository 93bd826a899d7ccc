// Package session keeps the signed-in state of a single client (the CLI or
// the MCP server) and passes auth and preference calls through to the auth
// service and the row store.
package session

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// AuthEvent names a sign-in state transition.
type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	UserUpdated    AuthEvent = "USER_UPDATED"
)

// refreshSkew refreshes tokens slightly before they expire.
const refreshSkew = time.Minute

// AuthAPI is the auth service surface the manager uses; *auth.Client
// implements it.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password, fullName string) (*auth.SignUpResult, error)
	LogIn(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	LogOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
	UpdateUser(ctx context.Context, accessToken string, attrs auth.UserAttributes) (*model.User, error)
}

// Manager owns the current session and notifies listeners of changes.
type Manager struct {
	api     AuthAPI
	prefs   *Preferences
	persist Persister
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	current   *auth.Session
	loaded    bool
	listeners map[int]func(AuthEvent, *auth.Session)
	nextID    int
}

// NewManager returns a manager. persist may be nil for an in-memory session.
func NewManager(api AuthAPI, prefs *Preferences, persist Persister, log zerolog.Logger) *Manager {
	if persist == nil {
		persist = &MemoryStore{}
	}
	return &Manager{
		api:       api,
		prefs:     prefs,
		persist:   persist,
		log:       log,
		now:       time.Now,
		listeners: map[int]func(AuthEvent, *auth.Session){},
	}
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return model.NewValidationError("email", "a valid email address is required")
	}
	if password == "" {
		return model.NewValidationError("password", "password is required")
	}
	return nil
}

// SignUp registers a user. When the auth service returns a session the user
// is signed in and a profile row is created.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) (*auth.SignUpResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	res, err := m.api.SignUp(ctx, strings.TrimSpace(email), password, fullName)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		m.syncProfile(ctx, res.Session.User)
		m.setSession(res.Session, SignedIn)
	}
	return res, nil
}

// LogIn signs in with email and password.
func (m *Manager) LogIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	s, err := m.api.LogIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	m.syncProfile(ctx, s.User)
	m.setSession(s, SignedIn)
	return s, nil
}

// LogOut revokes the session remotely and forgets it locally. The local
// session is cleared even when revocation fails.
func (m *Manager) LogOut(ctx context.Context) error {
	s, err := m.loadCurrent()
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	remoteErr := m.api.LogOut(ctx, s.AccessToken)
	m.setSession(nil, SignedOut)
	return remoteErr
}

// SendPasswordResetEmail asks the auth service to mail a reset link.
func (m *Manager) SendPasswordResetEmail(ctx context.Context, email string) error {
	return m.api.Recover(ctx, strings.TrimSpace(email))
}

// GetSession returns the current session, refreshing it when the access
// token has expired. It returns nil without error when signed out. A failed
// refresh signs the user out.
func (m *Manager) GetSession(ctx context.Context) (*auth.Session, error) {
	s, err := m.loadCurrent()
	if err != nil || s == nil {
		return nil, err
	}
	if !s.Expired(m.now(), refreshSkew) {
		return s, nil
	}

	refreshed, err := m.api.Refresh(ctx, s.RefreshToken)
	if err != nil {
		var authErr *model.AuthError
		if errors.As(err, &authErr) && authErr.Category() == model.Permanent {
			m.log.Info().Err(err).Msg("session refresh rejected, signing out")
			m.setSession(nil, SignedOut)
		}
		return nil, err
	}
	m.setSession(refreshed, TokenRefreshed)
	return refreshed, nil
}

// RequireSession is GetSession that fails with an AuthError when signed out.
func (m *Manager) RequireSession(ctx context.Context) (*auth.Session, error) {
	s, err := m.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &model.AuthError{Op: "session", Err: model.ErrUnauthenticated}
	}
	return s, nil
}

// OnAuthStateChange registers fn for sign-in state transitions and returns a
// function that removes it. Listeners run synchronously on the goroutine
// that caused the transition.
func (m *Manager) OnAuthStateChange(fn func(AuthEvent, *auth.Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// UpdateUser changes identity fields and mirrors them into the profile row.
func (m *Manager) UpdateUser(ctx context.Context, attrs auth.UserAttributes) (*model.User, error) {
	s, err := m.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	u, err := m.api.UpdateUser(ctx, s.AccessToken, attrs)
	if err != nil {
		return nil, err
	}
	m.syncProfile(ctx, *u)

	next := *s
	next.User = *u
	m.setSession(&next, UserUpdated)
	return u, nil
}

// UpdateUserSettings saves a settings change for the signed-in user.
func (m *Manager) UpdateUserSettings(ctx context.Context, patch model.SettingsPatch) (*model.UserSettings, error) {
	s, err := m.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return m.prefs.UpdateSettings(ctx, s.User.ID, patch)
}

// GetUserProfileAndSettings loads the signed-in user's profile and settings.
func (m *Manager) GetUserProfileAndSettings(ctx context.Context) (*model.Profile, *model.UserSettings, error) {
	s, err := m.RequireSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return m.prefs.Get(ctx, s.User.ID)
}

// UserID returns the signed-in user's id, or "" when signed out.
func (m *Manager) UserID(ctx context.Context) string {
	s, err := m.GetSession(ctx)
	if err != nil || s == nil {
		return ""
	}
	return s.User.ID
}

func (m *Manager) syncProfile(ctx context.Context, u model.User) {
	if m.prefs == nil {
		return
	}
	if _, err := m.prefs.SyncProfile(ctx, u); err != nil {
		m.log.Warn().Err(err).Str("user_id", u.ID).Msg("profile sync failed")
	}
}

func (m *Manager) loadCurrent() (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		s, err := m.persist.Load()
		if err != nil {
			return nil, &model.AuthError{Op: "loadSession", Err: err}
		}
		m.current = s
		m.loaded = true
	}
	if m.current == nil {
		return nil, nil
	}
	cp := *m.current
	return &cp, nil
}

func (m *Manager) setSession(s *auth.Session, ev AuthEvent) {
	m.mu.Lock()
	m.current = s
	m.loaded = true
	var err error
	if s == nil {
		err = m.persist.Clear()
	} else {
		err = m.persist.Save(s)
	}
	fns := make([]func(AuthEvent, *auth.Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn().Err(err).Msg("session persistence failed")
	}
	for _, fn := range fns {
		var cp *auth.Session
		if s != nil {
			c := *s
			cp = &c
		}
		fn(ev, cp)
	}
}
