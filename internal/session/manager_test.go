package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store/sqlite"
)

type fakeAuth struct {
	mu         sync.Mutex
	refreshes  int
	refreshErr error
	logouts    []string
	expiresAt  int64
}

func (f *fakeAuth) session(access string) *auth.Session {
	return &auth.Session{
		AccessToken:  access,
		RefreshToken: "r-" + access,
		ExpiresAt:    f.expiresAt,
		User:         model.User{ID: "u-1", Email: "ada@example.com", FullName: "Ada"},
	}
}

func (f *fakeAuth) SignUp(_ context.Context, email, _, fullName string) (*auth.SignUpResult, error) {
	s := f.session("a-signup")
	s.User.Email, s.User.FullName = email, fullName
	return &auth.SignUpResult{User: s.User, Session: s}, nil
}

func (f *fakeAuth) LogIn(_ context.Context, _, password string) (*auth.Session, error) {
	if password != "secret" {
		return nil, &model.AuthError{Op: "logIn", StatusCode: http.StatusBadRequest, Err: auth.ErrRejected}
	}
	return f.session("a-1"), nil
}

func (f *fakeAuth) Refresh(_ context.Context, _ string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	s := f.session("a-refreshed")
	s.ExpiresAt = time.Now().Add(time.Hour).Unix()
	return s, nil
}

func (f *fakeAuth) LogOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, token)
	return nil
}

func (f *fakeAuth) Recover(context.Context, string) error { return nil }

func (f *fakeAuth) UpdateUser(_ context.Context, _ string, attrs auth.UserAttributes) (*model.User, error) {
	u := model.User{ID: "u-1", Email: "ada@example.com"}
	if attrs.FullName != nil {
		u.FullName = *attrs.FullName
	}
	return &u, nil
}

func newManager(t *testing.T, api AuthAPI, persist Persister) (*Manager, *Preferences) {
	t.Helper()
	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "diary.db"), nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	prefs := NewPreferences(st.Profiles(), st.Settings())
	return NewManager(api, prefs, persist, zerolog.Nop()), prefs
}

func TestLogIn_SignsInAndCreatesProfile(t *testing.T) {
	m, _ := newManager(t, &fakeAuth{}, nil)
	ctx := context.Background()

	var events []AuthEvent
	unsub := m.OnAuthStateChange(func(ev AuthEvent, _ *auth.Session) { events = append(events, ev) })

	_, err := m.LogIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	prof, settings, err := m.GetUserProfileAndSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", prof.FullName)
	assert.Equal(t, model.DefaultSettings("u-1").Theme, settings.Theme)
	assert.True(t, settings.ShowAIPending)

	require.NoError(t, m.LogOut(ctx))
	unsub()
	unsub()
	_, err = m.LogIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, []AuthEvent{SignedIn, SignedOut}, events)
}

func TestLogIn_Rejected(t *testing.T) {
	m, _ := newManager(t, &fakeAuth{}, nil)

	_, err := m.LogIn(context.Background(), "ada@example.com", "nope")
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))

	_, err = m.LogIn(context.Background(), "not-an-email", "secret")
	assert.True(t, errors.Is(err, model.ErrValidation))

	s, err := m.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestGetSession_RefreshesExpired(t *testing.T) {
	api := &fakeAuth{expiresAt: time.Now().Add(-time.Minute).Unix()}
	m, _ := newManager(t, api, nil)
	ctx := context.Background()

	var got []AuthEvent
	m.OnAuthStateChange(func(ev AuthEvent, _ *auth.Session) { got = append(got, ev) })

	_, err := m.LogIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	s, err := m.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a-refreshed", s.AccessToken)
	assert.Equal(t, 1, api.refreshes)

	s, err = m.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a-refreshed", s.AccessToken)
	assert.Equal(t, 1, api.refreshes)
	assert.Equal(t, []AuthEvent{SignedIn, TokenRefreshed}, got)
}

func TestGetSession_RejectedRefreshSignsOut(t *testing.T) {
	api := &fakeAuth{
		expiresAt:  time.Now().Add(-time.Minute).Unix(),
		refreshErr: &model.AuthError{Op: "refresh", StatusCode: http.StatusBadRequest, Err: auth.ErrRejected},
	}
	m, _ := newManager(t, api, nil)
	ctx := context.Background()

	_, err := m.LogIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	_, err = m.GetSession(ctx)
	require.Error(t, err)
	s, err := m.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = m.RequireSession(ctx)
	assert.True(t, errors.Is(err, model.ErrUnauthenticated))
}

func TestSettingsAndProfile(t *testing.T) {
	m, prefs := newManager(t, &fakeAuth{}, nil)
	ctx := context.Background()

	_, err := m.UpdateUserSettings(ctx, model.SettingsPatch{Theme: model.Ptr(model.ThemeDark)})
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))

	_, err = m.LogIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	s, err := m.UpdateUserSettings(ctx, model.SettingsPatch{Theme: model.Ptr(model.ThemeDark)})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, s.Theme)
	assert.Equal(t, model.ViewFeed, s.DefaultView)

	_, err = m.UpdateUserSettings(ctx, model.SettingsPatch{Theme: model.Ptr("neon")})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = m.UpdateUser(ctx, auth.UserAttributes{FullName: model.Ptr("Ada L.")})
	require.NoError(t, err)
	prof, settings, err := m.GetUserProfileAndSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", prof.FullName)
	assert.Equal(t, model.ThemeDark, settings.Theme)

	_, _, err = prefs.Get(ctx, "ghost")
	var se *model.StoreError
	require.True(t, errors.As(err, &se))
	assert.True(t, model.IsNotFound(err))
}

func TestFileStore_PersistsAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diary", "session.json")
	api := &fakeAuth{expiresAt: time.Now().Add(time.Hour).Unix()}

	m1, _ := newManager(t, api, NewFileStore(path))
	_, err := m1.LogIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	m2, _ := newManager(t, api, NewFileStore(path))
	s, err := m2.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "a-1", s.AccessToken)

	require.NoError(t, m2.LogOut(context.Background()))
	assert.Equal(t, []string{"a-1"}, api.logouts)

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
