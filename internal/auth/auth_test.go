package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thekoushikdurgas/diary/internal/model"
)

const userJSON = `{"id":"u-1","email":"ada@example.com","created_at":"2024-01-02T03:04:05Z","user_metadata":{"full_name":"Ada"}}`

func sessionJSON(access string) string {
	return `{"access_token":"` + access + `","refresh_token":"r-1","token_type":"bearer","expires_in":3600,"expires_at":1900000000,"user":` + userJSON + `}`
}

func newFakeAuth(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, APIKey: "anon"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestLogIn(t *testing.T) {
	c := newFakeAuth(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(sessionJSON("a-1")))
	})

	s, err := c.LogIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a-1", s.AccessToken)
	assert.Equal(t, "r-1", s.RefreshToken)
	assert.Equal(t, "u-1", s.User.ID)
	assert.Equal(t, "Ada", s.User.FullName)
	assert.Equal(t, int64(1900000000), s.ExpiresAt)

	_, err = c.LogIn(context.Background(), "ada@example.com", "wrong")
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUp_WithAndWithoutSession(t *testing.T) {
	autoConfirm := true
	c := newFakeAuth(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body["data"].(map[string]any)["full_name"])
		if autoConfirm {
			_, _ = w.Write([]byte(sessionJSON("a-1")))
			return
		}
		_, _ = w.Write([]byte(userJSON))
	})

	res, err := c.SignUp(context.Background(), "ada@example.com", "secret", "Ada")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "u-1", res.User.ID)

	autoConfirm = false
	res, err = c.SignUp(context.Background(), "ada@example.com", "secret", "Ada")
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.Equal(t, "ada@example.com", res.User.Email)
}

func TestBearerEndpoints(t *testing.T) {
	c := newFakeAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		switch {
		case r.URL.Path == "/logout":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/user" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(userJSON))
		case r.URL.Path == "/user" && r.Method == http.MethodPut:
			_, _ = w.Write([]byte(`{"id":"u-1","email":"new@example.com","user_metadata":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	u, err := c.GetUser(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FullName)

	email := "new@example.com"
	u, err = c.UpdateUser(ctx, "a-1", UserAttributes{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)

	_, err = c.UpdateUser(ctx, "a-1", UserAttributes{})
	assert.True(t, errors.Is(err, model.ErrValidation))

	require.NoError(t, c.LogOut(ctx, "a-1"))

	_, err = c.GetUser(ctx, "bad")
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid JWT")
}

func TestRecoverAndRefresh(t *testing.T) {
	c := newFakeAuth(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recover":
			_, _ = w.Write([]byte(`{}`))
		case "/token":
			assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			_, _ = w.Write([]byte(sessionJSON("a-2")))
		}
	})
	ctx := context.Background()

	require.NoError(t, c.Recover(ctx, "ada@example.com"))
	assert.True(t, errors.Is(c.Recover(ctx, " "), model.ErrValidation))

	s, err := c.Refresh(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "a-2", s.AccessToken)

	_, err = c.Refresh(ctx, "")
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestSession_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	s := &Session{ExpiresAt: 1030}
	assert.False(t, s.Expired(now, 0))
	assert.True(t, s.Expired(now, time.Minute))
	assert.False(t, (&Session{}).Expired(now, time.Minute))
}

func TestVerifier(t *testing.T) {
	v, err := NewVerifier("super-secret", "authenticated")
	require.NoError(t, err)

	tok, err := v.SignForTesting("u-1", "ada@example.com", time.Minute)
	require.NoError(t, err)
	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "ada@example.com", claims.Email)

	expired, err := v.SignForTesting("u-1", "", -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other, _ := NewVerifier("other-secret", "authenticated")
	forged, err := other.SignForTesting("u-1", "", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(time.Minute).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = NewVerifier("", "")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestExtractBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractBearer(r)
	assert.True(t, errors.Is(err, ErrMissingToken))

	r.Header.Set("Authorization", "Basic abc")
	_, err = ExtractBearer(r)
	assert.True(t, errors.Is(err, ErrMissingToken))

	r.Header.Set("Authorization", "Bearer tok")
	tok, err := ExtractBearer(r)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	ctx := WithPrincipal(context.Background(), &Principal{UserID: "u-1"})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", p.UserID)
	_, ok = PrincipalFrom(context.Background())
	assert.False(t, ok)
}
