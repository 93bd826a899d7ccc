package client

import (
	"context"
	"sync"
	"time"
)

// refreshSkew refreshes a session this long before its access token expires.
const refreshSkew = 30 * time.Second

// SessionTokens is a TokenSource backed by a session that is refreshed
// through the service when its access token is about to expire.
type SessionTokens struct {
	refresh func(ctx context.Context, refreshToken string) (*Session, error)

	mu sync.Mutex
	s  Session
}

// UseSession authenticates subsequent calls with s, refreshing it as needed.
// Call it before sharing the Client between goroutines.
func (c *Client) UseSession(s *Session) *SessionTokens {
	ts := &SessionTokens{refresh: c.Refresh, s: *s}
	c.tokens = ts
	return ts
}

// Token implements TokenSource.
func (t *SessionTokens) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s.Expired(time.Now(), refreshSkew) && t.s.RefreshToken != "" {
		next, err := t.refresh(ctx, t.s.RefreshToken)
		if err != nil {
			return "", err
		}
		// refresh answers may omit the user
		if next.User.ID == "" {
			next.User = t.s.User
		}
		t.s = *next
	}
	return t.s.AccessToken, nil
}

// Session returns the current session, including any refreshed tokens.
func (t *SessionTokens) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
