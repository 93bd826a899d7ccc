package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// Authenticator turns a bearer token into the calling Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// JWTAuthenticator checks tokens locally with the shared JWT secret.
type JWTAuthenticator struct {
	verifier *Verifier
}

// NewJWTAuthenticator returns an authenticator backed by v.
func NewJWTAuthenticator(v *Verifier) *JWTAuthenticator {
	return &JWTAuthenticator{verifier: v}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: claims.UserID(), Email: claims.Email, AccessToken: token}, nil
}

// RemoteAuthenticator asks the auth service who the token belongs to. Used
// when no JWT secret is configured; every request costs one round trip.
type RemoteAuthenticator struct {
	client *Client
}

// NewRemoteAuthenticator returns an authenticator backed by c.
func NewRemoteAuthenticator(c *Client) *RemoteAuthenticator {
	return &RemoteAuthenticator{client: c}
}

func (a *RemoteAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	u, err := a.client.GetUser(ctx, token)
	if err != nil {
		var ae *model.AuthError
		if errors.As(err, &ae) && ae.StatusCode >= 400 && ae.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return nil, err
	}
	return &Principal{UserID: u.ID, Email: u.Email, AccessToken: token}, nil
}

// compile-time checks
var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ Authenticator = (*RemoteAuthenticator)(nil)
)
