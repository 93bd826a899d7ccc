package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims the service issues.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// Verifier validates HS256 access tokens signed with the project's JWT secret.
type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewVerifier returns a verifier. audience may be empty to skip the check.
func NewVerifier(secret, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret: %w", ErrNotConfigured)
	}
	return &Verifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second}, nil
}

// Verify parses tokenStr and checks signature, expiry and audience.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token subject is required", ErrInvalidToken)
	}
	return claims, nil
}

// SignForTesting issues a token the verifier accepts. Used by tests and the
// local development stack.
func (v *Verifier) SignForTesting(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id required")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
		Role:  "authenticated",
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
