package client

import (
	"fmt"
	"time"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout.
//
// Prefer per-request context deadlines where possible; this bounds the total
// time of a single request. The event stream is not subject to it. The value
// must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithToken authenticates every request with a fixed access token.
func WithToken(accessToken string) Option {
	return func(c *Client) error {
		if accessToken == "" {
			return fmt.Errorf("access token cannot be empty")
		}
		c.tokens = StaticToken(accessToken)
		return nil
	}
}

// WithTokenSource asks ts for the access token before every request, so a
// refreshing session can be plugged in.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) error {
		if ts == nil {
			return fmt.Errorf("token source cannot be nil")
		}
		c.tokens = ts
		return nil
	}
}

// WithRetries sets how many times a failed GET is retried. Zero disables
// retries.
func WithRetries(n uint64) Option {
	return func(c *Client) error {
		c.retries = n
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// logged when enabled is true. Do not enable this in production: bodies
// include tokens and media payloads.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			if _, ok := c.http.Transport.(*debugTransport); !ok {
				c.http.Transport = &debugTransport{base: c.http.Transport}
			}
		}
		return nil
	}
}
