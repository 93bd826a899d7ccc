// Package client is a Go SDK for the diary HTTP API.
//
// A Client is safe for concurrent use. Requests carry the bearer token
// returned by the configured TokenSource; LogIn and SignUp do not need one.
//
//	c, err := client.New("http://localhost:8080", client.WithToken(accessToken))
//	if err != nil { ... }
//	items, err := c.ListItems(ctx)
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 60 * time.Second

// TokenSource supplies the access token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a fixed access token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to one diary service.
type Client struct {
	baseURL string
	http    *http.Client
	rest    *resty.Client
	tokens  TokenSource
	// retries bounds extra attempts for idempotent requests.
	retries uint64

	closed uint32
}

// New constructs a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		retries: 2,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.rest = resty.NewWithClient(c.http).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	return c, nil
}

// Close releases idle connections. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		return nil
	}
	c.http.CloseIdleConnections()
	return nil
}

// call describes one API request.
type call struct {
	op     string
	method string
	path   string
	body   any
	// anonymous calls do not send a bearer token.
	anonymous bool
	// want is the success status; any 2xx is accepted when zero.
	want int
	out  any
}

// do executes c and decodes the JSON answer into c.out. GET requests are
// retried on transport errors and 5xx answers.
func (cl *Client) do(ctx context.Context, c call) error {
	if atomic.LoadUint32(&cl.closed) == 1 {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	attempt := func() error {
		req := cl.rest.R().SetContext(ctx)
		if !c.anonymous {
			if err := cl.authorize(ctx, req); err != nil {
				return backoff.Permanent(err)
			}
		}
		if c.body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(c.body)
		}
		if c.out != nil {
			req.SetResult(c.out)
		}
		resp, err := req.Execute(c.method, c.path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if resp.IsError() || (c.want != 0 && resp.StatusCode() != c.want) {
			apiErr := newAPIError(c.op, resp.StatusCode(), resp.Body())
			if resp.StatusCode() >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		return nil
	}

	var err error
	if c.method == http.MethodGet && cl.retries > 0 {
		b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), cl.retries), ctx)
		err = backoff.Retry(attempt, b)
	} else {
		err = attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}
	observe(c.op, start, err)
	return err
}

func (cl *Client) authorize(ctx context.Context, req *resty.Request) error {
	if cl.tokens == nil {
		return ErrNoToken
	}
	tok, err := cl.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if tok == "" {
		return ErrNoToken
	}
	req.SetAuthToken(tok)
	return nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}
