// Package ai is the gateway to the hosted generative model (Gemini REST API).
//
// Every call is a stateless request/response: a typed request becomes one
// HTTP call and the reply becomes a typed result or an *model.AIError.
// Structured replies are validated against a JSON Schema before decoding.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/model"
)

var (
	// ErrMissingAPIKey is returned by New (and by every Lazy call) when no
	// API key is configured.
	ErrMissingAPIKey = errors.New("gemini API key is not configured")
	// ErrNoImage means the model replied without an image payload.
	ErrNoImage = errors.New("model returned no image")
	// ErrEmptyResponse means the model replied without any text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrMalformedResponse means structured output failed schema validation.
	ErrMalformedResponse = errors.New("malformed structured response")
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config selects endpoint, credentials and model variants.
type Config struct {
	APIKey  string
	BaseURL string
	// ModelFast serves analysis, transcription, summaries, tagging and chat.
	ModelFast string
	// ModelDeep serves chat with DeepThought enabled.
	ModelDeep      string
	ModelImageEdit string
	ModelImageGen  string
	// ThinkingBudget is the reasoning token budget for deep-thought chat.
	ThinkingBudget int
	Timeout        time.Duration
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ModelFast == "" {
		c.ModelFast = "gemini-2.5-flash"
	}
	if c.ModelDeep == "" {
		c.ModelDeep = "gemini-2.5-pro"
	}
	if c.ModelImageEdit == "" {
		c.ModelImageEdit = "gemini-2.5-flash-image"
	}
	if c.ModelImageGen == "" {
		c.ModelImageGen = "imagen-4.0-generate-001"
	}
	if c.ThinkingBudget == 0 {
		c.ThinkingBudget = 32768
	}
	if c.Timeout == 0 {
		c.Timeout = 90 * time.Second
	}
}

// Client talks to the Gemini REST API. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *resty.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// New builds a client. It fails with ErrMissingAPIKey when cfg has no key.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &model.AIError{Op: "init", Err: ErrMissingAPIKey}
	}
	cfg.withDefaults()

	c := &Client{cfg: cfg, http: resty.New(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetTimeout(cfg.Timeout)
	return c, nil
}

// HealthPing checks that the key is accepted by fetching the fast model's
// metadata.
func (c *Client) HealthPing(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/models/" + c.cfg.ModelFast)
	if err != nil {
		return &model.AIError{Op: "ping", Err: err}
	}
	if resp.IsError() {
		return &model.AIError{Op: "ping", StatusCode: resp.StatusCode(), Err: decodeAPIError(resp.Body())}
	}
	return nil
}

// generate posts a generateContent request and returns the first candidate.
func (c *Client) generate(ctx context.Context, op, modelName string, req *generateRequest) (*candidate, error) {
	start := time.Now()
	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/models/" + modelName + ":generateContent")
	if err != nil {
		observe(op, modelName, "transport_error", start)
		return nil, &model.AIError{Op: op, Err: err}
	}
	if resp.IsError() {
		observe(op, modelName, fmt.Sprintf("%d", resp.StatusCode()), start)
		apiErr := decodeAPIError(resp.Body())
		c.log.Warn().Str("op", op).Str("model", modelName).Int("status", resp.StatusCode()).Err(apiErr).Msg("gemini request failed")
		return nil, &model.AIError{Op: op, StatusCode: resp.StatusCode(), Err: apiErr}
	}
	observe(op, modelName, "ok", start)

	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &model.AIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, &model.AIError{Op: op, Err: fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)}
	}
	if len(out.Candidates) == 0 {
		return nil, &model.AIError{Op: op, Err: ErrEmptyResponse}
	}
	return &out.Candidates[0], nil
}

// generateText runs generate and joins the text parts of the reply.
func (c *Client) generateText(ctx context.Context, op, modelName string, req *generateRequest) (string, *candidate, error) {
	cand, err := c.generate(ctx, op, modelName, req)
	if err != nil {
		return "", nil, err
	}
	text := strings.TrimSpace(cand.text())
	if text == "" {
		return "", nil, &model.AIError{Op: op, Err: ErrEmptyResponse}
	}
	return text, cand, nil
}

// generateJSON runs a structured-output request, validates the reply against
// schema and decodes it into dst.
func (c *Client) generateJSON(ctx context.Context, op, modelName string, req *generateRequest, schema *structuredSchema, dst any) error {
	req.GenerationConfig = &generationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.response,
	}
	text, _, err := c.generateText(ctx, op, modelName, req)
	if err != nil {
		return err
	}
	raw := []byte(stripCodeFence(text))
	if err := schema.validate(raw); err != nil {
		c.log.Warn().Str("op", op).Err(err).Msg("structured response rejected")
		return &model.AIError{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &model.AIError{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// predict posts an Imagen :predict request.
func (c *Client) predict(ctx context.Context, op, modelName string, req *predictRequest) (*predictResponse, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/models/" + modelName + ":predict")
	if err != nil {
		observe(op, modelName, "transport_error", start)
		return nil, &model.AIError{Op: op, Err: err}
	}
	if resp.IsError() {
		observe(op, modelName, fmt.Sprintf("%d", resp.StatusCode()), start)
		return nil, &model.AIError{Op: op, StatusCode: resp.StatusCode(), Err: decodeAPIError(resp.Body())}
	}
	observe(op, modelName, "ok", start)

	var out predictResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &model.AIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

func decodeAPIError(body []byte) error {
	var env apiErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		if env.Error.Status != "" {
			return fmt.Errorf("%s: %s", env.Error.Status, env.Error.Message)
		}
		return errors.New(env.Error.Message)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty error body"
	}
	return errors.New(msg)
}

// stripCodeFence removes a ```json ... ``` wrapper some models add even in
// JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
