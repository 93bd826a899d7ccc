package ai

import (
	"context"
	"sync"
)

// Gateway is the full set of model capabilities. Both *Client and *Lazy
// implement it.
type Gateway interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
	EditImage(ctx context.Context, data []byte, mimeType, prompt string) (*Image, error)
	GenerateImage(ctx context.Context, prompt string, ratio AspectRatio) (*Image, error)
	TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error)
	SummarizeContent(ctx context.Context, text string, kind SummaryKind) (string, error)
	CategorizeAndTag(ctx context.Context, in CategorizeInput) (*Categorization, error)
	OrganizeContent(ctx context.Context, items []OrganizeInput) ([]OrganizedItem, error)
	ChatResponse(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*Lazy)(nil)
)

// Lazy builds the Client on first use and reuses it. When construction
// fails (no API key) every call returns that same error, so a process can
// start without AI credentials and only AI features fail.
type Lazy struct {
	cfg  Config
	opts []Option

	once   sync.Once
	client *Client
	err    error
}

// NewLazy defers New(cfg, opts...) until the first call.
func NewLazy(cfg Config, opts ...Option) *Lazy {
	return &Lazy{cfg: cfg, opts: opts}
}

// Client returns the shared client, constructing it on first call.
func (l *Lazy) Client() (*Client, error) {
	l.once.Do(func() {
		l.client, l.err = New(l.cfg, l.opts...)
	})
	return l.client, l.err
}

// HealthPing reports construction errors and otherwise pings the API.
func (l *Lazy) HealthPing(ctx context.Context) error {
	c, err := l.Client()
	if err != nil {
		return err
	}
	return c.HealthPing(ctx)
}

func (l *Lazy) AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	c, err := l.Client()
	if err != nil {
		return "", err
	}
	return c.AnalyzeImage(ctx, data, mimeType, prompt)
}

func (l *Lazy) EditImage(ctx context.Context, data []byte, mimeType, prompt string) (*Image, error) {
	c, err := l.Client()
	if err != nil {
		return nil, err
	}
	return c.EditImage(ctx, data, mimeType, prompt)
}

func (l *Lazy) GenerateImage(ctx context.Context, prompt string, ratio AspectRatio) (*Image, error) {
	c, err := l.Client()
	if err != nil {
		return nil, err
	}
	return c.GenerateImage(ctx, prompt, ratio)
}

func (l *Lazy) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	c, err := l.Client()
	if err != nil {
		return "", err
	}
	return c.TranscribeAudio(ctx, data, mimeType)
}

func (l *Lazy) SummarizeContent(ctx context.Context, text string, kind SummaryKind) (string, error) {
	c, err := l.Client()
	if err != nil {
		return "", err
	}
	return c.SummarizeContent(ctx, text, kind)
}

func (l *Lazy) CategorizeAndTag(ctx context.Context, in CategorizeInput) (*Categorization, error) {
	c, err := l.Client()
	if err != nil {
		return nil, err
	}
	return c.CategorizeAndTag(ctx, in)
}

func (l *Lazy) OrganizeContent(ctx context.Context, items []OrganizeInput) ([]OrganizedItem, error) {
	c, err := l.Client()
	if err != nil {
		return nil, err
	}
	return c.OrganizeContent(ctx, items)
}

func (l *Lazy) ChatResponse(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	c, err := l.Client()
	if err != nil {
		return nil, err
	}
	return c.ChatResponse(ctx, req)
}
