package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/client"
	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/mcp/handlers"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
	"github.com/thekoushikdurgas/diary/internal/session"
)

// remoteLibrary serves the tools from a running diary service. The bearer
// token decides whose items are touched, so userID is not sent.
type remoteLibrary struct {
	c *client.Client
}

var _ handlers.Library = (*remoteLibrary)(nil)

// NewRemoteLibrary adapts an API client to the tool handlers.
func NewRemoteLibrary(c *client.Client) handlers.Library {
	return &remoteLibrary{c: c}
}

func (r *remoteLibrary) AddItem(ctx context.Context, _ string, d model.Draft) (*model.ContentItem, error) {
	it, err := r.c.CreateItem(ctx, d)
	if err != nil {
		return nil, err
	}
	return &it.ContentItem, nil
}

func (r *remoteLibrary) List(ctx context.Context, _ string) ([]model.ContentItem, error) {
	items, err := r.c.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ContentItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.ContentItem)
	}
	return out, nil
}

func (r *remoteLibrary) Get(ctx context.Context, _, id string) (*model.ContentItem, error) {
	it, err := r.c.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &it.ContentItem, nil
}

func (r *remoteLibrary) SummarizeItem(ctx context.Context, _, id string) (*model.ContentItem, error) {
	it, err := r.c.Summarize(ctx, id)
	if err != nil {
		return nil, err
	}
	return &it.ContentItem, nil
}

func (r *remoteLibrary) Organize(ctx context.Context, _ string, ids ...string) ([]ai.OrganizedItem, error) {
	return r.c.Organize(ctx, ids...)
}

func (r *remoteLibrary) Chat(ctx context.Context, _ string, in services.ChatInput) (*ai.ChatReply, error) {
	return r.c.Chat(ctx, in)
}

// connectRemote signs in to the service at settings.ServiceURL, with the
// configured credentials or the session saved by diaryctl login.
func connectRemote(ctx context.Context, settings *Settings, persist session.Persister, l zerolog.Logger) (handlers.Library, handlers.CurrentUser, error) {
	c, err := client.New(settings.ServiceURL, client.WithHTTPTimeout(settings.ServiceTimeout))
	if err != nil {
		return nil, nil, err
	}

	var s *client.Session
	if settings.Email != "" {
		if s, err = c.LogIn(ctx, settings.Email, settings.Password); err != nil {
			l.Error().Err(err).Str("email", settings.Email).Msg("login failed")
			return nil, nil, err
		}
	} else if s, err = persist.Load(); err != nil || s == nil {
		if err == nil {
			err = errors.New("no saved session")
		}
		return nil, nil, fmt.Errorf("no session: set DIARY_MCP_EMAIL/DIARY_MCP_PASSWORD or run diaryctl login: %w", err)
	}

	tokens := c.UseSession(s)
	l.Info().Str("service", settings.ServiceURL).Str("user_id", s.User.ID).Msg("signed in to remote diary")

	user := func(ctx context.Context) (string, error) {
		if _, err := tokens.Token(ctx); err != nil {
			return "", &model.AuthError{Op: "session", Err: err}
		}
		return tokens.Session().User.ID, nil
	}
	return NewRemoteLibrary(c), user, nil
}
