// Package content is the gateway between callers and the row store for
// content items: CRUD scoped to the authenticated user plus live snapshots.
package content

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
)

// ErrBatchFailed hides per-row detail when any row of a batch fails.
var ErrBatchFailed = errors.New("one or more rows failed to update")

// Offloader moves large binary payloads out of the row before insert.
type Offloader interface {
	Offload(ctx context.Context, userID string, d model.Draft) (model.Draft, error)
}

// Gateway wraps store.Items with validation, error mapping and subscriptions.
type Gateway struct {
	items     store.Items
	changes   events.Source
	offloader Offloader
	log       zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithOffloader enables moving large payloads to object storage on create.
func WithOffloader(o Offloader) Option {
	return func(g *Gateway) { g.offloader = o }
}

// New returns a gateway over items; changes feeds subscriptions.
func New(items store.Items, changes events.Source, log zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{items: items, changes: changes, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func requireUser(op, userID string) error {
	if userID == "" {
		return &model.StoreError{Op: op, Err: model.ErrUnauthenticated}
	}
	return nil
}

// FetchAll returns the user's items, newest first.
func (g *Gateway) FetchAll(ctx context.Context, userID string) ([]model.ContentItem, error) {
	if err := requireUser("fetchAll", userID); err != nil {
		return nil, err
	}
	rows, err := g.items.List(ctx, userID)
	if err != nil {
		return nil, model.NewStoreError("fetchAll", err)
	}
	out := make([]model.ContentItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

// Get returns one item.
func (g *Gateway) Get(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	if err := requireUser("get", userID); err != nil {
		return nil, err
	}
	it, err := g.items.Get(ctx, userID, id)
	if err != nil {
		return nil, model.NewStoreError("get", err)
	}
	return it, nil
}

// Create validates and persists a draft. The store assigns id and createdAt.
func (g *Gateway) Create(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error) {
	if err := requireUser("create", userID); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.Tags = model.NormalizeTags(d.Tags)
	if g.offloader != nil {
		var err error
		if d, err = g.offloader.Offload(ctx, userID, d); err != nil {
			return nil, model.NewStoreError("create", err)
		}
	}
	it, err := g.items.Create(ctx, userID, d)
	if err != nil {
		return nil, model.NewStoreError("create", err)
	}
	g.log.Debug().Str("user_id", userID).Str("item_id", it.ID).Str("type", string(it.Type)).Msg("item created")
	return it, nil
}

// Update changes only the supplied fields.
func (g *Gateway) Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error) {
	if err := requireUser("update", userID); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.MimeType != nil {
		cur, err := g.items.Get(ctx, userID, id)
		if err != nil {
			return nil, model.NewStoreError("update", err)
		}
		if !cur.Type.IsBinary() {
			return nil, model.NewValidationError("mimeType", "mimeType is only allowed on binary items")
		}
	}
	it, err := g.items.Update(ctx, userID, id, p)
	if err != nil {
		return nil, model.NewStoreError("update", err)
	}
	return it, nil
}

// BatchUpdate applies each update independently; there is no transaction.
// Rows that succeed stay updated even when others fail, and any failure is
// reported as a single StoreError without per-row detail.
func (g *Gateway) BatchUpdate(ctx context.Context, userID string, updates []model.ItemUpdate) error {
	if err := requireUser("batchUpdate", userID); err != nil {
		return err
	}
	failed := 0
	for _, u := range updates {
		p := u.Patch
		if err := p.Validate(); err != nil {
			failed++
			g.log.Warn().Err(err).Str("item_id", u.ID).Msg("batch update row rejected")
			continue
		}
		if _, err := g.items.Update(ctx, userID, u.ID, p); err != nil {
			failed++
			g.log.Warn().Err(err).Str("item_id", u.ID).Msg("batch update row failed")
		}
	}
	if failed > 0 {
		return &model.StoreError{Op: "batchUpdate", Err: ErrBatchFailed}
	}
	return nil
}

// Delete removes an item.
func (g *Gateway) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser("delete", userID); err != nil {
		return err
	}
	if err := g.items.Delete(ctx, userID, id); err != nil {
		return model.NewStoreError("delete", err)
	}
	return nil
}
