package store

import (
	"context"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
// Missing rows are reported as model.ErrNotFound.
type Store interface {
	Items() Items
	Profiles() Profiles
	Settings() Settings
	Close() error
}

// Items persists content items. Every call is scoped to one user.
type Items interface {
	// List returns the user's items, newest first.
	List(ctx context.Context, userID string) ([]*model.ContentItem, error)
	Get(ctx context.Context, userID, id string) (*model.ContentItem, error)
	// Create assigns the id and creation time.
	Create(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error)
	Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error)
	Delete(ctx context.Context, userID, id string) error
}

type Profiles interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

type Settings interface {
	Get(ctx context.Context, userID string) (*model.UserSettings, error)
	Upsert(ctx context.Context, s *model.UserSettings) (*model.UserSettings, error)
}
