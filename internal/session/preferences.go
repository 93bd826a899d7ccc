package session

import (
	"context"
	"time"

	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
)

// Preferences reads and writes the profile and settings rows of a user. It
// holds no session state, so the HTTP API shares it across requests.
type Preferences struct {
	profiles store.Profiles
	settings store.Settings
}

// NewPreferences returns a Preferences over the given tables.
func NewPreferences(profiles store.Profiles, settings store.Settings) *Preferences {
	return &Preferences{profiles: profiles, settings: settings}
}

// Get returns the profile and settings. A missing settings row yields
// defaults; a missing profile row is a StoreError wrapping ErrNotFound.
func (p *Preferences) Get(ctx context.Context, userID string) (*model.Profile, *model.UserSettings, error) {
	if userID == "" {
		return nil, nil, &model.StoreError{Op: "getProfile", Err: model.ErrUnauthenticated}
	}
	prof, err := p.profiles.Get(ctx, userID)
	if err != nil {
		return nil, nil, model.NewStoreError("getProfile", err)
	}
	settings, err := p.Settings(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return prof, settings, nil
}

// Settings returns the user's settings, or defaults when none were saved.
// It does not need a profile row.
func (p *Preferences) Settings(ctx context.Context, userID string) (*model.UserSettings, error) {
	if userID == "" {
		return nil, &model.StoreError{Op: "getSettings", Err: model.ErrUnauthenticated}
	}
	settings, err := p.settings.Get(ctx, userID)
	switch {
	case model.IsNotFound(err):
		return model.DefaultSettings(userID), nil
	case err != nil:
		return nil, model.NewStoreError("getSettings", err)
	}
	return settings, nil
}

// UpdateSettings applies patch on top of the stored (or default) settings.
func (p *Preferences) UpdateSettings(ctx context.Context, userID string, patch model.SettingsPatch) (*model.UserSettings, error) {
	if userID == "" {
		return nil, &model.StoreError{Op: "updateSettings", Err: model.ErrUnauthenticated}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	cur, err := p.settings.Get(ctx, userID)
	switch {
	case model.IsNotFound(err):
		cur = model.DefaultSettings(userID)
	case err != nil:
		return nil, model.NewStoreError("updateSettings", err)
	}
	next := patch.Apply(*cur)
	next.UserID = userID
	next.UpdatedAt = time.Now().UTC()
	out, err := p.settings.Upsert(ctx, &next)
	if err != nil {
		return nil, model.NewStoreError("updateSettings", err)
	}
	return out, nil
}

// SyncProfile writes the identity fields of u into the profile row, creating
// it on first sign-in. Avatar and creation time are preserved.
func (p *Preferences) SyncProfile(ctx context.Context, u model.User) (*model.Profile, error) {
	if u.ID == "" {
		return nil, &model.StoreError{Op: "syncProfile", Err: model.ErrUnauthenticated}
	}
	prof, err := p.profiles.Get(ctx, u.ID)
	switch {
	case model.IsNotFound(err):
		prof = &model.Profile{ID: u.ID, CreatedAt: time.Now().UTC()}
	case err != nil:
		return nil, model.NewStoreError("syncProfile", err)
	}
	if u.Email != "" {
		prof.Email = u.Email
	}
	if u.FullName != "" {
		prof.FullName = u.FullName
	}
	prof.UpdatedAt = time.Now().UTC()
	out, err := p.profiles.Upsert(ctx, prof)
	if err != nil {
		return nil, model.NewStoreError("syncProfile", err)
	}
	return out, nil
}
