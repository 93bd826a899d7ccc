package model

import "time"

// User is the authenticated identity returned by the auth service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the per-user row kept next to the auth identity.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Views a client may open on start.
const (
	ViewFeed     = "feed"
	ViewCalendar = "calendar"
	ViewChat     = "chat"
)

// Themes.
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// UserSettings stores view preferences. A missing row means defaults.
type UserSettings struct {
	UserID          string    `json:"userId"`
	Theme           string    `json:"theme"`
	DefaultView     string    `json:"defaultView"`
	ChatDeepThought bool      `json:"chatDeepThought"`
	ShowAIPending   bool      `json:"showAiPending"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// DefaultSettings returns the settings used when a user has never saved any.
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:        userID,
		Theme:         ThemeSystem,
		DefaultView:   ViewFeed,
		ShowAIPending: true,
	}
}

// SettingsPatch changes a subset of settings.
type SettingsPatch struct {
	Theme           *string `json:"theme,omitempty"`
	DefaultView     *string `json:"defaultView,omitempty"`
	ChatDeepThought *bool   `json:"chatDeepThought,omitempty"`
	ShowAIPending   *bool   `json:"showAiPending,omitempty"`
}

// Validate rejects unknown theme or view names.
func (p SettingsPatch) Validate() error {
	if p.Theme != nil {
		switch *p.Theme {
		case ThemeSystem, ThemeLight, ThemeDark:
		default:
			return NewValidationError("theme", "theme must be system, light or dark")
		}
	}
	if p.DefaultView != nil {
		switch *p.DefaultView {
		case ViewFeed, ViewCalendar, ViewChat:
		default:
			return NewValidationError("defaultView", "defaultView must be feed, calendar or chat")
		}
	}
	return nil
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s UserSettings) UserSettings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.DefaultView != nil {
		s.DefaultView = *p.DefaultView
	}
	if p.ChatDeepThought != nil {
		s.ChatDeepThought = *p.ChatDeepThought
	}
	if p.ShowAIPending != nil {
		s.ShowAIPending = *p.ShowAIPending
	}
	return s
}
