package client

import (
	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
)

// Wire types shared with the service.
type (
	ContentType   = model.ContentType
	ContentItem   = model.ContentItem
	Draft         = model.Draft
	ItemUpdate    = model.ItemUpdate
	Patch         = model.Patch
	User          = model.User
	Profile       = model.Profile
	Settings      = model.UserSettings
	SettingsPatch = model.SettingsPatch
	Session       = auth.Session
	ChatInput     = services.ChatInput
	ChatReply     = ai.ChatReply
	Location      = ai.Location
	OrganizedItem = ai.OrganizedItem
	AspectRatio   = ai.AspectRatio
)

// Content types.
const (
	TypeText    = model.TypeText
	TypeURL     = model.TypeURL
	TypeImage   = model.TypeImage
	TypeAIImage = model.TypeAIImage
	TypeAudio   = model.TypeAudio
)

// Draft constructors.
var (
	NewTextDraft  = model.NewTextDraft
	NewURLDraft   = model.NewURLDraft
	NewMediaDraft = model.NewMediaDraft
)

// Item is a stored item as the API returns it.
type Item struct {
	model.ContentItem
	// AIPending is set while background enrichment has not produced a
	// category yet.
	AIPending bool `json:"aiPending"`
}

// ItemList is one listing or stream snapshot, newest first.
type ItemList struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// ItemChanges is a partial item update. Tags are added, never replaced.
type ItemChanges struct {
	Content  *string  `json:"content,omitempty"`
	AddTags  []string `json:"addTags,omitempty"`
	Category *string  `json:"category,omitempty"`
	Priority *int     `json:"priority,omitempty"`
}

// Me is the signed-in user with profile and settings.
type Me struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Profile  *Profile  `json:"profile"`
	Settings *Settings `json:"settings"`
}

// UserChanges updates the account. Nil fields are unchanged.
type UserChanges struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	FullName *string `json:"fullName,omitempty"`
}

// SignUpResult carries the new user and, when no email confirmation is
// required, a session.
type SignUpResult struct {
	User    User     `json:"user"`
	Session *Session `json:"session"`
}

// Health is the service health report.
type Health struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Down    []string `json:"down,omitempty"`
}

// Media is a downloaded binary payload.
type Media struct {
	Data     []byte
	MimeType string
}
