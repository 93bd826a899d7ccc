// Package model holds the domain types shared by the store, the AI gateway,
// the enrichment pipeline and the outer surfaces.
package model

import "time"

// ContentType is the variant tag of a ContentItem. It is fixed at creation.
type ContentType string

const (
	TypeText    ContentType = "text"
	TypeURL     ContentType = "url"
	TypeImage   ContentType = "image"
	TypeAIImage ContentType = "ai_image"
	TypeAudio   ContentType = "audio"
)

// AIPendingWindow is how long a freshly created, still uncategorized item is
// displayed as awaiting enrichment.
const AIPendingWindow = 15 * time.Second

// Priority bounds used by organize and by patches.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case TypeText, TypeURL, TypeImage, TypeAIImage, TypeAudio:
		return true
	}
	return false
}

// IsBinary reports whether items of this type carry an encoded binary payload
// (and therefore a mime type).
func (t ContentType) IsBinary() bool {
	return t == TypeImage || t == TypeAIImage || t == TypeAudio
}

// IsImage reports whether t is an uploaded or generated image.
func (t ContentType) IsImage() bool {
	return t == TypeImage || t == TypeAIImage
}

// ContentItem is one user submission plus whatever enrichment has been
// written back to it.
type ContentItem struct {
	ID            string      `json:"id"`
	UserID        string      `json:"-"`
	Type          ContentType `json:"type"`
	Content       string      `json:"content"`
	MimeType      string      `json:"mimeType,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	Category      string      `json:"category,omitempty"`
	Priority      int         `json:"priority,omitempty"`
	Tags          []string    `json:"tags"`
	AIAnalysis    string      `json:"aiAnalysis,omitempty"`
	Transcription string      `json:"transcription,omitempty"`
	Summary       string      `json:"summary,omitempty"`
}

// AIPending reports whether the item is young enough and still uncategorized,
// so a view should show it as awaiting enrichment. Display hint only.
func (c *ContentItem) AIPending(now time.Time) bool {
	if c.Category != "" {
		return false
	}
	return now.Sub(c.CreatedAt) < AIPendingWindow
}

// HasTag reports whether the item carries tag (case-insensitive).
func (c *ContentItem) HasTag(tag string) bool {
	want := normalizeTag(tag)
	for _, t := range c.Tags {
		if t == want {
			return true
		}
	}
	return false
}

// ItemUpdate pairs an item id with the fields to change. Used by batch updates.
type ItemUpdate struct {
	ID    string `json:"id"`
	Patch Patch  `json:"patch"`
}
