package model

import "fmt"

// Patch lists the fields to change on an existing item. Nil means unchanged.
// Type, ID and CreatedAt are never patchable.
type Patch struct {
	Content       *string   `json:"content,omitempty"`
	MimeType      *string   `json:"mimeType,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Priority      *int      `json:"priority,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	AIAnalysis    *string   `json:"aiAnalysis,omitempty"`
	Transcription *string   `json:"transcription,omitempty"`
	Summary       *string   `json:"summary,omitempty"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Content == nil && p.MimeType == nil && p.Category == nil &&
		p.Priority == nil && p.Tags == nil && p.AIAnalysis == nil &&
		p.Transcription == nil && p.Summary == nil
}

// Validate checks field-level constraints and normalizes tags in place.
func (p *Patch) Validate() error {
	if p.IsEmpty() {
		return NewValidationError("patch", "no fields to update")
	}
	if p.Priority != nil && (*p.Priority < MinPriority || *p.Priority > MaxPriority) {
		return NewValidationError("priority", fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority))
	}
	if p.Content != nil && *p.Content == "" {
		return NewValidationError("content", "content cannot be cleared")
	}
	if p.Tags != nil {
		norm := NormalizeTags(*p.Tags)
		p.Tags = &norm
	}
	return nil
}

// Apply returns a copy of item with the patch applied. Stores that cannot
// express partial updates in SQL use it; it is also used by tests.
func (p Patch) Apply(item ContentItem) ContentItem {
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.MimeType != nil {
		item.MimeType = *p.MimeType
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.Tags != nil {
		item.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.AIAnalysis != nil {
		item.AIAnalysis = *p.AIAnalysis
	}
	if p.Transcription != nil {
		item.Transcription = *p.Transcription
	}
	if p.Summary != nil {
		item.Summary = *p.Summary
	}
	return item
}
