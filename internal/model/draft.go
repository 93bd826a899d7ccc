package model

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Draft is a not-yet-persisted ContentItem. Use the constructors so each
// variant carries exactly the fields it needs.
type Draft struct {
	Type     ContentType `json:"type"`
	Content  string      `json:"content"`
	MimeType string      `json:"mimeType,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
}

// NewTextDraft creates a plain text note.
func NewTextDraft(text string) Draft {
	return Draft{Type: TypeText, Content: text}
}

// NewURLDraft creates a web link item.
func NewURLDraft(link string) Draft {
	return Draft{Type: TypeURL, Content: strings.TrimSpace(link)}
}

// NewMediaDraft creates an image, generated image or audio item from raw
// bytes. The payload is stored as a data URI.
func NewMediaDraft(t ContentType, data []byte, mimeType string) Draft {
	return Draft{
		Type:     t,
		Content:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}
}

// WithTags returns a copy of d carrying the given initial tags.
func (d Draft) WithTags(tags ...string) Draft {
	d.Tags = NormalizeTags(tags)
	return d
}

// Validate checks the per-variant invariants of a draft.
func (d Draft) Validate() error {
	if !d.Type.Valid() {
		return NewValidationError("type", fmt.Sprintf("unknown content type %q", d.Type))
	}
	if strings.TrimSpace(d.Content) == "" {
		return NewValidationError("content", "content is required")
	}
	switch {
	case d.Type.IsBinary() && d.MimeType == "":
		return NewValidationError("mimeType", fmt.Sprintf("mimeType is required for %s items", d.Type))
	case !d.Type.IsBinary() && d.MimeType != "":
		return NewValidationError("mimeType", fmt.Sprintf("mimeType is not allowed for %s items", d.Type))
	}
	if d.Type == TypeURL {
		u, err := url.Parse(d.Content)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return NewValidationError("content", "url must be an absolute http(s) link")
		}
	}
	if d.Type.IsImage() && !strings.HasPrefix(d.MimeType, "image/") {
		return NewValidationError("mimeType", "image items need an image/* mime type")
	}
	if d.Type == TypeAudio && !strings.HasPrefix(d.MimeType, "audio/") {
		return NewValidationError("mimeType", "audio items need an audio/* mime type")
	}
	return nil
}
