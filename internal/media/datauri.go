// Package media handles the encoded binary payloads of image and audio items:
// data URIs kept inline in the row, and object storage references for
// payloads too large to keep there.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// ErrNotDataURI is returned when a string is not a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 data URI")

// ParseDataURI decodes "data:<mime>;base64,<payload>".
func ParseDataURI(s string) (data []byte, mimeType string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrNotDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrNotDataURI
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, "", ErrNotDataURI
	}
	// parameters such as ";codecs=opus" are not part of the mime type
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return data, mimeType, nil
}

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s looks like a data URI.
func IsDataURI(s string) bool { return strings.HasPrefix(s, "data:") }

// DraftFromDataURI builds a media draft of type t from an uploaded data URI,
// taking the mime type from the URI header.
func DraftFromDataURI(t model.ContentType, uri string) (model.Draft, error) {
	data, mimeType, err := ParseDataURI(uri)
	if err != nil {
		return model.Draft{}, model.NewValidationError("content", err.Error())
	}
	d := model.NewMediaDraft(t, data, mimeType)
	return d, d.Validate()
}
