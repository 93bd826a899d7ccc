package store

import (
	"encoding/json"
	"fmt"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// ItemColumns returns the select list shared by both SQL drivers. Optional
// text columns are coalesced so rows scan into plain strings; tagsExpr lets
// a driver render the JSON column as text.
func ItemColumns(tagsExpr string) string {
	return `id, user_id, type, content, COALESCE(mime_type, ''), created_at,
        COALESCE(category, ''), COALESCE(priority, 0), ` + tagsExpr + `,
        COALESCE(ai_analysis, ''), COALESCE(transcription, ''), COALESCE(summary, '')`
}

// Assignment is one "column = value" pair of a partial update.
type Assignment struct {
	Column string
	Value  any
	JSON   bool
}

// PatchAssignments converts a patch into column assignments in a fixed order.
func PatchAssignments(p model.Patch) ([]Assignment, error) {
	var out []Assignment
	add := func(col string, v *string) {
		if v != nil {
			out = append(out, Assignment{Column: col, Value: *v})
		}
	}
	add("content", p.Content)
	add("mime_type", p.MimeType)
	add("category", p.Category)
	if p.Priority != nil {
		out = append(out, Assignment{Column: "priority", Value: *p.Priority})
	}
	if p.Tags != nil {
		raw, err := EncodeTags(*p.Tags)
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{Column: "tags", Value: raw, JSON: true})
	}
	add("ai_analysis", p.AIAnalysis)
	add("transcription", p.Transcription)
	add("summary", p.Summary)
	if len(out) == 0 {
		return nil, model.NewValidationError("patch", "no fields to update")
	}
	return out, nil
}

// EncodeTags renders tags as a JSON array; nil becomes [].
func EncodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags parses a JSON array column; empty input yields an empty list.
func DecodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

// NullIfEmpty maps "" to SQL NULL for optional text columns.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
