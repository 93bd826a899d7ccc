package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/model"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minPasswordLen = 6
	maxPromptLen   = 8000
	maxNoteLen     = 100_000
	maxBatchSize   = 200
)

func Email(v string) error {
	if v == "" {
		return model.NewValidationError("email", "email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return model.NewValidationError("email", "invalid email")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return model.NewValidationError(field, fmt.Sprintf("%s is required", field))
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return model.NewValidationError(field, fmt.Sprintf("%s exceeds %d characters", field, limit))
	}
	return nil
}

// ItemID checks the path id is a row id the store could have issued.
func ItemID(v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return model.NewValidationError("id", "invalid item id")
	}
	return nil
}

// -------- Request specific helpers ----------

// Credentials validates sign-up and login input.
func Credentials(email, password string) error {
	if err := Email(email); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return model.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}

// Prompt validates free-form model instructions.
func Prompt(v string) error {
	if err := NonEmpty("prompt", v); err != nil {
		return err
	}
	return MaxLen("prompt", &v, maxPromptLen)
}

// CreateItem validates the request-level constraints of a new item; the
// draft's own rules are checked by the gateway.
func CreateItem(d model.Draft) error {
	if !d.Type.Valid() {
		return model.NewValidationError("type", fmt.Sprintf("unknown content type %q", d.Type))
	}
	if d.Type == model.TypeText {
		return MaxLen("content", &d.Content, maxNoteLen)
	}
	return nil
}

// BatchUpdate validates the batch envelope.
func BatchUpdate(updates []model.ItemUpdate) error {
	if len(updates) == 0 {
		return model.NewValidationError("updates", "updates are required")
	}
	if len(updates) > maxBatchSize {
		return model.NewValidationError("updates", fmt.Sprintf("at most %d updates per batch", maxBatchSize))
	}
	for _, u := range updates {
		if err := ItemID(u.ID); err != nil {
			return err
		}
	}
	return nil
}

// AspectRatio validates an image aspect ratio; empty means the default.
func AspectRatio(v string) error {
	if v == "" || ai.AspectRatio(v).Valid() {
		return nil
	}
	return model.NewValidationError("aspectRatio", "aspectRatio must be one of 1:1, 3:4, 4:3, 9:16, 16:9")
}

// Location validates chat coordinates.
func Location(l *ai.Location) error {
	if l == nil {
		return nil
	}
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return model.NewValidationError("location", "coordinates out of range")
	}
	return nil
}
