package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/model"
)

func TestCredentials(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		password    string
		expectError bool
		field       string
	}{
		{name: "valid", email: "ada@example.com", password: "secret1"},
		{name: "empty email", email: "", password: "secret1", expectError: true, field: "email"},
		{name: "bad email", email: "bad email", password: "secret1", expectError: true, field: "email"},
		{name: "short password", email: "ada@example.com", password: "123", expectError: true, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Credentials(tt.email, tt.password)
			if !tt.expectError {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestItemID(t *testing.T) {
	if err := ItemID(uuid.NewString()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ItemID("1; drop table"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrompt(t *testing.T) {
	if err := Prompt("  "); err == nil {
		t.Fatalf("expected error for blank prompt")
	}
	if err := Prompt(strings.Repeat("a", maxPromptLen+1)); err == nil {
		t.Fatalf("expected error for long prompt")
	}
	if err := Prompt("what's on my list?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBatchUpdate(t *testing.T) {
	if err := BatchUpdate(nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
	if err := BatchUpdate([]model.ItemUpdate{{ID: "x"}}); err == nil {
		t.Fatalf("expected error for bad id")
	}
	if err := BatchUpdate([]model.ItemUpdate{{ID: uuid.NewString()}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAspectRatioAndLocation(t *testing.T) {
	if err := AspectRatio(""); err != nil {
		t.Fatalf("empty ratio should default: %v", err)
	}
	if err := AspectRatio("2:1"); err == nil {
		t.Fatalf("expected error for unsupported ratio")
	}
	if err := Location(&ai.Location{Latitude: 91}); err == nil {
		t.Fatalf("expected error for latitude out of range")
	}
	if err := Location(nil); err != nil {
		t.Fatalf("nil location should pass: %v", err)
	}
}

func TestCreateItem(t *testing.T) {
	if err := CreateItem(model.Draft{Type: "video"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if err := CreateItem(model.NewTextDraft(strings.Repeat("a", maxNoteLen+1))); err == nil {
		t.Fatalf("expected error for oversized note")
	}
}
