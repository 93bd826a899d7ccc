package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	userID := "u-" + uuid.New().String()
	otherID := "u-" + uuid.New().String()

	// Items: create assigns id and creation time
	first, err := s.Items().Create(ctx, userID, model.NewTextDraft("Buy milk").WithTags("Errand"))
	if err != nil {
		t.Fatalf("Create text: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("Create: id/createdAt not assigned: %+v", first)
	}
	if first.Type != model.TypeText || first.Content != "Buy milk" || first.MimeType != "" {
		t.Fatalf("Create: unexpected item %+v", first)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "errand" {
		t.Fatalf("Create: tags not normalized: %v", first.Tags)
	}

	time.Sleep(5 * time.Millisecond)
	second, err := s.Items().Create(ctx, userID, model.NewMediaDraft(model.TypeAudio, []byte("RIFF"), "audio/wav"))
	if err != nil {
		t.Fatalf("Create audio: %v", err)
	}
	if second.MimeType != "audio/wav" {
		t.Fatalf("Create audio: mime not stored: %+v", second)
	}
	if _, err := s.Items().Create(ctx, otherID, model.NewURLDraft("https://example.com")); err != nil {
		t.Fatalf("Create other user: %v", err)
	}

	// List: newest first, scoped to the user
	lst, err := s.Items().List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lst) != 2 {
		t.Fatalf("List: expected 2 items, got %d", len(lst))
	}
	if lst[0].ID != second.ID || lst[1].ID != first.ID {
		t.Fatalf("List: not newest first: %s, %s", lst[0].ID, lst[1].ID)
	}
	if !lst[1].CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("List: createdAt changed between reads: %v vs %v", lst[1].CreatedAt, first.CreatedAt)
	}

	// Get
	got, err := s.Items().Get(ctx, userID, first.ID)
	if err != nil || got.Content != "Buy milk" {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if _, err := s.Items().Get(ctx, otherID, first.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get across users: expected ErrNotFound, got %v", err)
	}

	// Update: only supplied fields change
	upd, err := s.Items().Update(ctx, userID, first.ID, model.Patch{
		Category: model.Ptr("Personal"),
		Tags:     &[]string{"errand", "shopping"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Category != "Personal" || len(upd.Tags) != 2 || upd.Content != "Buy milk" {
		t.Fatalf("Update: unexpected item %+v", upd)
	}
	if upd.ID != first.ID || !upd.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("Update: identity changed: %+v", upd)
	}
	upd, err = s.Items().Update(ctx, userID, first.ID, model.Patch{Priority: model.Ptr(4), Summary: model.Ptr("milk")})
	if err != nil {
		t.Fatalf("Update priority: %v", err)
	}
	if upd.Priority != 4 || upd.Category != "Personal" || upd.Summary != "milk" {
		t.Fatalf("Update priority: unexpected item %+v", upd)
	}
	if _, err := s.Items().Update(ctx, userID, "missing", model.Patch{Category: model.Ptr("x")}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update missing: expected ErrNotFound, got %v", err)
	}

	// Delete
	if err := s.Items().Delete(ctx, userID, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Items().Delete(ctx, userID, second.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Delete twice: expected ErrNotFound, got %v", err)
	}

	// Profiles
	if _, err := s.Profiles().Get(ctx, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Profile missing: expected ErrNotFound, got %v", err)
	}
	p, err := s.Profiles().Upsert(ctx, &model.Profile{ID: userID, Email: "a@example.test", FullName: "A"})
	if err != nil || p.FullName != "A" || p.CreatedAt.IsZero() {
		t.Fatalf("Profile upsert: got=%+v err=%v", p, err)
	}
	p, err = s.Profiles().Upsert(ctx, &model.Profile{ID: userID, Email: "a@example.test", FullName: "Alice"})
	if err != nil || p.FullName != "Alice" {
		t.Fatalf("Profile re-upsert: got=%+v err=%v", p, err)
	}

	// Settings
	if _, err := s.Settings().Get(ctx, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Settings missing: expected ErrNotFound, got %v", err)
	}
	in := model.DefaultSettings(userID)
	in.Theme = model.ThemeDark
	in.ChatDeepThought = true
	st, err := s.Settings().Upsert(ctx, in)
	if err != nil {
		t.Fatalf("Settings upsert: %v", err)
	}
	if st.Theme != model.ThemeDark || !st.ChatDeepThought || !st.ShowAIPending || st.DefaultView != model.ViewFeed {
		t.Fatalf("Settings upsert: unexpected %+v", st)
	}
	in.ShowAIPending = false
	if st, err = s.Settings().Upsert(ctx, in); err != nil || st.ShowAIPending {
		t.Fatalf("Settings re-upsert: got=%+v err=%v", st, err)
	}
}
