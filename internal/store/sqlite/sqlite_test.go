package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
	"github.com/thekoushikdurgas/diary/internal/store/storetest"
)

func makeSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "diary.db"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := New(context.Background(), MemoryPath, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite memory open: %v", err)
	}
	defer s.Close()
	if err := s.HealthPing(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteStore_PublishesChanges(t *testing.T) {
	broker := events.NewBroker()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "diary.db"), broker, zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	defer s.Close()

	ch, cancel := broker.Subscribe("u1")
	defer cancel()

	ctx := context.Background()
	it, err := s.Items().Create(ctx, "u1", model.NewTextDraft("hello"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	expectChange(t, ch, events.OpInsert, it.ID)

	if _, err := s.Items().Update(ctx, "u1", it.ID, model.Patch{Category: model.Ptr("Work")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	expectChange(t, ch, events.OpUpdate, it.ID)

	if err := s.Items().Delete(ctx, "u1", it.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectChange(t, ch, events.OpDelete, it.ID)

	// failed writes publish nothing
	if _, err := s.Items().Update(ctx, "u1", it.ID, model.Patch{Category: model.Ptr("x")}); err == nil {
		t.Fatal("update of deleted row should fail")
	}
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(20 * time.Millisecond):
	}
}

func expectChange(t *testing.T, ch <-chan events.Change, op events.Op, id string) {
	t.Helper()
	select {
	case c := <-ch:
		if c.Op != op || c.ItemID != id || c.UserID != "u1" {
			t.Fatalf("unexpected change %+v, want %s %s", c, op, id)
		}
	case <-time.After(time.Second):
		t.Fatalf("no %s change published", op)
	}
}
