package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
	"github.com/thekoushikdurgas/diary/internal/session"
)

// fakeService answers the two endpoints the test uses and records the
// bearer token it saw.
func fakeService(t *testing.T, seen *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"0b0e2b4c-1111-4a4a-9c9c-000000000001","type":"text","content":"remote note","createdAt":"2024-05-01T10:00:00Z","tags":["home"],"aiPending":false}],"count":1}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"remote answer"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectRemote_SavedSession(t *testing.T) {
	var seen string
	srv := fakeService(t, &seen)

	persist := &session.MemoryStore{}
	if err := persist.Save(&auth.Session{
		AccessToken: "saved-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        model.User{ID: "user-9"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	settings := &Settings{ServiceURL: srv.URL, ServiceTimeout: 5 * time.Second}
	lib, user, err := connectRemote(context.Background(), settings, persist, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	id, err := user(context.Background())
	if err != nil || id != "user-9" {
		t.Fatalf("unexpected user %q (%v)", id, err)
	}

	items, err := lib.List(context.Background(), id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Content != "remote note" || !items[0].HasTag("home") {
		t.Fatalf("unexpected items %+v", items)
	}
	if seen != "Bearer saved-token" {
		t.Fatalf("unexpected authorization header %q", seen)
	}

	reply, err := lib.Chat(context.Background(), id, services.ChatInput{Prompt: "hello"})
	if err != nil || reply.Text != "remote answer" {
		t.Fatalf("unexpected chat reply %+v (%v)", reply, err)
	}
}

func TestConnectRemote_NoSession(t *testing.T) {
	settings := &Settings{ServiceURL: "http://127.0.0.1:1", ServiceTimeout: time.Second}
	_, _, err := connectRemote(context.Background(), settings, &session.MemoryStore{}, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "diaryctl login") {
		t.Fatalf("expected a no-session error, got %v", err)
	}
}
