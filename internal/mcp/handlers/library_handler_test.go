package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
)

type fakeLibrary struct {
	mu       sync.Mutex
	items    []model.ContentItem
	lastChat services.ChatInput
	orgIDs   []string
}

func (f *fakeLibrary) AddItem(_ context.Context, _ string, d model.Draft) (*model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := model.ContentItem{ID: "new-id", Type: d.Type, Content: d.Content, Tags: d.Tags, CreatedAt: time.Now()}
	f.items = append([]model.ContentItem{it}, f.items...)
	return &it, nil
}

func (f *fakeLibrary) List(context.Context, string) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ContentItem(nil), f.items...), nil
}

func (f *fakeLibrary) Get(_ context.Context, _ string, id string) (*model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			cp := it
			return &cp, nil
		}
	}
	return nil, model.NewStoreError("get", model.ErrNotFound)
}

func (f *fakeLibrary) SummarizeItem(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	it, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	it.Summary = "short version"
	return it, nil
}

func (f *fakeLibrary) Organize(_ context.Context, _ string, ids ...string) ([]ai.OrganizedItem, error) {
	f.mu.Lock()
	f.orgIDs = ids
	f.mu.Unlock()
	return []ai.OrganizedItem{{ID: "a", Category: "Work", Priority: 2}}, nil
}

func (f *fakeLibrary) Chat(_ context.Context, _ string, in services.ChatInput) (*ai.ChatReply, error) {
	f.mu.Lock()
	f.lastChat = in
	f.mu.Unlock()
	return &ai.ChatReply{Text: "answer", Sources: []ai.GroundingSource{{Kind: ai.SourceWeb, URI: "https://example.com", Title: "Example"}}}, nil
}

func signedIn(context.Context) (string, error) { return "user-1", nil }

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestAddNoteAndList(t *testing.T) {
	lib := &fakeLibrary{}
	h := NewLibraryHandler(lib, signedIn)

	res, err := h.handleAddNote(context.Background(), makeRequest(map[string]any{
		"text": "call the dentist",
		"tags": []any{"Health"},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var saved itemSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if saved.ID != "new-id" || saved.Content != "call the dentist" {
		t.Fatalf("unexpected item %+v", saved)
	}

	res, err = h.handleListItems(context.Background(), makeRequest(map[string]any{"limit": float64(10)}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var payload struct {
		Items []itemSummary `json:"items"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || len(payload.Items) != 1 {
		t.Fatalf("expected one item, got %+v", payload)
	}
}

func TestAddNote_Empty(t *testing.T) {
	h := NewLibraryHandler(&fakeLibrary{}, signedIn)
	res, err := h.handleAddNote(context.Background(), makeRequest(map[string]any{"text": "  "}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for empty note")
	}
}

func TestListItems_FiltersAndHidesBinary(t *testing.T) {
	now := time.Now()
	lib := &fakeLibrary{items: []model.ContentItem{
		{ID: "1", Type: model.TypeImage, Content: "data:image/png;base64,AAAA", Category: "Travel", Tags: []string{"beach"}, CreatedAt: now},
		{ID: "2", Type: model.TypeText, Content: strings.Repeat("x", 1000), Category: "Work", Tags: []string{"beach"}, CreatedAt: now},
		{ID: "3", Type: model.TypeText, Content: "no tags", CreatedAt: now},
	}}
	h := NewLibraryHandler(lib, signedIn)

	res, _ := h.handleListItems(context.Background(), makeRequest(map[string]any{"tag": "Beach"}))
	var payload struct {
		Items []itemSummary `json:"items"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 tagged items, got %d", len(payload.Items))
	}
	if strings.Contains(payload.Items[0].Content, "base64") {
		t.Fatalf("binary payload leaked into list output")
	}
	if n := len([]rune(payload.Items[1].Content)); n > previewRunes+1 {
		t.Fatalf("expected preview to be truncated, got %d runes", n)
	}

	res, _ = h.handleListItems(context.Background(), makeRequest(map[string]any{"category": "work"}))
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].ID != "2" {
		t.Fatalf("category filter failed: %+v", payload.Items)
	}
}

func TestGetAndSummarize(t *testing.T) {
	lib := &fakeLibrary{items: []model.ContentItem{{ID: "abc", Type: model.TypeText, Content: "long note"}}}
	h := NewLibraryHandler(lib, signedIn)

	res, _ := h.handleSummarize(context.Background(), makeRequest(map[string]any{"item_id": "abc"}))
	if got := resultText(t, res); got != "short version" {
		t.Fatalf("unexpected summary %q", got)
	}

	res, _ = h.handleGetItem(context.Background(), makeRequest(map[string]any{"item_id": "missing"}))
	if !res.IsError {
		t.Fatalf("expected tool error for missing item")
	}

	res, _ = h.handleGetItem(context.Background(), makeRequest(map[string]any{}))
	if !res.IsError {
		t.Fatalf("expected tool error without item_id")
	}
}

func TestOrganize(t *testing.T) {
	lib := &fakeLibrary{}
	h := NewLibraryHandler(lib, signedIn)
	res, _ := h.handleOrganize(context.Background(), makeRequest(map[string]any{"item_ids": []any{"a", "b"}}))
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(lib.orgIDs) != 2 {
		t.Fatalf("expected ids to be forwarded, got %v", lib.orgIDs)
	}
	if !strings.Contains(resultText(t, res), `"Work"`) {
		t.Fatalf("expected organized categories in output")
	}
}

func TestAsk(t *testing.T) {
	lib := &fakeLibrary{}
	h := NewLibraryHandler(lib, signedIn)

	res, _ := h.handleAsk(context.Background(), makeRequest(map[string]any{
		"prompt":       "coffee nearby?",
		"deep_thought": true,
		"latitude":     52.5,
		"longitude":    13.4,
	}))
	text := resultText(t, res)
	if !strings.HasPrefix(text, "answer") || !strings.Contains(text, "https://example.com") {
		t.Fatalf("unexpected reply %q", text)
	}
	if lib.lastChat.Location == nil || lib.lastChat.Location.Latitude != 52.5 {
		t.Fatalf("location not forwarded: %+v", lib.lastChat)
	}
	if lib.lastChat.DeepThought == nil || !*lib.lastChat.DeepThought {
		t.Fatalf("deep_thought not forwarded")
	}

	res, _ = h.handleAsk(context.Background(), makeRequest(map[string]any{"prompt": "x", "latitude": 1.0}))
	if !res.IsError {
		t.Fatalf("expected error for half a location")
	}
}

func TestSignedOut(t *testing.T) {
	h := NewLibraryHandler(&fakeLibrary{}, func(context.Context) (string, error) {
		return "", errors.New("no session")
	})
	res, _ := h.handleListItems(context.Background(), makeRequest(nil))
	if !res.IsError || !strings.Contains(resultText(t, res), "not signed in") {
		t.Fatalf("expected not signed in error")
	}
}
