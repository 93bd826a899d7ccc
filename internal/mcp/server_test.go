package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/factory"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/session"
)

func TestServerInProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := factory.Build(ctx, config.NewForTesting(), zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	s, err := NewServer("test-diary", "1.0.0", c.Library, func(context.Context) (string, error) {
		return "user-1", nil
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	tr := transport.NewInProcessTransport(s)
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("failed to start in-process transport: %v", err)
	}
	defer tr.Close()

	cl := client.NewClient(tr)
	if _, err := cl.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: "2024-11-05",
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      mcp.Implementation{Name: "test-client", Version: "1.0.0"},
		},
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	tools, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("tools/list: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"add_note", "add_url", "list_items", "get_item", "summarize_item", "organize_items", "ask"} {
		if !names[want] {
			t.Errorf("expected tool %q not found", want)
		}
	}

	res, err := cl.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "add_note",
		Arguments: map[string]any{"text": "water the plants"},
	}})
	if err != nil {
		t.Fatalf("add_note: %v", err)
	}
	if res.IsError {
		t.Fatalf("add_note tool error: %+v", res.Content)
	}

	res, err = cl.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "list_items"}})
	if err != nil {
		t.Fatalf("list_items: %v", err)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	if !strings.Contains(tc.Text, "water the plants") {
		t.Fatalf("saved note missing from list: %s", tc.Text)
	}
}

func TestSessionUser(t *testing.T) {
	store := &session.MemoryStore{}
	if err := store.Save(&auth.Session{AccessToken: "a", User: model.User{ID: "user-9"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mgr := session.NewManager(nil, nil, store, zerolog.Nop())

	id, err := SessionUser(mgr)(context.Background())
	if err != nil {
		t.Fatalf("session user: %v", err)
	}
	if id != "user-9" {
		t.Fatalf("expected user-9, got %s", id)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	empty := session.NewManager(nil, nil, store, zerolog.Nop())
	if _, err := SessionUser(empty)(context.Background()); err == nil {
		t.Fatalf("expected error when signed out")
	}
}

func TestUseStdio(t *testing.T) {
	if !useStdio("stdio") {
		t.Fatalf("stdio should force stdio")
	}
	if useStdio("http") {
		t.Fatalf("http should force http")
	}
}
