// Package handlers implements the diary's MCP tools on top of services.Library.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
)

// Library is the subset of services.Library the tools call.
type Library interface {
	AddItem(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error)
	List(ctx context.Context, userID string) ([]model.ContentItem, error)
	Get(ctx context.Context, userID, id string) (*model.ContentItem, error)
	SummarizeItem(ctx context.Context, userID, id string) (*model.ContentItem, error)
	Organize(ctx context.Context, userID string, ids ...string) ([]ai.OrganizedItem, error)
	Chat(ctx context.Context, userID string, in services.ChatInput) (*ai.ChatReply, error)
}

// CurrentUser resolves the signed-in user for a tool call.
type CurrentUser func(ctx context.Context) (string, error)

const (
	defaultListLimit = 25
	maxListLimit     = 100
	// longer text is cut in list output; get_item returns it whole
	previewRunes = 280
)

// LibraryHandler exposes add_note, add_url, list_items, get_item,
// summarize_item, organize_items and ask.
type LibraryHandler struct {
	lib  Library
	user CurrentUser
}

// NewLibraryHandler returns a handler acting as the user returned by user.
func NewLibraryHandler(lib Library, user CurrentUser) *LibraryHandler {
	return &LibraryHandler{lib: lib, user: user}
}

// RegisterTools registers the library tools.
func (h *LibraryHandler) RegisterTools(s *server.MCPServer) error {
	s.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Save a text note to the diary. Category and tags are added automatically in the background."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
		mcp.WithArray("tags", mcp.Description("Optional tags"), mcp.Items(map[string]any{"type": "string"})),
	), h.handleAddNote)

	s.AddTool(mcp.NewTool("add_url",
		mcp.WithDescription("Save a web link to the diary"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL")),
		mcp.WithArray("tags", mcp.Description("Optional tags"), mcp.Items(map[string]any{"type": "string"})),
	), h.handleAddURL)

	s.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List diary items, newest first, optionally filtered by tag, category or type"),
		mcp.WithString("tag", mcp.Description("Only items carrying this tag")),
		mcp.WithString("category", mcp.Description("Only items in this category (case-insensitive)")),
		mcp.WithString("type", mcp.Description("Only items of this type: text, url, image, audio, ai_image")),
		mcp.WithNumber("limit", mcp.Description("Max items (1-100), default 25")),
	), h.handleListItems)

	s.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Get one diary item by id, including AI summary, transcription and analysis"),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The UUID of the item")),
	), h.handleGetItem)

	s.AddTool(mcp.NewTool("summarize_item",
		mcp.WithDescription("Summarize a text, link or audio item and store the summary on it"),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The UUID of the item")),
	), h.handleSummarize)

	s.AddTool(mcp.NewTool("organize_items",
		mcp.WithDescription("Assign category and priority to items in one pass. Without ids the whole diary is organized."),
		mcp.WithArray("item_ids", mcp.Description("Optional item UUIDs"), mcp.Items(map[string]any{"type": "string"})),
	), h.handleOrganize)

	s.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask the assistant a question, grounded in web search and optionally maps"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question")),
		mcp.WithBoolean("deep_thought", mcp.Description("Use the slower reasoning model; defaults to the user's setting")),
		mcp.WithNumber("latitude", mcp.Description("Optional latitude for place questions")),
		mcp.WithNumber("longitude", mcp.Description("Optional longitude for place questions")),
	), h.handleAsk)

	return nil
}

type addArgs struct {
	Text string   `json:"text"`
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

func (h *LibraryHandler) handleAddNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[addArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.add(ctx, "add_note", model.NewTextDraft(args.Text).WithTags(args.Tags...))
}

func (h *LibraryHandler) handleAddURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[addArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.add(ctx, "add_url", model.NewURLDraft(args.URL).WithTags(args.Tags...))
}

func (h *LibraryHandler) add(ctx context.Context, tool string, d model.Draft) (*mcp.CallToolResult, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}
	if err := d.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	it, err := h.lib.AddItem(ctx, userID, d)
	if err != nil {
		log.Error().Err(err).Str("tool", tool).Dur("elapsed", time.Since(start)).Msg("add failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to save item: %v", err)), nil
	}
	log.Debug().Str("tool", tool).Str("item_id", it.ID).Dur("elapsed", time.Since(start)).Msg("item saved")
	return jsonResult(describe(*it, false))
}

type listArgs struct {
	Tag      string  `json:"tag"`
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Limit    float64 `json:"limit"` // JSON numbers decode as float64
}

func (h *LibraryHandler) handleListItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[listArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := int(args.Limit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}
	items, err := h.lib.List(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list items: %v", err)), nil
	}

	tag := strings.ToLower(strings.TrimSpace(args.Tag))
	out := make([]itemSummary, 0, limit)
	for _, it := range items {
		if tag != "" && !it.HasTag(tag) {
			continue
		}
		if args.Category != "" && !strings.EqualFold(it.Category, args.Category) {
			continue
		}
		if args.Type != "" && string(it.Type) != args.Type {
			continue
		}
		out = append(out, describe(it, true))
		if len(out) == limit {
			break
		}
	}
	return jsonResult(map[string]any{"items": out, "count": len(out)})
}

func (h *LibraryHandler) handleGetItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}
	it, err := h.lib.Get(ctx, userID, itemID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get item: %v", err)), nil
	}
	return jsonResult(describe(*it, false))
}

func (h *LibraryHandler) handleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}

	start := time.Now()
	it, err := h.lib.SummarizeItem(ctx, userID, itemID)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Dur("elapsed", time.Since(start)).Msg("summarize_item failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to summarize: %v", err)), nil
	}
	return mcp.NewToolResultText(it.Summary), nil
}

type organizeArgs struct {
	ItemIDs []string `json:"item_ids"`
}

func (h *LibraryHandler) handleOrganize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[organizeArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}
	organized, err := h.lib.Organize(ctx, userID, args.ItemIDs...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to organize: %v", err)), nil
	}
	if organized == nil {
		organized = []ai.OrganizedItem{}
	}
	return jsonResult(map[string]any{"organized": organized, "count": len(organized)})
}

type askArgs struct {
	Prompt      string   `json:"prompt"`
	DeepThought *bool    `json:"deep_thought"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (h *LibraryHandler) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[askArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}
	if (args.Latitude == nil) != (args.Longitude == nil) {
		return mcp.NewToolResultError("provide both latitude and longitude or neither"), nil
	}
	in := services.ChatInput{Prompt: args.Prompt, DeepThought: args.DeepThought}
	if args.Latitude != nil {
		in.Location = &ai.Location{Latitude: *args.Latitude, Longitude: *args.Longitude}
	}

	userID, err := h.user(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not signed in: %v", err)), nil
	}
	reply, err := h.lib.Chat(ctx, userID, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatReply(reply)), nil
}

func formatReply(r *ai.ChatReply) string {
	if len(r.Sources) == 0 {
		return r.Text
	}
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString("\n\nSources:\n")
	for _, s := range r.Sources {
		title := s.Title
		if title == "" {
			title = s.URI
		}
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", s.Kind, title, s.URI)
	}
	return b.String()
}

// itemSummary is the tool-facing view of an item. Binary payloads are never
// inlined.
type itemSummary struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content,omitempty"`
	MimeType      string    `json:"mimeType,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Category      string    `json:"category,omitempty"`
	Priority      int       `json:"priority,omitempty"`
	Tags          []string  `json:"tags"`
	Summary       string    `json:"summary,omitempty"`
	Transcription string    `json:"transcription,omitempty"`
	AIAnalysis    string    `json:"aiAnalysis,omitempty"`
}

func describe(it model.ContentItem, preview bool) itemSummary {
	s := itemSummary{
		ID:            it.ID,
		Type:          string(it.Type),
		MimeType:      it.MimeType,
		CreatedAt:     it.CreatedAt,
		Category:      it.Category,
		Priority:      it.Priority,
		Tags:          it.Tags,
		Summary:       it.Summary,
		Transcription: it.Transcription,
		AIAnalysis:    it.AIAnalysis,
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if it.Type.IsBinary() {
		s.Content = fmt.Sprintf("[%s payload]", it.Type)
	} else {
		s.Content = it.Content
	}
	if preview {
		s.Content = truncate(s.Content, previewRunes)
		s.Summary = truncate(s.Summary, previewRunes)
		s.Transcription = truncate(s.Transcription, previewRunes)
		s.AIAnalysis = truncate(s.AIAnalysis, previewRunes)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
