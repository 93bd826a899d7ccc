// Package services holds the user-facing operations on a diary: adding
// items (which triggers background enrichment), editing them and running
// on-demand AI actions. The HTTP API, the CLI and the MCP server all call
// into Library.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/content"
	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// Items is the content gateway surface the library needs.
type Items interface {
	FetchAll(ctx context.Context, userID string) ([]model.ContentItem, error)
	Get(ctx context.Context, userID, id string) (*model.ContentItem, error)
	Create(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error)
	Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error)
	BatchUpdate(ctx context.Context, userID string, updates []model.ItemUpdate) error
	Delete(ctx context.Context, userID, id string) error
	Subscribe(ctx context.Context, userID string, onSnapshot func([]model.ContentItem)) (*content.Subscription, error)
}

// Media resolves, offloads and cleans up binary payloads.
type Media interface {
	Fetch(ctx context.Context, content string) ([]byte, string, error)
	Offload(ctx context.Context, userID string, d model.Draft) (model.Draft, error)
	Discard(ctx context.Context, content string) error
	DownloadURL(ctx context.Context, content string, ttl time.Duration) (string, error)
}

// Enqueuer starts background enrichment for a created item.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string, item *model.ContentItem) error
}

// SettingsReader supplies the chat deep-thought default. A user with no
// saved settings gets defaults, not an error.
type SettingsReader interface {
	Settings(ctx context.Context, userID string) (*model.UserSettings, error)
}

// Library implements the diary operations for any signed-in user.
type Library struct {
	items    Items
	model    ai.Gateway
	media    Media
	enricher Enqueuer
	settings SettingsReader
	log      zerolog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithSettings lets Chat default DeepThought from the user's settings.
func WithSettings(s SettingsReader) Option {
	return func(l *Library) { l.settings = s }
}

// NewLibrary wires the library. enricher may be nil to skip enrichment.
func NewLibrary(items Items, m ai.Gateway, med Media, enricher Enqueuer, log zerolog.Logger, opts ...Option) *Library {
	l := &Library{items: items, model: m, media: med, enricher: enricher, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// List returns the user's items, newest first.
func (l *Library) List(ctx context.Context, userID string) ([]model.ContentItem, error) {
	return l.items.FetchAll(ctx, userID)
}

// Get returns one item.
func (l *Library) Get(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	return l.items.Get(ctx, userID, id)
}

// Watch streams snapshots of the user's items until ctx ends or the
// subscription is cancelled.
func (l *Library) Watch(ctx context.Context, userID string, onSnapshot func([]model.ContentItem)) (*content.Subscription, error) {
	return l.items.Subscribe(ctx, userID, onSnapshot)
}

// AddItem persists a draft and starts its enrichment. The item is returned
// as soon as it is stored; enrichment never delays or fails this call.
func (l *Library) AddItem(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error) {
	it, err := l.items.Create(ctx, userID, d)
	if err != nil {
		return nil, err
	}
	if l.enricher != nil {
		if err := l.enricher.Enqueue(ctx, userID, it); err != nil {
			l.log.Warn().Err(err).Str("item_id", it.ID).Msg("enrichment not started")
		}
	}
	return it, nil
}

// Update applies a raw patch.
func (l *Library) Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error) {
	return l.items.Update(ctx, userID, id, p)
}

// BatchUpdate applies independent patches; see content.Gateway.BatchUpdate.
func (l *Library) BatchUpdate(ctx context.Context, userID string, updates []model.ItemUpdate) error {
	return l.items.BatchUpdate(ctx, userID, updates)
}

// EditContent replaces the text of a note or the link of a URL item.
func (l *Library) EditContent(ctx context.Context, userID, id, text string) (*model.ContentItem, error) {
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch it.Type {
	case model.TypeText:
		if strings.TrimSpace(text) == "" {
			return nil, model.NewValidationError("content", "content cannot be empty")
		}
	case model.TypeURL:
		text = strings.TrimSpace(text)
		if err := model.NewURLDraft(text).Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, model.NewValidationError("type", fmt.Sprintf("%s items cannot be edited as text", it.Type))
	}
	return l.items.Update(ctx, userID, id, model.Patch{Content: &text})
}

// AddTags merges tags into the item's tag set.
func (l *Library) AddTags(ctx context.Context, userID, id string, tags ...string) (*model.ContentItem, error) {
	incoming := model.NormalizeTags(tags)
	if len(incoming) == 0 {
		return nil, model.NewValidationError("tags", "at least one tag is required")
	}
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	merged := model.MergeTags(it.Tags, incoming)
	return l.items.Update(ctx, userID, id, model.Patch{Tags: &merged})
}

// AnalyzeItem describes an image item and stores the result in aiAnalysis.
func (l *Library) AnalyzeItem(ctx context.Context, userID, id, prompt string) (*model.ContentItem, error) {
	it, data, mt, err := l.binary(ctx, userID, id, "analyze", model.TypeImage, model.TypeAIImage)
	if err != nil {
		return nil, err
	}
	text, err := l.model.AnalyzeImage(ctx, data, mt, prompt)
	if err != nil {
		return nil, err
	}
	return l.items.Update(ctx, userID, it.ID, model.Patch{AIAnalysis: &text})
}

// TranscribeItem transcribes an audio item into transcription.
func (l *Library) TranscribeItem(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	it, data, mt, err := l.binary(ctx, userID, id, "transcribe", model.TypeAudio)
	if err != nil {
		return nil, err
	}
	text, err := l.model.TranscribeAudio(ctx, data, mt)
	if err != nil {
		return nil, err
	}
	return l.items.Update(ctx, userID, it.ID, model.Patch{Transcription: &text})
}

// SummarizeItem summarizes a note, a link or an audio clip into summary.
// Audio without a transcription is transcribed first and both fields are
// written.
func (l *Library) SummarizeItem(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	var patch model.Patch
	var summary string
	switch it.Type {
	case model.TypeText:
		summary, err = l.model.SummarizeContent(ctx, it.Content, ai.SummaryText)
	case model.TypeURL:
		summary, err = l.model.SummarizeContent(ctx, it.Content, ai.SummaryURL)
	case model.TypeAudio:
		transcript := it.Transcription
		if transcript == "" {
			data, mt, ferr := l.fetch(ctx, it)
			if ferr != nil {
				return nil, ferr
			}
			if transcript, err = l.model.TranscribeAudio(ctx, data, mt); err != nil {
				return nil, err
			}
			patch.Transcription = &transcript
		}
		summary, err = l.model.SummarizeContent(ctx, transcript, ai.SummaryAudio)
	default:
		return nil, model.NewValidationError("type", fmt.Sprintf("cannot summarize %s items", it.Type))
	}
	if err != nil {
		return nil, err
	}
	patch.Summary = &summary
	return l.items.Update(ctx, userID, it.ID, patch)
}

// EditImageItem replaces an image item's payload with an AI-edited version.
func (l *Library) EditImageItem(ctx context.Context, userID, id, prompt string) (*model.ContentItem, error) {
	it, data, mt, err := l.binary(ctx, userID, id, "edit", model.TypeImage, model.TypeAIImage)
	if err != nil {
		return nil, err
	}
	img, err := l.model.EditImage(ctx, data, mt, prompt)
	if err != nil {
		return nil, err
	}
	d, err := l.media.Offload(ctx, userID, model.NewMediaDraft(it.Type, img.Data, img.MimeType))
	if err != nil {
		return nil, model.NewStoreError("editImage", err)
	}
	out, err := l.items.Update(ctx, userID, it.ID, model.Patch{Content: &d.Content, MimeType: &d.MimeType})
	if err != nil {
		return nil, err
	}
	if it.Content != d.Content {
		if derr := l.media.Discard(ctx, it.Content); derr != nil {
			l.log.Warn().Err(derr).Str("item_id", it.ID).Msg("old image payload not removed")
		}
	}
	return out, nil
}

// GenerateImage renders prompt and stores the result as a new ai_image item.
func (l *Library) GenerateImage(ctx context.Context, userID, prompt string, ratio ai.AspectRatio) (*model.ContentItem, error) {
	img, err := l.model.GenerateImage(ctx, prompt, ratio)
	if err != nil {
		return nil, err
	}
	return l.AddItem(ctx, userID, model.NewMediaDraft(model.TypeAIImage, img.Data, img.MimeType))
}

// Organize asks the model to categorize and prioritize items. With no ids
// every item is sent. Only ids present in the reply are updated; the rest
// stay as they were.
func (l *Library) Organize(ctx context.Context, userID string, ids ...string) ([]ai.OrganizedItem, error) {
	all, err := l.items.FetchAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var inputs []ai.OrganizeInput
	for _, it := range all {
		if len(want) > 0 && !want[it.ID] {
			continue
		}
		inputs = append(inputs, ai.OrganizeInput{ID: it.ID, Type: it.Type, Content: organizeText(it)})
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	organized, err := l.model.OrganizeContent(ctx, inputs)
	if err != nil {
		return nil, err
	}
	updates := make([]model.ItemUpdate, 0, len(organized))
	for _, o := range organized {
		category, priority := o.Category, o.Priority
		updates = append(updates, model.ItemUpdate{ID: o.ID, Patch: model.Patch{Category: &category, Priority: &priority}})
	}
	if err := l.items.BatchUpdate(ctx, userID, updates); err != nil {
		return nil, err
	}
	return organized, nil
}

// ChatInput is a chat turn. A nil DeepThought falls back to the user's
// settings.
type ChatInput struct {
	Prompt      string       `json:"prompt"`
	DeepThought *bool        `json:"deepThought,omitempty"`
	Location    *ai.Location `json:"location,omitempty"`
}

// Chat answers a prompt.
func (l *Library) Chat(ctx context.Context, userID string, in ChatInput) (*ai.ChatReply, error) {
	deep := false
	switch {
	case in.DeepThought != nil:
		deep = *in.DeepThought
	case l.settings != nil && userID != "":
		s, err := l.settings.Settings(ctx, userID)
		if err != nil {
			l.log.Warn().Err(err).Str("user_id", userID).Msg("settings unavailable, chatting without deep thought")
			break
		}
		deep = s.ChatDeepThought
	}
	return l.model.ChatResponse(ctx, ai.ChatRequest{Prompt: in.Prompt, DeepThought: deep, Location: in.Location})
}

// DeleteItem removes an item and any offloaded payload.
func (l *Library) DeleteItem(ctx context.Context, userID, id string) error {
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := l.items.Delete(ctx, userID, id); err != nil {
		return err
	}
	if it.Type.IsBinary() {
		if err := l.media.Discard(ctx, it.Content); err != nil {
			l.log.Warn().Err(err).Str("item_id", id).Msg("payload not removed")
		}
	}
	return nil
}

// Payload is a binary item's content, inline or as a download URL.
type Payload struct {
	Data        []byte
	MimeType    string
	DownloadURL string
}

// Media returns the binary payload of an item. Offloaded payloads are
// returned as a short-lived download URL when the object store can sign one.
func (l *Library) Media(ctx context.Context, userID, id string) (*Payload, error) {
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !it.Type.IsBinary() {
		return nil, model.NewValidationError("type", fmt.Sprintf("%s items have no media", it.Type))
	}
	url, err := l.media.DownloadURL(ctx, it.Content, 15*time.Minute)
	if err != nil {
		return nil, model.NewStoreError("media", err)
	}
	if url != "" {
		return &Payload{MimeType: it.MimeType, DownloadURL: url}, nil
	}
	data, mt, err := l.fetch(ctx, it)
	if err != nil {
		return nil, err
	}
	return &Payload{Data: data, MimeType: mt}, nil
}

// binary loads an item of one of the allowed types together with its payload.
func (l *Library) binary(ctx context.Context, userID, id, action string, allowed ...model.ContentType) (*model.ContentItem, []byte, string, error) {
	it, err := l.items.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, "", err
	}
	ok := false
	for _, t := range allowed {
		ok = ok || it.Type == t
	}
	if !ok {
		return nil, nil, "", model.NewValidationError("type", fmt.Sprintf("cannot %s %s items", action, it.Type))
	}
	data, mt, err := l.fetch(ctx, it)
	if err != nil {
		return nil, nil, "", err
	}
	return it, data, mt, nil
}

func (l *Library) fetch(ctx context.Context, it *model.ContentItem) ([]byte, string, error) {
	data, mt, err := l.media.Fetch(ctx, it.Content)
	if err != nil {
		return nil, "", model.NewStoreError("fetchMedia", err)
	}
	if mt == "" {
		mt = it.MimeType
	}
	return data, mt, nil
}

// organizeText prefers derived text over raw payloads.
func organizeText(it model.ContentItem) string {
	switch {
	case it.Summary != "":
		return it.Summary
	case it.Transcription != "":
		return it.Transcription
	case it.AIAnalysis != "":
		return it.AIAnalysis
	}
	return it.Content
}

// compile-time check that the media resolver satisfies Media
var _ Media = (*media.Resolver)(nil)
