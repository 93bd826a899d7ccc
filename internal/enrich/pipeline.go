// Package enrich derives category and tags for freshly created items in the
// background.
//
// Each created item gets exactly one detached job. The job reduces the item
// to text (transcribing audio, summarizing a URL), asks the model for a
// category and tags, merges the tags and writes everything back with a single
// update. A failing step ends the job; the error goes to the task runner's
// error boundary and the item stays unenriched. There is no retry.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/tasks"
)

// JobKind labels enrichment jobs in task metrics and logs.
const JobKind = "enrich"

// Items is the slice of the content gateway the pipeline writes through.
type Items interface {
	Get(ctx context.Context, userID, id string) (*model.ContentItem, error)
	Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error)
}

// Model is the slice of the AI gateway the pipeline calls.
type Model interface {
	TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error)
	SummarizeContent(ctx context.Context, text string, kind ai.SummaryKind) (string, error)
	CategorizeAndTag(ctx context.Context, in ai.CategorizeInput) (*ai.Categorization, error)
}

// Fetcher loads a stored binary payload (data URI or object reference).
type Fetcher interface {
	Fetch(ctx context.Context, content string) ([]byte, string, error)
}

// Submitter starts a detached job.
type Submitter interface {
	Submit(ctx context.Context, kind, key string, job tasks.Job) error
}

// Pipeline wires the enrichment steps to their collaborators.
type Pipeline struct {
	items   Items
	model   Model
	fetcher Fetcher
	runner  Submitter
	log     zerolog.Logger
}

// New returns a pipeline.
func New(items Items, m Model, fetcher Fetcher, runner Submitter, log zerolog.Logger) *Pipeline {
	return &Pipeline{items: items, model: m, fetcher: fetcher, runner: runner, log: log}
}

// Enqueue submits one detached enrichment job for a just-created item and
// returns immediately. The job outlives ctx's cancellation.
func (p *Pipeline) Enqueue(ctx context.Context, userID string, item *model.ContentItem) error {
	if item == nil {
		return fmt.Errorf("enqueue: nil item")
	}
	snapshot := *item
	return p.runner.Submit(ctx, JobKind, item.ID, tasks.Func(func(ctx context.Context) error {
		_, err := p.Run(ctx, userID, snapshot)
		return err
	}))
}

// Run executes the enrichment steps for item synchronously and returns the
// updated row.
func (p *Pipeline) Run(ctx context.Context, userID string, item model.ContentItem) (*model.ContentItem, error) {
	log := p.log.With().Str("item_id", item.ID).Str("type", string(item.Type)).Logger()

	var (
		patch model.Patch
		input ai.CategorizeInput
	)
	switch item.Type {
	case model.TypeAudio:
		data, mt, err := p.fetcher.Fetch(ctx, item.Content)
		if err != nil {
			return nil, fmt.Errorf("fetch audio %s: %w", item.ID, err)
		}
		if mt == "" {
			mt = item.MimeType
		}
		transcript, err := p.model.TranscribeAudio(ctx, data, mt)
		if err != nil {
			return nil, fmt.Errorf("transcribe %s: %w", item.ID, err)
		}
		transcript = strings.TrimSpace(transcript)
		if transcript == "" {
			return nil, fmt.Errorf("transcribe %s: empty transcript", item.ID)
		}
		patch.Transcription = &transcript
		input = ai.CategorizeInput{Type: model.TypeText, Content: transcript}

	case model.TypeURL:
		summary, err := p.model.SummarizeContent(ctx, item.Content, ai.SummaryURL)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", item.ID, err)
		}
		summary = strings.TrimSpace(summary)
		if summary == "" {
			return nil, fmt.Errorf("summarize %s: empty summary", item.ID)
		}
		patch.Summary = &summary
		input = ai.CategorizeInput{Type: model.TypeText, Content: summary}

	case model.TypeImage, model.TypeAIImage:
		data, mt, err := p.fetcher.Fetch(ctx, item.Content)
		if err != nil {
			return nil, fmt.Errorf("fetch image %s: %w", item.ID, err)
		}
		if mt == "" {
			mt = item.MimeType
		}
		input = ai.CategorizeInput{Type: item.Type, Data: data, MimeType: mt}

	default:
		input = ai.CategorizeInput{Type: item.Type, Content: item.Content}
	}

	cat, err := p.model.CategorizeAndTag(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("categorize %s: %w", item.ID, err)
	}
	if cat.Category == "" {
		return nil, fmt.Errorf("categorize %s: empty category", item.ID)
	}

	// Merge into the latest stored tags rather than the creation snapshot so
	// tags a user added meanwhile survive.
	current, err := p.items.Get(ctx, userID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", item.ID, err)
	}
	tags := model.MergeTags(current.Tags, cat.Tags)
	category := cat.Category
	patch.Category = &category
	patch.Tags = &tags

	updated, err := p.items.Update(ctx, userID, item.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("write back %s: %w", item.ID, err)
	}
	log.Debug().Str("category", category).Strs("tags", tags).Msg("item enriched")
	return updated, nil
}
