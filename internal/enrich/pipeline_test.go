package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/content"
	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store/sqlite"
	"github.com/thekoushikdurgas/diary/internal/tasks"
)

// fakeModel records the order of calls and returns canned answers.
type fakeModel struct {
	mu    sync.Mutex
	calls []string
	input []ai.CategorizeInput

	transcript    string
	summary       string
	categorizeErr error
	result        ai.Categorization
}

func (f *fakeModel) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeModel) TranscribeAudio(_ context.Context, data []byte, mimeType string) (string, error) {
	f.record("transcribe:" + mimeType)
	return f.transcript, nil
}

func (f *fakeModel) SummarizeContent(_ context.Context, text string, kind ai.SummaryKind) (string, error) {
	f.record("summarize:" + string(kind))
	return f.summary, nil
}

func (f *fakeModel) CategorizeAndTag(_ context.Context, in ai.CategorizeInput) (*ai.Categorization, error) {
	f.record("categorize:" + string(in.Type))
	f.mu.Lock()
	f.input = append(f.input, in)
	f.mu.Unlock()
	if f.categorizeErr != nil {
		return nil, f.categorizeErr
	}
	out := f.result
	return &out, nil
}

func (f *fakeModel) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fixture struct {
	gw     *content.Gateway
	model  *fakeModel
	runner *tasks.Runner
	pipe   *Pipeline
	errs   chan error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	broker := events.NewBroker()
	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "diary.db"), broker, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		gw:    content.New(st.Items(), broker, zerolog.Nop()),
		model: &fakeModel{},
		errs:  make(chan error, 8),
	}
	f.runner = tasks.NewRunner(tasks.Config{ErrorHandler: func(_, _ string, err error) { f.errs <- err }})
	t.Cleanup(func() { _ = f.runner.Close() })
	f.pipe = New(f.gw, f.model, media.NewResolver(nil, 0), f.runner, zerolog.Nop())
	return f
}

func TestRun_BuyMilk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.result = ai.Categorization{Category: "Personal", Tags: []string{"errand", "shopping"}}

	created, err := f.gw.Create(ctx, "u1", model.NewTextDraft("Buy milk"))
	require.NoError(t, err)

	require.NoError(t, f.pipe.Enqueue(ctx, "u1", created))
	require.NoError(t, f.runner.Wait(ctx))

	got, err := f.gw.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Personal", got.Category)
	assert.Equal(t, []string{"errand", "shopping"}, got.Tags)
	assert.Equal(t, "Buy milk", got.Content)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	assert.Equal(t, []string{"categorize:text"}, f.model.Calls())
	assert.Equal(t, "Buy milk", f.model.input[0].Content)
}

func TestRun_AudioTranscribesBeforeCategorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.transcript = "call the dentist tomorrow"
	f.model.result = ai.Categorization{Category: "Health", Tags: []string{"dentist"}}

	created, err := f.gw.Create(ctx, "u1", model.NewMediaDraft(model.TypeAudio, []byte("opus"), "audio/webm"))
	require.NoError(t, err)

	got, err := f.pipe.Run(ctx, "u1", *created)
	require.NoError(t, err)
	assert.Equal(t, []string{"transcribe:audio/webm", "categorize:text"}, f.model.Calls())
	assert.Equal(t, "call the dentist tomorrow", got.Transcription)
	assert.Equal(t, "Health", got.Category)
	assert.Equal(t, "call the dentist tomorrow", f.model.input[0].Content)
}

func TestRun_AudioEmptyTranscriptStops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.transcript = "  "

	created, err := f.gw.Create(ctx, "u1", model.NewMediaDraft(model.TypeAudio, []byte("opus"), "audio/webm"))
	require.NoError(t, err)

	_, err = f.pipe.Run(ctx, "u1", *created)
	require.Error(t, err)
	assert.Equal(t, []string{"transcribe:audio/webm"}, f.model.Calls())

	got, err := f.gw.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Category)
}

func TestRun_URLSummarizesBeforeCategorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.summary = "The Go release notes."
	f.model.result = ai.Categorization{Category: "Work", Tags: []string{"go"}}

	created, err := f.gw.Create(ctx, "u1", model.NewURLDraft("https://go.dev/doc/devel/release"))
	require.NoError(t, err)

	got, err := f.pipe.Run(ctx, "u1", *created)
	require.NoError(t, err)
	assert.Equal(t, []string{"summarize:url", "categorize:text"}, f.model.Calls())
	assert.Equal(t, "The Go release notes.", got.Summary)
	assert.Equal(t, "Work", got.Category)
}

func TestRun_ImagePassesPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.result = ai.Categorization{Category: "Travel", Tags: []string{"beach"}}

	created, err := f.gw.Create(ctx, "u1", model.NewMediaDraft(model.TypeAIImage, []byte("png"), "image/png"))
	require.NoError(t, err)

	_, err = f.pipe.Run(ctx, "u1", *created)
	require.NoError(t, err)
	in := f.model.input[0]
	assert.Equal(t, model.TypeAIImage, in.Type)
	assert.Equal(t, []byte("png"), in.Data)
	assert.Equal(t, "image/png", in.MimeType)
}

func TestRun_MergesWithLatestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.result = ai.Categorization{Category: "Personal", Tags: []string{"Shopping", "errand"}}

	created, err := f.gw.Create(ctx, "u1", model.NewTextDraft("Buy milk").WithTags("shopping"))
	require.NoError(t, err)
	_, err = f.gw.Update(ctx, "u1", created.ID, model.Patch{Tags: &[]string{"shopping", "urgent"}})
	require.NoError(t, err)

	got, err := f.pipe.Run(ctx, "u1", *created)
	require.NoError(t, err)
	assert.Equal(t, []string{"shopping", "urgent", "errand"}, got.Tags)
}

func TestEnqueue_FailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.model.categorizeErr = &model.AIError{Op: "categorizeAndTag", StatusCode: 500, Err: errors.New("boom")}

	created, err := f.gw.Create(ctx, "u1", model.NewTextDraft("note"))
	require.NoError(t, err)

	require.NoError(t, f.pipe.Enqueue(ctx, "u1", created))
	cancel()

	select {
	case err := <-f.errs:
		var aiErr *model.AIError
		assert.True(t, errors.As(err, &aiErr))
	case <-time.After(time.Second):
		t.Fatal("job error did not reach the error boundary")
	}

	got, err := f.gw.Get(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Category)
}

func TestEnqueue_DetachedFromCancelledCaller(t *testing.T) {
	f := newFixture(t)
	f.model.result = ai.Categorization{Category: "Ideas", Tags: []string{"idea"}}

	created, err := f.gw.Create(context.Background(), "u1", model.NewTextDraft("app idea"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.pipe.Enqueue(ctx, "u1", created))
	require.NoError(t, f.runner.Wait(context.Background()))

	got, err := f.gw.Get(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ideas", got.Category)
}
