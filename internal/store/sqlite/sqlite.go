// Package sqlite is the embedded store driver used for local development, the
// CLI and tests. SQLite has no NOTIFY, so the driver publishes row changes to
// an in-process events.Publisher after each successful write.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
	"github.com/thekoushikdurgas/diary/internal/store/migrations"
)

var itemColumns = store.ItemColumns("tags")

// Store is the SQLite implementation of store.Store.
type Store struct {
	db  *sql.DB
	pub events.Publisher
	now func() time.Time
}

// New opens path, applies migrations and returns the store. pub may be nil.
func New(ctx context.Context, path string, pub events.Publisher, log zerolog.Logger) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db, migrations.SQLite, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db, pub), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB, pub events.Publisher) *Store {
	return &Store{db: db, pub: pub, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Items() store.Items       { return &items{s} }
func (s *Store) Profiles() store.Profiles { return &profiles{s} }
func (s *Store) Settings() store.Settings { return &settings{s} }
func (s *Store) Close() error             { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) publish(op events.Op, userID, id string) {
	if s.pub != nil {
		s.pub.Publish(events.Change{Op: op, UserID: userID, ItemID: id})
	}
}

func toMicros(t time.Time) int64 { return t.UnixMicro() }
func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

type rowScanner interface{ Scan(dest ...any) error }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Items ---
type items struct{ s *Store }

func scanItem(r rowScanner) (*model.ContentItem, error) {
	var (
		it      model.ContentItem
		typ     string
		created int64
		tags    []byte
	)
	if err := r.Scan(&it.ID, &it.UserID, &typ, &it.Content, &it.MimeType, &created,
		&it.Category, &it.Priority, &tags, &it.AIAnalysis, &it.Transcription, &it.Summary); err != nil {
		return nil, notFound(err)
	}
	it.Type = model.ContentType(typ)
	it.CreatedAt = fromMicros(created)
	decoded, err := store.DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	it.Tags = decoded
	return &it, nil
}

func (i *items) List(ctx context.Context, userID string) ([]*model.ContentItem, error) {
	rows, err := i.s.db.QueryContext(ctx, `
        SELECT `+itemColumns+`
        FROM content_items WHERE user_id=?
        ORDER BY created_at DESC, rowid DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ContentItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (i *items) Get(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	row := i.s.db.QueryRowContext(ctx, `
        SELECT `+itemColumns+`
        FROM content_items WHERE user_id=? AND id=?
    `, userID, id)
	return scanItem(row)
}

func (i *items) Create(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error) {
	tags, err := store.EncodeTags(model.NormalizeTags(d.Tags))
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	if _, err := i.s.db.ExecContext(ctx, `
        INSERT INTO content_items (id, user_id, type, content, mime_type, created_at, tags)
        VALUES (?,?,?,?,?,?,?)
    `, id, userID, string(d.Type), d.Content, store.NullIfEmpty(d.MimeType), toMicros(i.s.now()), tags); err != nil {
		return nil, err
	}
	out, err := i.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	i.s.publish(events.OpInsert, userID, id)
	return out, nil
}

func (i *items) Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error) {
	assignments, err := store.PatchAssignments(p)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(assignments))
	args := make([]any, 0, len(assignments)+2)
	for _, a := range assignments {
		sets = append(sets, a.Column+"=?")
		args = append(args, a.Value)
	}
	args = append(args, userID, id)
	res, err := i.s.db.ExecContext(ctx, `
        UPDATE content_items SET `+strings.Join(sets, ", ")+`
        WHERE user_id=? AND id=?
    `, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	out, err := i.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	i.s.publish(events.OpUpdate, userID, id)
	return out, nil
}

func (i *items) Delete(ctx context.Context, userID, id string) error {
	res, err := i.s.db.ExecContext(ctx, `DELETE FROM content_items WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	i.s.publish(events.OpDelete, userID, id)
	return nil
}

// --- Profiles ---
type profiles struct{ s *Store }

func (p *profiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		out              model.Profile
		created, updated int64
	)
	row := p.s.db.QueryRowContext(ctx, `
        SELECT id, email, full_name, avatar_url, created_at, updated_at
        FROM profiles WHERE id=?
    `, userID)
	if err := row.Scan(&out.ID, &out.Email, &out.FullName, &out.AvatarURL, &created, &updated); err != nil {
		return nil, notFound(err)
	}
	out.CreatedAt = fromMicros(created)
	out.UpdatedAt = fromMicros(updated)
	return &out, nil
}

func (p *profiles) Upsert(ctx context.Context, in *model.Profile) (*model.Profile, error) {
	now := toMicros(p.s.now())
	if _, err := p.s.db.ExecContext(ctx, `
        INSERT INTO profiles (id, email, full_name, avatar_url, created_at, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (id) DO UPDATE
        SET email=excluded.email, full_name=excluded.full_name,
            avatar_url=excluded.avatar_url, updated_at=excluded.updated_at
    `, in.ID, in.Email, in.FullName, in.AvatarURL, now, now); err != nil {
		return nil, err
	}
	return p.Get(ctx, in.ID)
}

// --- Settings ---
type settings struct{ s *Store }

func (st *settings) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	var (
		out     model.UserSettings
		updated int64
	)
	row := st.s.db.QueryRowContext(ctx, `
        SELECT user_id, theme, default_view, chat_deep_thought, show_ai_pending, updated_at
        FROM user_settings WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Theme, &out.DefaultView, &out.ChatDeepThought, &out.ShowAIPending, &updated); err != nil {
		return nil, notFound(err)
	}
	out.UpdatedAt = fromMicros(updated)
	return &out, nil
}

func (st *settings) Upsert(ctx context.Context, in *model.UserSettings) (*model.UserSettings, error) {
	if _, err := st.s.db.ExecContext(ctx, `
        INSERT INTO user_settings (user_id, theme, default_view, chat_deep_thought, show_ai_pending, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (user_id) DO UPDATE
        SET theme=excluded.theme, default_view=excluded.default_view,
            chat_deep_thought=excluded.chat_deep_thought,
            show_ai_pending=excluded.show_ai_pending, updated_at=excluded.updated_at
    `, in.UserID, in.Theme, in.DefaultView, in.ChatDeepThought, in.ShowAIPending, toMicros(st.s.now())); err != nil {
		return nil, err
	}
	return st.Get(ctx, in.UserID)
}
