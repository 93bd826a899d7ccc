package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
	"github.com/thekoushikdurgas/diary/internal/store/migrations"
)

var itemColumns = store.ItemColumns("tags::text")

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens the database, applies migrations and returns the store.
func New(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db, migrations.Postgres, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
// Change notifications come from the table trigger; see Listener.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Store is the Postgres implementation of store.Store.
type Store struct{ db *sql.DB }

func (s *Store) Items() store.Items       { return &items{db: s.db} }
func (s *Store) Profiles() store.Profiles { return &profiles{db: s.db} }
func (s *Store) Settings() store.Settings { return &settings{db: s.db} }
func (s *Store) Close() error             { return s.db.Close() }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface{ Scan(dest ...any) error }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Items ---
type items struct{ db *sql.DB }

func scanItem(r rowScanner) (*model.ContentItem, error) {
	var (
		it   model.ContentItem
		typ  string
		tags []byte
	)
	if err := r.Scan(&it.ID, &it.UserID, &typ, &it.Content, &it.MimeType, &it.CreatedAt,
		&it.Category, &it.Priority, &tags, &it.AIAnalysis, &it.Transcription, &it.Summary); err != nil {
		return nil, notFound(err)
	}
	it.Type = model.ContentType(typ)
	it.CreatedAt = it.CreatedAt.UTC()
	decoded, err := store.DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	it.Tags = decoded
	return &it, nil
}

func (s *items) List(ctx context.Context, userID string) ([]*model.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+itemColumns+`
        FROM content_items WHERE user_id=$1
        ORDER BY created_at DESC, id DESC
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

func (s *items) Get(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+itemColumns+`
        FROM content_items WHERE user_id=$1 AND id=$2
    `, userID, id)
	return scanItem(row)
}

func (s *items) Create(ctx context.Context, userID string, d model.Draft) (*model.ContentItem, error) {
	tags, err := store.EncodeTags(model.NormalizeTags(d.Tags))
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO content_items (id, user_id, type, content, mime_type, tags)
        VALUES ($1,$2,$3,$4,$5,$6::jsonb)
        RETURNING `+itemColumns,
		uuid.New().String(), userID, string(d.Type), d.Content, store.NullIfEmpty(d.MimeType), tags)
	return scanItem(row)
}

func (s *items) Update(ctx context.Context, userID, id string, p model.Patch) (*model.ContentItem, error) {
	assignments, err := store.PatchAssignments(p)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(assignments))
	args := []any{userID, id}
	for _, a := range assignments {
		ph := fmt.Sprintf("$%d", len(args)+1)
		if a.JSON {
			ph += "::jsonb"
		}
		sets = append(sets, a.Column+"="+ph)
		args = append(args, a.Value)
	}
	row := s.db.QueryRowContext(ctx, `
        UPDATE content_items SET `+strings.Join(sets, ", ")+`
        WHERE user_id=$1 AND id=$2
        RETURNING `+itemColumns, args...)
	return scanItem(row)
}

func (s *items) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Profiles ---
type profiles struct{ db *sql.DB }

func (s *profiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	row := s.db.QueryRowContext(ctx, `
        SELECT id, email, full_name, avatar_url, created_at, updated_at
        FROM profiles WHERE id=$1
    `, userID)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *profiles) Upsert(ctx context.Context, in *model.Profile) (*model.Profile, error) {
	out := *in
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO profiles (id, email, full_name, avatar_url)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO UPDATE
        SET email=EXCLUDED.email, full_name=EXCLUDED.full_name,
            avatar_url=EXCLUDED.avatar_url, updated_at=now()
        RETURNING created_at, updated_at
    `, in.ID, in.Email, in.FullName, in.AvatarURL)
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Settings ---
type settings struct{ db *sql.DB }

func (s *settings) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	var out model.UserSettings
	row := s.db.QueryRowContext(ctx, `
        SELECT user_id, theme, default_view, chat_deep_thought, show_ai_pending, updated_at
        FROM user_settings WHERE user_id=$1
    `, userID)
	if err := row.Scan(&out.UserID, &out.Theme, &out.DefaultView, &out.ChatDeepThought, &out.ShowAIPending, &out.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *settings) Upsert(ctx context.Context, in *model.UserSettings) (*model.UserSettings, error) {
	out := *in
	var updated time.Time
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO user_settings (user_id, theme, default_view, chat_deep_thought, show_ai_pending)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE
        SET theme=EXCLUDED.theme, default_view=EXCLUDED.default_view,
            chat_deep_thought=EXCLUDED.chat_deep_thought,
            show_ai_pending=EXCLUDED.show_ai_pending, updated_at=now()
        RETURNING updated_at
    `, in.UserID, in.Theme, in.DefaultView, in.ChatDeepThought, in.ShowAIPending)
	if err := row.Scan(&updated); err != nil {
		return nil, err
	}
	out.UpdatedAt = updated
	return &out, nil
}
