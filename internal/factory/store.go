package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/events"
	storepkg "github.com/thekoushikdurgas/diary/internal/store"
	storepg "github.com/thekoushikdurgas/diary/internal/store/postgres"
	storesqlite "github.com/thekoushikdurgas/diary/internal/store/sqlite"
)

// NewStore returns the store.Store selected by cfg.DBDriver, with change
// notifications flowing into broker. For Postgres this starts the LISTEN
// loop, which runs until ctx is done.
func NewStore(ctx context.Context, cfg *config.Config, broker *events.Broker, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("DIARY_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		st, err := storepg.New(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		listener := storepg.NewListener(cfg.PostgresDSN, broker, log.With().Str("component", "change-listener").Logger())
		go listener.Run(ctx)
		log.Debug().Str("driver", cfg.DBDriver).Msg("store ready")
		return st, nil

	case "sqlite":
		st, err := storesqlite.New(ctx, cfg.SQLitePath, broker, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store ready")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
