package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/events"
)

// ChangeChannel is the NOTIFY channel written by the content_items trigger.
const ChangeChannel = "content_items_changed"

// Sink receives decoded notifications.
type Sink interface {
	Publish(c events.Change)
	Broadcast(c events.Change)
}

// Listener holds one dedicated connection LISTENing on ChangeChannel and
// forwards every notification to a Sink. It reconnects with exponential
// backoff and broadcasts a resync after each reconnect.
type Listener struct {
	dsn  string
	sink Sink
	log  zerolog.Logger

	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewListener returns a listener; call Run to start it.
func NewListener(dsn string, sink Sink, log zerolog.Logger) *Listener {
	return &Listener{
		dsn:             dsn,
		sink:            sink,
		log:             log,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = l.initialInterval
	exp.MaxInterval = l.maxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	connectedBefore := false
	for {
		err := l.listen(ctx, func() {
			exp.Reset()
			if connectedBefore {
				l.sink.Broadcast(events.Change{Op: events.OpResync})
			}
			connectedBefore = true
		})
		if ctx.Err() != nil {
			return
		}

		wait := exp.NextBackOff()
		l.log.Warn().Err(err).Dur("retry_in", wait).Msg("change listener disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (l *Listener) listen(ctx context.Context, onListening func()) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info().Str("channel", ChangeChannel).Msg("change listener attached")
	onListening()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var c events.Change
		if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
			l.log.Warn().Err(err).Str("payload", n.Payload).Msg("ignoring malformed change notification")
			continue
		}
		l.sink.Publish(c)
	}
}
