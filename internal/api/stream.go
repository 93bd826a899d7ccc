package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// StreamItems GET /api/items/stream
// Sends the current snapshot at once and a fresh one after every change, as
// "snapshot" server-sent events. A slow client only ever receives the most
// recent snapshot; older ones are dropped.
func (h *Handler) StreamItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	rc := http.NewResponseController(w)

	latest := make(chan []model.ContentItem, 1)
	sub, err := h.lib.Watch(ctx, principal(r).UserID, func(items []model.ContentItem) {
		// single producer: drop the stale snapshot, keep the new one
		select {
		case <-latest:
		default:
		}
		latest <- items
	})
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	defer sub.Unsubscribe()

	// the server write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Warn().Err(err).Msg("stream: response cannot be flushed")
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case items := <-latest:
			payload, err := json.Marshal(listResponse{Items: viewsOf(items, time.Now()), Count: len(items)})
			if err != nil {
				log.Error().Err(err).Msg("stream: encode snapshot")
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
