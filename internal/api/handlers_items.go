package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/api/validate"
	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// itemView is the wire form of an item: the stored fields plus the
// awaiting-enrichment display hint.
type itemView struct {
	model.ContentItem
	AIPending bool `json:"aiPending"`
}

func viewOf(it *model.ContentItem, now time.Time) itemView {
	return itemView{ContentItem: *it, AIPending: it.AIPending(now)}
}

func viewsOf(items []model.ContentItem, now time.Time) []itemView {
	out := make([]itemView, 0, len(items))
	for i := range items {
		out = append(out, viewOf(&items[i], now))
	}
	return out
}

type listResponse struct {
	Items []itemView `json:"items"`
	Count int        `json:"count"`
}

func itemID(r *http.Request) string { return mux.Vars(r)["id"] }

// ListItems GET /api/items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.lib.List(r.Context(), principal(r).UserID)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, listResponse{Items: viewsOf(items, time.Now()), Count: len(items)})
}

type createItemRequest struct {
	Type    model.ContentType `json:"type"`
	Content string            `json:"content"`
	Tags    []string          `json:"tags,omitempty"`
}

// draft builds the typed draft. Binary payloads are uploaded as data URIs.
func (c createItemRequest) draft() (model.Draft, error) {
	var d model.Draft
	switch {
	case c.Type == model.TypeText:
		d = model.NewTextDraft(c.Content)
	case c.Type == model.TypeURL:
		d = model.NewURLDraft(c.Content)
	case c.Type.IsBinary():
		var err error
		if d, err = media.DraftFromDataURI(c.Type, c.Content); err != nil {
			return model.Draft{}, err
		}
	default:
		return model.Draft{}, model.NewValidationError("type", fmt.Sprintf("unknown content type %q", c.Type))
	}
	if len(c.Tags) > 0 {
		d = d.WithTags(c.Tags...)
	}
	return d, validate.CreateItem(d)
}

// CreateItem POST /api/items
// Returns as soon as the item is stored; enrichment runs in the background.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decode(w, r, &req, false) {
		return
	}
	d, err := req.draft()
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	it, err := h.lib.AddItem(r.Context(), principal(r).UserID, d)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, viewOf(it, time.Now()))
}

// GetItem GET /api/items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.lib.Get(r.Context(), principal(r).UserID, itemID(r))
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, viewOf(it, time.Now()))
}

type updateItemRequest struct {
	Content  *string  `json:"content,omitempty"`
	AddTags  []string `json:"addTags,omitempty"`
	Category *string  `json:"category,omitempty"`
	Priority *int     `json:"priority,omitempty"`
}

// UpdateItem PATCH /api/items/{id}
// Content edits are limited to notes and links; tags are merged, never
// replaced.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decode(w, r, &req, false) {
		return
	}
	if req.Content == nil && len(req.AddTags) == 0 && req.Category == nil && req.Priority == nil {
		respond.WriteErr(w, r, model.NewValidationError("patch", "no fields to update"))
		return
	}

	ctx, userID, id := r.Context(), principal(r).UserID, itemID(r)
	var (
		it  *model.ContentItem
		err error
	)
	if req.Content != nil {
		if it, err = h.lib.EditContent(ctx, userID, id, *req.Content); err != nil {
			respond.WriteErr(w, r, err)
			return
		}
	}
	if len(req.AddTags) > 0 {
		if it, err = h.lib.AddTags(ctx, userID, id, req.AddTags...); err != nil {
			respond.WriteErr(w, r, err)
			return
		}
	}
	if req.Category != nil || req.Priority != nil {
		if it, err = h.lib.Update(ctx, userID, id, model.Patch{Category: req.Category, Priority: req.Priority}); err != nil {
			respond.WriteErr(w, r, err)
			return
		}
	}
	respond.WriteJSON(w, http.StatusOK, viewOf(it, time.Now()))
}

// DeleteItem DELETE /api/items/{id}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.DeleteItem(r.Context(), principal(r).UserID, itemID(r)); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchUpdate POST /api/items:batchUpdate
// Updates are independent; when some fail the rest still apply and the
// response is 502.
func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates []model.ItemUpdate `json:"updates"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.BatchUpdate(req.Updates); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if err := h.lib.BatchUpdate(r.Context(), principal(r).UserID, req.Updates); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMedia GET /api/items/{id}/media
// Offloaded payloads redirect to a short-lived signed URL; inline payloads
// are served directly.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	p, err := h.lib.Media(r.Context(), principal(r).UserID, itemID(r))
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if p.DownloadURL != "" {
		http.Redirect(w, r, p.DownloadURL, http.StatusTemporaryRedirect)
		return
	}
	w.Header().Set("Content-Type", p.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}
