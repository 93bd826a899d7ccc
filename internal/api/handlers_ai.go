package api

import (
	"net/http"
	"time"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/api/validate"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// writeItem answers an on-demand action with the updated item.
func writeItem(w http.ResponseWriter, r *http.Request, status int, it *model.ContentItem, err error) {
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, status, viewOf(it, time.Now()))
}

// Analyze POST /api/items/{id}/analyze
// The prompt is optional.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req, true) {
		return
	}
	if err := validate.MaxLen("prompt", &req.Prompt, 8000); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	it, err := h.lib.AnalyzeItem(r.Context(), principal(r).UserID, itemID(r), req.Prompt)
	writeItem(w, r, http.StatusOK, it, err)
}

// Transcribe POST /api/items/{id}/transcribe
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	it, err := h.lib.TranscribeItem(r.Context(), principal(r).UserID, itemID(r))
	writeItem(w, r, http.StatusOK, it, err)
}

// Summarize POST /api/items/{id}/summarize
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	it, err := h.lib.SummarizeItem(r.Context(), principal(r).UserID, itemID(r))
	writeItem(w, r, http.StatusOK, it, err)
}

// EditImage POST /api/items/{id}/edit-image
func (h *Handler) EditImage(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Prompt(req.Prompt); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	it, err := h.lib.EditImageItem(r.Context(), principal(r).UserID, itemID(r), req.Prompt)
	writeItem(w, r, http.StatusOK, it, err)
}

// GenerateImage POST /api/images
// The generated image is stored as a new ai_image item.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt      string `json:"prompt"`
		AspectRatio string `json:"aspectRatio,omitempty"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Prompt(req.Prompt); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if err := validate.AspectRatio(req.AspectRatio); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	it, err := h.lib.GenerateImage(r.Context(), principal(r).UserID, req.Prompt, ai.AspectRatio(req.AspectRatio))
	writeItem(w, r, http.StatusCreated, it, err)
}

// Organize POST /api/organize
// An empty id list organizes every item.
func (h *Handler) Organize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids,omitempty"`
	}
	if !decode(w, r, &req, true) {
		return
	}
	for _, id := range req.IDs {
		if err := validate.ItemID(id); err != nil {
			respond.WriteErr(w, r, err)
			return
		}
	}
	organized, err := h.lib.Organize(r.Context(), principal(r).UserID, req.IDs...)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if organized == nil {
		organized = []ai.OrganizedItem{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"organized": organized, "count": len(organized)})
}

// Chat POST /api/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatInput
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Prompt(req.Prompt); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if err := validate.Location(req.Location); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	reply, err := h.lib.Chat(r.Context(), principal(r).UserID, req)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, reply)
}
