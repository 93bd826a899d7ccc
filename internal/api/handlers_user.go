package api

import (
	"net/http"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/api/validate"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
)

type meResponse struct {
	ID       string              `json:"id"`
	Email    string              `json:"email"`
	Profile  *model.Profile      `json:"profile"`
	Settings *model.UserSettings `json:"settings"`
}

// GetMe GET /api/me
// A caller whose profile row does not exist yet (signed in elsewhere) gets
// one created from the token identity.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	prof, settings, err := h.prefs.Get(r.Context(), p.UserID)
	if model.IsNotFound(err) {
		if _, err = h.prefs.SyncProfile(r.Context(), model.User{ID: p.UserID, Email: p.Email}); err == nil {
			prof, settings, err = h.prefs.Get(r.Context(), p.UserID)
		}
	}
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, meResponse{ID: p.UserID, Email: p.Email, Profile: prof, Settings: settings})
}

// UpdateMe PATCH /api/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "updateUser") {
		return
	}
	var req struct {
		Email    *string `json:"email,omitempty"`
		Password *string `json:"password,omitempty"`
		FullName *string `json:"fullName,omitempty"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if req.Email != nil {
		if err := validate.Email(*req.Email); err != nil {
			respond.WriteErr(w, r, err)
			return
		}
	}
	if err := validate.MaxLen("fullName", req.FullName, 200); err != nil {
		respond.WriteErr(w, r, err)
		return
	}

	p := principal(r)
	u, err := h.auth.UpdateUser(r.Context(), p.AccessToken, auth.UserAttributes{
		Email: req.Email, Password: req.Password, FullName: req.FullName,
	})
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	prof, err := h.prefs.SyncProfile(r.Context(), *u)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u, "profile": prof})
}

// UpdateSettings PUT /api/me/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if !decode(w, r, &patch, false) {
		return
	}
	s, err := h.prefs.UpdateSettings(r.Context(), principal(r).UserID, patch)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}
