package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/api/validate"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/model"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

// authAvailable answers 503 when no auth service is configured.
func (h *Handler) authAvailable(w http.ResponseWriter, r *http.Request, op string) bool {
	if h.auth != nil {
		return true
	}
	respond.WriteErr(w, r, &model.AuthError{Op: op, Err: auth.ErrNotConfigured})
	return false
}

// syncProfile mirrors the identity into the profile row. Failure is logged;
// the sign-in itself already succeeded.
func (h *Handler) syncProfile(ctx context.Context, u model.User) {
	if h.prefs == nil {
		return
	}
	if _, err := h.prefs.SyncProfile(ctx, u); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("profile sync failed")
	}
}

// SignUp POST /api/auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "signUp") {
		return
	}
	var req credentialsRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Credentials(req.Email, req.Password); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	res, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if res.Session != nil {
		h.syncProfile(r.Context(), res.User)
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    res.User,
		"session": res.Session,
	})
}

// LogIn POST /api/auth/login
func (h *Handler) LogIn(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "logIn") {
		return
	}
	var req credentialsRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Email(req.Email); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if err := validate.NonEmpty("password", req.Password); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	s, err := h.auth.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	h.syncProfile(r.Context(), s.User)
	respond.WriteJSON(w, http.StatusOK, s)
}

// Refresh POST /api/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "refresh") {
		return
	}
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.NonEmpty("refreshToken", req.RefreshToken); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	s, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// Recover POST /api/auth/recover
func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "recover") {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req, false) {
		return
	}
	if err := validate.Email(req.Email); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	if err := h.auth.Recover(r.Context(), req.Email); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogOut POST /api/auth/logout
func (h *Handler) LogOut(w http.ResponseWriter, r *http.Request) {
	if !h.authAvailable(w, r, "logOut") {
		return
	}
	if err := h.auth.LogOut(r.Context(), principal(r).AccessToken); err != nil {
		respond.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
