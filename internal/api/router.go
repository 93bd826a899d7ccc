// Package api exposes the diary over HTTP: JSON endpoints for items, AI
// actions and account settings, plus a server-sent event stream of item
// snapshots.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/api/recovery"
	"github.com/thekoushikdurgas/diary/internal/api/respond"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/services"
	"github.com/thekoushikdurgas/diary/internal/session"
)

// maxBodyBytes bounds request bodies; media uploads arrive as data URIs.
const maxBodyBytes = 32 << 20

// idPattern restricts {id} to row ids so literal siblings such as
// /api/items/stream never match it.
const idPattern = "{id:[0-9a-fA-F-]{36}}"

// HealthReporter is the aggregated service health.
type HealthReporter interface {
	IsHealthy() bool
	Unhealthy() []string
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Library       *services.Library
	Preferences   *session.Preferences
	Authenticator auth.Authenticator
	// Auth is the auth service client; nil answers auth routes with 503.
	Auth session.AuthAPI
	// Health may be nil, in which case /api/health always reports UP.
	Health HealthReporter
	Log    zerolog.Logger
	// StreamHeartbeat is the SSE keep-alive interval (default 25s).
	StreamHeartbeat time.Duration
}

// Handler holds the endpoint implementations.
type Handler struct {
	lib       *services.Library
	prefs     *session.Preferences
	auth      session.AuthAPI
	heartbeat time.Duration
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	h := &Handler{lib: d.Library, prefs: d.Preferences, auth: d.Auth, heartbeat: d.StreamHeartbeat}
	if h.heartbeat <= 0 {
		h.heartbeat = 25 * time.Second
	}
	authed := func(fn http.HandlerFunc) http.Handler { return requireAuth(d.Authenticator)(fn) }

	r := mux.NewRouter()
	r.Use(instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.WriteNotFound(w, "No such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health and metrics
	health := NewHealthHandler(d.Health)
	r.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth
	r.HandleFunc("/api/auth/signup", h.SignUp).Methods("POST")
	r.HandleFunc("/api/auth/login", h.LogIn).Methods("POST")
	r.HandleFunc("/api/auth/refresh", h.Refresh).Methods("POST")
	r.HandleFunc("/api/auth/recover", h.Recover).Methods("POST")
	r.Handle("/api/auth/logout", authed(h.LogOut)).Methods("POST")

	// Account
	r.Handle("/api/me", authed(h.GetMe)).Methods("GET")
	r.Handle("/api/me", authed(h.UpdateMe)).Methods("PATCH")
	r.Handle("/api/me/settings", authed(h.UpdateSettings)).Methods("PUT")

	// Items
	r.Handle("/api/items", authed(h.ListItems)).Methods("GET")
	r.Handle("/api/items", authed(h.CreateItem)).Methods("POST")
	r.Handle("/api/items:batchUpdate", authed(h.BatchUpdate)).Methods("POST")
	r.Handle("/api/items/stream", authed(h.StreamItems)).Methods("GET")
	r.Handle("/api/items/"+idPattern, authed(h.GetItem)).Methods("GET")
	r.Handle("/api/items/"+idPattern, authed(h.UpdateItem)).Methods("PATCH")
	r.Handle("/api/items/"+idPattern, authed(h.DeleteItem)).Methods("DELETE")
	r.Handle("/api/items/"+idPattern+"/media", authed(h.GetMedia)).Methods("GET")

	// On-demand AI
	r.Handle("/api/items/"+idPattern+"/analyze", authed(h.Analyze)).Methods("POST")
	r.Handle("/api/items/"+idPattern+"/transcribe", authed(h.Transcribe)).Methods("POST")
	r.Handle("/api/items/"+idPattern+"/summarize", authed(h.Summarize)).Methods("POST")
	r.Handle("/api/items/"+idPattern+"/edit-image", authed(h.EditImage)).Methods("POST")
	r.Handle("/api/images", authed(h.GenerateImage)).Methods("POST")
	r.Handle("/api/organize", authed(h.Organize)).Methods("POST")
	r.Handle("/api/chat", authed(h.Chat)).Methods("POST")

	return requestLogger(d.Log)(recovery.Middleware(r))
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case optional && errors.Is(err, io.EOF):
		return true
	case errors.As(err, &tooLarge):
		respond.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		respond.WriteBadRequest(w, "Invalid JSON")
	}
	return false
}

// principal returns the caller set by requireAuth.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
