package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/content"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	}
	WriteJSON(w, statusCode, response)
}

// WriteBadRequest writes a 400 Bad Request response
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized response
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error response
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteErr maps a domain error to its HTTP status and writes it. Server-side
// failures are logged; their detail is not sent to the client.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := Classify(err)
	if status >= 500 {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	WriteError(w, status, msg)
}

// Classify returns the HTTP status and the user-visible message for err.
func Classify(err error) (int, string) {
	var (
		ve      *model.ValidationError
		authErr *model.AuthError
		aiErr   *model.AIError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, model.ErrUnauthenticated),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "Conflicting update"
	case errors.Is(err, content.ErrBatchFailed):
		return http.StatusBadGateway, "Some items could not be updated"
	case errors.As(err, &authErr):
		if authErr.StatusCode >= 400 && authErr.StatusCode < 500 {
			return http.StatusUnauthorized, authErr.Err.Error()
		}
		if errors.Is(err, auth.ErrNotConfigured) {
			return http.StatusServiceUnavailable, "Sign-in is not available"
		}
		return http.StatusBadGateway, "The sign-in service is unavailable"
	case errors.As(err, &aiErr):
		switch {
		case errors.Is(err, ai.ErrMissingAPIKey):
			return http.StatusServiceUnavailable, "AI features are not configured"
		case aiErr.StatusCode == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "AI quota exceeded, try again later"
		case errors.Is(err, ai.ErrMalformedResponse), errors.Is(err, ai.ErrNoImage), errors.Is(err, ai.ErrEmptyResponse):
			return http.StatusBadGateway, "The AI returned an unusable answer, try again"
		default:
			return http.StatusBadGateway, "The AI service failed, try again"
		}
	}
	return http.StatusInternalServerError, "Something went wrong"
}
