package respond

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/content"
	"github.com/thekoushikdurgas/diary/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.NewValidationError("type", "bad"), http.StatusBadRequest},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"invalid token", fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized},
		{"not found", model.NewStoreError("get", model.ErrNotFound), http.StatusNotFound},
		{"batch", &model.StoreError{Op: "batchUpdate", Err: content.ErrBatchFailed}, http.StatusBadGateway},
		{"bad credentials", &model.AuthError{Op: "logIn", StatusCode: 400, Err: auth.ErrRejected}, http.StatusUnauthorized},
		{"auth not configured", &model.AuthError{Op: "logIn", Err: auth.ErrNotConfigured}, http.StatusServiceUnavailable},
		{"auth down", &model.AuthError{Op: "logIn", StatusCode: 503, Err: auth.ErrRejected}, http.StatusBadGateway},
		{"ai key", &model.AIError{Op: "init", Err: ai.ErrMissingAPIKey}, http.StatusServiceUnavailable},
		{"ai quota", &model.AIError{Op: "chat", StatusCode: 429, Err: errors.New("quota")}, http.StatusTooManyRequests},
		{"ai malformed", &model.AIError{Op: "organize", Err: ai.ErrMalformedResponse}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Classify(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
