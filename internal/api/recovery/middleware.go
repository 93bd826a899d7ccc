// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
)

var panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "diary",
	Subsystem: "http",
	Name:      "panics_total",
	Help:      "Handler panics recovered, by method.",
}, []string{"method"})

// startedWriter notes whether the handler already sent a status line.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (s *startedWriter) WriteHeader(code int) {
	s.started = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *startedWriter) Write(b []byte) (int, error) {
	s.started = true
	return s.ResponseWriter.Write(b)
}

func (s *startedWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		s.started = true
		f.Flush()
	}
}

func (s *startedWriter) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Middleware recovers a panicking handler, logs it with its stack on the
// request logger and answers with the API's 500 error body. A response that
// has already started (an event stream, say) is cut off instead.
// http.ErrAbortHandler is re-raised so net/http aborts the connection.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &startedWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			panicsTotal.WithLabelValues(r.Method).Inc()
			zerolog.Ctx(r.Context()).Error().Stack().
				Err(errors.Errorf("handler panic: %v", rec)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bool("response_started", sw.started).
				Msg("panic recovered")

			if sw.started {
				panic(http.ErrAbortHandler)
			}
			respond.WriteInternalError(w, "Something went wrong")
		}()
		next.ServeHTTP(sw, r)
	})
}
