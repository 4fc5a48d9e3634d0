// Package instrument times HTTP handlers, gRPC calls and registered
// functions with a timing.Timer.
package instrument

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/psantana5/exectime/pkg/timing"
)

// Labeler names the operation a request represents.
type Labeler func(*http.Request) string

// RouteLabel labels a request "METHOD /route/{template}" when gorilla/mux
// matched it, otherwise "METHOD /url/path".
func RouteLabel(r *http.Request) string {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			path = tpl
		}
	}
	return r.Method + " " + path
}

// StatusError is reported for responses with a 5xx status. The handler has
// already written the response; the error exists only in the timing result.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// HTTPMiddleware times every request through t. Responses with status 500 or
// above are reported as failures. A panicking handler is reported and the
// panic continues to the server.
func HTTPMiddleware(t *timing.Timer, labeler Labeler) func(http.Handler) http.Handler {
	if labeler == nil {
		labeler = RouteLabel
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			served := false
			err := t.Run(labeler(r), func() error {
				served = true
				next.ServeHTTP(rec, r)
				if rec.status >= http.StatusInternalServerError {
					return &StatusError{Code: rec.status}
				}
				return nil
			})
			if err != nil && !served {
				// unusable label, serve untimed
				next.ServeHTTP(w, r)
			}
		})
	}
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
