package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/psantana5/exectime/internal/report"
	"github.com/psantana5/exectime/pkg/instrument"
	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/timing"
)

// Deps are what the HTTP and gRPC surfaces need from the pipeline.
type Deps struct {
	Timer    *timing.Timer
	Stats    *report.Stats
	SlowLog  *report.SlowLog
	Gatherer prometheus.Gatherer
	Logger   *logging.Logger
}

// NewRouter builds the HTTP API. Routes under /api are timed; the
// observability endpoints are not.
func NewRouter(d Deps) *mux.Router {
	if d.Logger == nil {
		d.Logger = logging.NewLogger(logging.INFO, false)
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	r.Use(requestID)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(instrument.HTTPMiddleware(d.Timer, nil))
	api.HandleFunc("/data", handleData).Methods(http.MethodGet)
	api.HandleFunc("/number", handleNumber).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Stats.Snapshot())
	}).Methods(http.MethodGet)
	r.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, d.SlowLog.Recent(n))
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// delay reads ?delay=<duration>, bounded so the demo cannot hang a worker.
func delay(r *http.Request, def time.Duration) time.Duration {
	d, err := time.ParseDuration(r.URL.Query().Get("delay"))
	if err != nil || d < 0 {
		return def
	}
	if d > 10*time.Second {
		return 10 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// handleData succeeds with "Hello World" after ?delay (default 500ms).
func handleData(w http.ResponseWriter, r *http.Request) {
	if err := sleep(r.Context(), delay(r, 500*time.Millisecond)); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"data": "Hello World"})
}

// handleNumber fails with "boom" after ?delay (default 200ms).
func handleNumber(w http.ResponseWriter, r *http.Request) {
	err := sleep(r.Context(), delay(r, 200*time.Millisecond))
	if err == nil {
		err = errors.New("boom")
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewGRPCServer returns a gRPC server with timing interceptors and the
// standard health service registered.
func NewGRPCServer(t *timing.Timer) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(instrument.UnaryServerInterceptor(t)),
		grpc.ChainStreamInterceptor(instrument.StreamServerInterceptor(t)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}
