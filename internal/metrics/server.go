// Package metrics exposes console counters to Prometheus and, when an address
// is configured, serves them next to a health probe for the session's lifetime.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(context.Context) error

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	rpcHealth  HealthFunc
	sinkHealth HealthFunc
}

// NewServer serves /metrics and /health on addr. Either health func may be nil.
func NewServer(addr string, reg *Registry, rpcHealth, sinkHealth HealthFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger, rpcHealth: rpcHealth, sinkHealth: sinkHealth}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Start blocks until the listener fails or Shutdown is called, in which case
// it returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("metrics listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type dependencyStatus struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

func probe(ctx context.Context, fn HealthFunc) dependencyStatus {
	if fn == nil {
		return dependencyStatus{Connected: true}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		return dependencyStatus{Error: err.Error()}
	}
	return dependencyStatus{
		Connected: true,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rpc := probe(r.Context(), s.rpcHealth)
	journal := probe(r.Context(), s.sinkHealth)

	status := "healthy"
	if !rpc.Connected || !journal.Connected {
		status = "degraded"
	}

	resp := struct {
		Status  string           `json:"status"`
		RPC     dependencyStatus `json:"rpc"`
		Journal dependencyStatus `json:"journal"`
	}{
		Status:  status,
		RPC:     rpc,
		Journal: journal,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", uuid.NewString())
		}
		w.Header().Set("X-Request-Id", r.Header.Get("X-Request-Id"))
		next.ServeHTTP(w, r)
	})
}
