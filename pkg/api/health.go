package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/types"
)

// SnapshotSource returns a copy of the current monitor state
type SnapshotSource func() *types.Snapshot

// HealthServer provides HTTP health, metrics and state endpoints
type HealthServer struct {
	state   SnapshotSource
	version string
	mux     *http.ServeMux

	listener net.Listener
	server   *http.Server
}

// NewHealthServer creates a new health check HTTP server. state may be nil,
// in which case /state answers 503.
func NewHealthServer(state SnapshotSource, version string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		state:   state,
		version: version,
		mux:     mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.HandleFunc("/state", hs.stateHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Listen binds addr without serving. Serve must follow.
func (hs *HealthServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	hs.listener = ln
	hs.server = &http.Server{
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// Addr returns the bound address, or "" before Listen
func (hs *HealthServer) Addr() string {
	if hs.listener == nil {
		return ""
	}
	return hs.listener.Addr().String()
}

// Serve handles requests on the bound listener until Shutdown is called
func (hs *HealthServer) Serve() error {
	if hs.server == nil {
		return errors.New("server is not listening")
	}

	logger := log.WithComponent("api")
	logger.Info().Str("addr", hs.Addr()).Msg("HTTP server listening")
	if err := hs.server.Serve(hs.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	if hs.server == nil {
		return nil
	}
	return hs.server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint
// This is a liveness check - returns 200 while the process is alive and
// reports "degraded" when any registered component is unhealthy
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := metrics.GetHealth()
	status := "healthy"
	if health.Status != "healthy" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    hs.version,
		Uptime:     health.Uptime,
		Components: health.Components,
	})
}

// readyHandler implements the /ready endpoint: the runtime must answer and
// the state store must be open
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	readiness := metrics.GetReadiness()

	status := "ready"
	statusCode := http.StatusOK
	if readiness.Status != "ready" {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    readiness.Components,
		Message:   readiness.Message,
	})
}

// stateHandler implements the /state endpoint, returning the snapshot in
// the persisted document format
func (hs *HealthServer) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hs.state == nil {
		http.Error(w, "Monitor not initialized", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, hs.state())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
