package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *types.Snapshot {
	down := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &types.Snapshot{
		Containers: map[string]*types.ContainerState{
			"shop_bi_api": {
				Name:          "shop_bi_api",
				Status:        types.StatusExited,
				LastCheck:     down,
				DowntimeStart: &down,
				LastStatus:    types.StatusExited,
			},
		},
		LastUpdate: down,
	}
}

// TestHealthHandler tests the /health endpoint
func TestHealthHandler(t *testing.T) {
	hs := NewHealthServer(nil, "1.0.0")

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{name: "GET request succeeds", method: http.MethodGet, expectedStatus: http.StatusOK},
		{name: "POST request fails", method: http.MethodPost, expectedStatus: http.StatusMethodNotAllowed},
		{name: "DELETE request fails", method: http.MethodDelete, expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			hs.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

				var response HealthResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "1.0.0", response.Version)
				assert.NotZero(t, response.Timestamp)
			}
		})
	}
}

// TestReadyHandler tests readiness against the component registry
func TestReadyHandler(t *testing.T) {
	hs := NewHealthServer(nil, "")

	metrics.UpdateComponent(metrics.ComponentStateStore, true, "")
	metrics.UpdateComponent(metrics.ComponentRuntime, false, "connection refused")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not ready", response.Status)
	assert.Contains(t, response.Checks[metrics.ComponentRuntime], "connection refused")
	assert.NotEmpty(t, response.Message)

	metrics.UpdateComponent(metrics.ComponentRuntime, true, "")

	w = httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, "ready", response.Checks[metrics.ComponentStateStore])
}

func TestHealthHandlerDegraded(t *testing.T) {
	hs := NewHealthServer(nil, "")

	metrics.UpdateComponent(metrics.ComponentEventStream, false, "stream closed")
	defer metrics.UpdateComponent(metrics.ComponentEventStream, true, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	hs.healthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "degraded", response.Status)
	assert.Contains(t, response.Components[metrics.ComponentEventStream], "stream closed")
}

func TestReadyHandlerMethodValidation(t *testing.T) {
	hs := NewHealthServer(nil, "")

	req := httptest.NewRequest(http.MethodPost, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStateHandler(t *testing.T) {
	hs := NewHealthServer(sampleState, "")

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	w := httptest.NewRecorder()
	hs.stateHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))

	containers := doc["containers"].(map[string]interface{})
	api := containers["shop_bi_api"].(map[string]interface{})
	assert.Equal(t, "exited", api["status"])
	assert.Nil(t, api["health"])
	assert.Equal(t, "2024-05-01T09:00:00Z", api["downtime_start"])
	assert.Equal(t, "2024-05-01T09:00:00Z", doc["last_update"])
}

func TestStateHandlerWithoutSource(t *testing.T) {
	hs := NewHealthServer(nil, "")

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	w := httptest.NewRecorder()
	hs.stateHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestRoutes verifies every endpoint is mounted on the mux
func TestRoutes(t *testing.T) {
	hs := NewHealthServer(sampleState, "")

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{path: "/health", expectedStatus: http.StatusOK},
		{path: "/state", expectedStatus: http.StatusOK},
		{path: "/metrics", expectedStatus: http.StatusOK},
		{path: "/nonexistent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			hs.mux.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Path: %s", tt.path)
		})
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	hs := NewHealthServer(nil, "")
	assert.NoError(t, hs.Shutdown(context.Background()))
	assert.Error(t, hs.Serve())
}

func TestListenServeShutdown(t *testing.T) {
	hs := NewHealthServer(sampleState, "1.0.0")
	require.NoError(t, hs.Listen("127.0.0.1:0"))

	served := make(chan error, 1)
	go func() { served <- hs.Serve() }()

	resp, err := http.Get("http://" + hs.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, hs.Shutdown(context.Background()))
	assert.NoError(t, <-served)
}

func TestListenAddressInUse(t *testing.T) {
	first := NewHealthServer(nil, "")
	require.NoError(t, first.Listen("127.0.0.1:0"))
	defer first.listener.Close()

	second := NewHealthServer(nil, "")
	err := second.Listen(first.Addr())
	require.Error(t, err)
	assert.Contains(t, err.Error(), first.Addr())
	assert.Empty(t, second.Addr())
}

func BenchmarkHealthHandler(b *testing.B) {
	hs := NewHealthServer(nil, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		hs.healthHandler(w, req)
	}
}
