package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/cuemby/vigil/pkg/types"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSnapshot(t *testing.T) {
	text.DisableColors()
	defer text.EnableColors()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	down := now.Add(-90 * time.Minute)
	snap := &types.Snapshot{
		Containers: map[string]*types.ContainerState{
			"shop_bi_web": {Name: "shop_bi_web", Status: types.StatusRunning, Health: types.HealthHealthy, LastCheck: now},
			"shop_bi_api": {Name: "shop_bi_api", Status: types.StatusExited, LastCheck: now, DowntimeStart: &down},
		},
		LastUpdate: now,
	}

	var buf bytes.Buffer
	renderSnapshot(&buf, snap, now)
	out := buf.String()

	assert.Contains(t, out, "CONTAINER")
	assert.Contains(t, out, "shop_bi_web")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "1h 30m")
	assert.Contains(t, out, "2 containers, 1 unavailable")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("shop_bi_api")), bytes.Index(buf.Bytes(), []byte("shop_bi_web")))
}

func TestRenderEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	renderSnapshot(&buf, &types.Snapshot{Containers: map[string]*types.ContainerState{}}, time.Now())
	assert.Contains(t, buf.String(), "No containers recorded yet")
}

func TestReportObservation(t *testing.T) {
	text.DisableColors()
	defer text.EnableColors()

	tests := []struct {
		name      string
		obs       types.Observation
		available bool
		line      string
	}{
		{"running", types.Observation{Status: types.StatusRunning, Exists: true}, true, "api: status=running health=-"},
		{"healthy", types.Observation{Status: types.StatusRunning, Health: types.HealthHealthy, Exists: true}, true, "health=healthy"},
		{"starting", types.Observation{Status: types.StatusRunning, Health: types.HealthStarting, Exists: true}, false, "health=starting"},
		{"missing", types.NotFound(), false, "status=not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := reportObservation(&buf, "api", tt.obs)
			assert.Contains(t, buf.String(), tt.line)
			if tt.available {
				require.NoError(t, err)
				assert.Contains(t, buf.String(), "available")
			} else {
				assert.EqualError(t, err, "api is unavailable")
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "Vigil version dev")
}
