package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcam-vision/internal/algorithms"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.3, cfg.Faces.ScaleFactor)
	assert.Equal(t, 5, cfg.Faces.MinNeighbors)
	assert.Equal(t, algorithms.BGR{255, 0, 0}, cfg.Faces.Color)
	assert.Equal(t, 25*time.Millisecond, cfg.Video.PollDelay)
	assert.Equal(t, time.Millisecond, cfg.Stream.PollDelay, "live streams poll the stop key every millisecond")
	assert.Equal(t, filepath.Join("data", algorithms.DefaultCascade), cfg.CascadePath)
	assert.Equal(t, 'q', cfg.StopRune())
	assert.Equal(t, algorithms.Red, cfg.Colors["red"])
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
cascade_path: /opt/cascades/face.xml
faces:
  min_neighbors: 3
edges:
  sigma: 0.5
video:
  poll_delay: 1ms
  stop_key: x
colors:
  blue:
    lower: [100, 150, 0]
    upper: [140, 255, 255]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/cascades/face.xml", cfg.CascadePath)
	assert.Equal(t, 3, cfg.Faces.MinNeighbors)
	assert.Equal(t, 1.3, cfg.Faces.ScaleFactor, "unset keys keep their default")
	assert.Equal(t, 0.5, cfg.Edges.Sigma)
	assert.Equal(t, time.Millisecond, cfg.Video.PollDelay)
	assert.Equal(t, 'x', cfg.StopRune())
	assert.Equal(t, algorithms.HSV{100, 150, 0}, cfg.Colors["blue"].Lower)
	assert.Contains(t, cfg.Colors, "red")
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "inverted thresholds", body: "edges: {low: 200, high: 100}"},
		{name: "scale factor too small", body: "faces: {scale_factor: 1.0}"},
		{name: "poll delay too short", body: "video: {poll_delay: 0s}"},
		{name: "stream poll delay too short", body: "stream: {poll_delay: 500us}"},
		{name: "long stop key", body: "video: {stop_key: quit}"},
		{name: "bad color", body: "colors: {odd: {lower: [50, 0, 0], upper: [10, 255, 255]}}"},
		{name: "not yaml", body: "edges: [unclosed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Faces, cfg.Faces)
	assert.Equal(t, def.Edges, cfg.Edges)
	assert.Equal(t, def.Video, cfg.Video)
	assert.Equal(t, def.Stream, cfg.Stream)
	assert.Equal(t, def.Colors["red"], cfg.Colors["red"])
	assert.Contains(t, cfg.Colors, "blue")
}
