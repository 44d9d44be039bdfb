// Package config holds the tunable defaults of the camera tools and reads
// overrides from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"ipcam-vision/internal/algorithms"
)

// Config is the complete runtime configuration.
type Config struct {
	// CascadePath points at the Haar cascade XML used for face detection.
	// Relative paths that do not exist fall back to the OpenCV install dirs.
	CascadePath string `yaml:"cascade_path"`

	Faces  FaceConfig                       `yaml:"faces"`
	Edges  EdgeConfig                       `yaml:"edges"`
	Video  VideoConfig                      `yaml:"video"`
	Stream StreamConfig                     `yaml:"stream"`
	Colors map[string]algorithms.ColorRange `yaml:"colors"`
}

type FaceConfig struct {
	ScaleFactor  float64        `yaml:"scale_factor"`
	MinNeighbors int            `yaml:"min_neighbors"`
	Color        algorithms.BGR `yaml:"color"` // BGR, blue by default
	Thickness    int            `yaml:"thickness"`
}

type EdgeConfig struct {
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
	Sigma float64 `yaml:"sigma"`
}

type VideoConfig struct {
	WindowName string `yaml:"window_name"`
	// PollDelay is how long each iteration waits for the stop key.
	PollDelay   time.Duration `yaml:"poll_delay"`
	StopKey     string        `yaml:"stop_key"`
	RecordFPS   float64       `yaml:"record_fps"`
	RecordCodec string        `yaml:"record_codec"`
}

// StreamConfig shapes the URL built from an IP address and port.
type StreamConfig struct {
	Scheme string `yaml:"scheme"`
	Path   string `yaml:"path"`
	// PollDelay replaces video.poll_delay for live streams.
	PollDelay time.Duration `yaml:"poll_delay"`
}

// Default returns the built-in configuration.
func Default() Config {
	face := algorithms.DefaultFaceOptions()
	return Config{
		CascadePath: filepath.Join("data", algorithms.DefaultCascade),
		Faces: FaceConfig{
			ScaleFactor:  face.ScaleFactor,
			MinNeighbors: face.MinNeighbors,
			Color:        face.Color,
			Thickness:    face.Thickness,
		},
		Edges: EdgeConfig{
			Low:   algorithms.DefaultLowThreshold,
			High:  algorithms.DefaultHighThreshold,
			Sigma: algorithms.DefaultSigma,
		},
		Video: VideoConfig{
			WindowName:  "Processed Video",
			PollDelay:   25 * time.Millisecond,
			StopKey:     "q",
			RecordFPS:   25,
			RecordCodec: "MJPG",
		},
		Stream: StreamConfig{
			Scheme:    "http",
			Path:      "/video",
			PollDelay: time.Millisecond,
		},
		Colors: map[string]algorithms.ColorRange{
			"red": algorithms.Red,
		},
	}
}

// Load reads path on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.CascadePath == "" {
		errs = append(errs, errors.New("cascade_path must be set"))
	}
	if err := c.FaceOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("faces: %w", err))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("edges: %w", err))
	}
	if c.Edges.Sigma < 0 {
		errs = append(errs, fmt.Errorf("edges: sigma must not be negative, got %v", c.Edges.Sigma))
	}
	if c.Video.PollDelay < time.Millisecond {
		errs = append(errs, fmt.Errorf("video: poll_delay must be at least 1ms, got %v", c.Video.PollDelay))
	}
	if c.Stream.PollDelay < time.Millisecond {
		errs = append(errs, fmt.Errorf("stream: poll_delay must be at least 1ms, got %v", c.Stream.PollDelay))
	}
	if utf8.RuneCountInString(c.Video.StopKey) != 1 {
		errs = append(errs, fmt.Errorf("video: stop_key must be one character, got %q", c.Video.StopKey))
	}
	if c.Video.RecordFPS <= 0 {
		errs = append(errs, fmt.Errorf("video: record_fps must be positive, got %v", c.Video.RecordFPS))
	}
	if len(c.Video.RecordCodec) != 4 {
		errs = append(errs, fmt.Errorf("video: record_codec must be a fourcc, got %q", c.Video.RecordCodec))
	}
	for name, r := range c.Colors {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("colors.%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func (c Config) FaceOptions() algorithms.FaceOptions {
	return algorithms.FaceOptions{
		ScaleFactor:  c.Faces.ScaleFactor,
		MinNeighbors: c.Faces.MinNeighbors,
		Color:        c.Faces.Color,
		Thickness:    c.Faces.Thickness,
	}
}

func (c Config) Thresholds() algorithms.Thresholds {
	return algorithms.Thresholds{Low: float32(c.Edges.Low), High: float32(c.Edges.High)}
}

// StopRune is the key that ends a video loop.
func (c Config) StopRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Video.StopKey)
	return r
}
