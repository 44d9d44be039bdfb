// Named frame transforms selectable from the command line and the GUI
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Func maps one frame to a new frame owned by the caller. The input is
// never modified.
type Func func(frame gocv.Mat) (gocv.Mat, error)

// Env carries the shared, preloaded dependencies a transform may need.
type Env struct {
	Faces  *FaceDetector
	Colors map[string]ColorRange
}

// Algorithm builds a Func from parameters
type Algorithm interface {
	Build(params map[string]interface{}, env Env) (Func, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for UI generation
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float", "string"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

const (
	Original    = "original"
	Grayscale   = "grayscale"
	Edges       = "edges"
	AutoEdges   = "auto_edges"
	Faces       = "faces"
	ColorFilter = "color_filter"
)

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// Build validates params, fills in defaults for missing keys and returns the transform.
func Build(name string, params map[string]interface{}, env Env) (Func, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return nil, fmt.Errorf("algorithm not found: %s", name)
	}

	merged := algorithm.GetDefaultParams()
	for k, v := range params {
		merged[k] = v
	}
	if err := algorithm.Validate(merged); err != nil {
		return nil, fmt.Errorf("invalid parameters for %s: %w", name, err)
	}
	return algorithm.Build(merged, env)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names returns the registered names in a stable order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// ThresholdsParam reads low_threshold and high_threshold, falling back to the
// Canny defaults for missing or non-numeric values.
func ThresholdsParam(params map[string]interface{}) Thresholds {
	return Thresholds{
		Low:  float32(floatParam(params, "low_threshold", DefaultLowThreshold)),
		High: float32(floatParam(params, "high_threshold", DefaultHighThreshold)),
	}
}

// SigmaParam reads the auto_edges band width.
func SigmaParam(params map[string]interface{}) float64 {
	return floatParam(params, "sigma", DefaultSigma)
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func init() {
	Register(Original, originalAlgorithm{})
	Register(Grayscale, grayscaleAlgorithm{})
	Register(Edges, edgesAlgorithm{})
	Register(AutoEdges, autoEdgesAlgorithm{})
	Register(Faces, facesAlgorithm{})
	Register(ColorFilter, colorFilterAlgorithm{})
}
