package algorithms

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

type originalAlgorithm struct{}

func (originalAlgorithm) Build(map[string]interface{}, Env) (Func, error) {
	return func(frame gocv.Mat) (gocv.Mat, error) {
		if frame.Empty() {
			return gocv.NewMat(), ErrEmptyFrame
		}
		return frame.Clone(), nil
	}, nil
}

func (originalAlgorithm) GetDefaultParams() map[string]interface{} { return map[string]interface{}{} }
func (originalAlgorithm) GetName() string                          { return "Original" }
func (originalAlgorithm) GetDescription() string                   { return "Show frames unchanged" }
func (originalAlgorithm) Validate(map[string]interface{}) error    { return nil }
func (originalAlgorithm) GetParameterInfo() []ParameterInfo        { return nil }

type grayscaleAlgorithm struct{}

func (grayscaleAlgorithm) Build(map[string]interface{}, Env) (Func, error) {
	return ToGrayscale, nil
}

func (grayscaleAlgorithm) GetDefaultParams() map[string]interface{} { return map[string]interface{}{} }
func (grayscaleAlgorithm) GetName() string                          { return "Grayscale" }
func (grayscaleAlgorithm) GetDescription() string                   { return "Convert to shades of gray" }
func (grayscaleAlgorithm) Validate(map[string]interface{}) error    { return nil }
func (grayscaleAlgorithm) GetParameterInfo() []ParameterInfo        { return nil }

type edgesAlgorithm struct{}

func (edgesAlgorithm) Build(params map[string]interface{}, _ Env) (Func, error) {
	t := ThresholdsParam(params)
	return func(frame gocv.Mat) (gocv.Mat, error) {
		return DetectEdges(frame, t)
	}, nil
}

func (edgesAlgorithm) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"low_threshold":  float64(DefaultLowThreshold),
		"high_threshold": float64(DefaultHighThreshold),
	}
}

func (edgesAlgorithm) GetName() string        { return "Canny Edges" }
func (edgesAlgorithm) GetDescription() string { return "Canny edge detection with fixed thresholds" }

func (edgesAlgorithm) Validate(params map[string]interface{}) error {
	return ThresholdsParam(params).Validate()
}

func (edgesAlgorithm) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "low_threshold",
			Type:        "float",
			Min:         0.0,
			Max:         255.0,
			Default:     float64(DefaultLowThreshold),
			Description: "Lower hysteresis threshold",
		},
		{
			Name:        "high_threshold",
			Type:        "float",
			Min:         0.0,
			Max:         255.0,
			Default:     float64(DefaultHighThreshold),
			Description: "Upper hysteresis threshold",
		},
	}
}

type autoEdgesAlgorithm struct{}

func (autoEdgesAlgorithm) Build(params map[string]interface{}, _ Env) (Func, error) {
	sigma := SigmaParam(params)
	return func(frame gocv.Mat) (gocv.Mat, error) {
		edges, _, err := DetectEdgesAuto(frame, sigma)
		return edges, err
	}, nil
}

func (autoEdgesAlgorithm) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{"sigma": DefaultSigma}
}

func (autoEdgesAlgorithm) GetName() string { return "Auto Canny Edges" }
func (autoEdgesAlgorithm) GetDescription() string {
	return "Canny edge detection with thresholds taken around the median intensity"
}

func (autoEdgesAlgorithm) Validate(params map[string]interface{}) error {
	sigma := SigmaParam(params)
	if sigma < 0 || sigma > 2 {
		return fmt.Errorf("sigma must be between 0 and 2")
	}
	return nil
}

func (autoEdgesAlgorithm) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "sigma",
			Type:        "float",
			Min:         0.0,
			Max:         2.0,
			Default:     DefaultSigma,
			Description: "Width of the threshold band around the median",
		},
	}
}

type facesAlgorithm struct{}

func (facesAlgorithm) Build(_ map[string]interface{}, env Env) (Func, error) {
	if env.Faces == nil {
		return nil, errors.New("face detection needs a loaded cascade classifier")
	}
	return env.Faces.Annotate, nil
}

func (facesAlgorithm) GetDefaultParams() map[string]interface{} { return map[string]interface{}{} }
func (facesAlgorithm) GetName() string                          { return "Face Detection" }
func (facesAlgorithm) GetDescription() string {
	return "Draw a box around every frontal face found by the Haar cascade"
}
func (facesAlgorithm) Validate(map[string]interface{}) error { return nil }
func (facesAlgorithm) GetParameterInfo() []ParameterInfo     { return nil }

type colorFilterAlgorithm struct{}

var hsvKeys = [2][3]string{
	{"lower_h", "lower_s", "lower_v"},
	{"upper_h", "upper_s", "upper_v"},
}

// colorRange resolves the preset first, then lets explicit bounds override single channels.
func (colorFilterAlgorithm) colorRange(params map[string]interface{}, presets map[string]ColorRange) (ColorRange, error) {
	r := Red
	if name := stringParam(params, "preset", ""); name != "" {
		preset, ok := presets[name]
		if !ok && name != "red" {
			return ColorRange{}, fmt.Errorf("unknown color preset: %s", name)
		}
		if ok {
			r = preset
		}
	}
	for i := 0; i < 3; i++ {
		r.Lower[i] = floatParam(params, hsvKeys[0][i], r.Lower[i])
		r.Upper[i] = floatParam(params, hsvKeys[1][i], r.Upper[i])
	}
	return r, r.Validate()
}

func (a colorFilterAlgorithm) Build(params map[string]interface{}, env Env) (Func, error) {
	r, err := a.colorRange(params, env.Colors)
	if err != nil {
		return nil, err
	}
	return func(frame gocv.Mat) (gocv.Mat, error) {
		return FilterColor(frame, r)
	}, nil
}

func (colorFilterAlgorithm) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{"preset": "red"}
}

func (colorFilterAlgorithm) GetName() string        { return "Color Filter" }
func (colorFilterAlgorithm) GetDescription() string { return "Keep only pixels inside an HSV range" }

func (colorFilterAlgorithm) Validate(params map[string]interface{}) error {
	for _, keys := range hsvKeys {
		for i, key := range keys {
			v := floatParam(params, key, 0)
			limit := 255.0
			if i == 0 {
				limit = 179
			}
			if v < 0 || v > limit {
				return fmt.Errorf("%s must be between 0 and %v", key, limit)
			}
		}
	}
	return nil
}

func (colorFilterAlgorithm) GetParameterInfo() []ParameterInfo {
	info := []ParameterInfo{{
		Name:        "preset",
		Type:        "string",
		Default:     "red",
		Description: "Named HSV range from the configuration",
	}}
	for _, keys := range hsvKeys {
		for i, key := range keys {
			limit := 255.0
			if i == 0 {
				limit = 179
			}
			info = append(info, ParameterInfo{Name: key, Type: "int", Min: 0.0, Max: limit, Description: "HSV bound override"})
		}
	}
	return info
}
