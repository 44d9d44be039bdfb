package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesListsEveryTransform(t *testing.T) {
	assert.Equal(t, []string{AutoEdges, ColorFilter, Edges, Faces, Grayscale, Original}, Names())
	for _, name := range Names() {
		a, ok := Get(name)
		require.True(t, ok)
		assert.NotEmpty(t, a.GetName())
		assert.NotEmpty(t, a.GetDescription())
	}
}

func TestBuildUnknown(t *testing.T) {
	_, err := Build("sharpen", nil, Env{})
	assert.Error(t, err)
	assert.False(t, IsValidAlgorithm("sharpen"))
}

func TestBuildAppliesDefaultsAndValidates(t *testing.T) {
	fn, err := Build(Edges, nil, Env{})
	require.NoError(t, err)

	src := patternFrame(12, 12)
	defer src.Close()
	out, err := fn(src)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 1, out.Channels())

	_, err = Build(Edges, map[string]interface{}{"low_threshold": 220.0, "high_threshold": 10.0}, Env{})
	assert.Error(t, err)

	_, err = Build(AutoEdges, map[string]interface{}{"sigma": -1.0}, Env{})
	assert.Error(t, err)
}

func TestBuildFacesNeedsDetector(t *testing.T) {
	_, err := Build(Faces, nil, Env{})
	assert.Error(t, err)
}

func TestBuildColorFilterPresets(t *testing.T) {
	blue := ColorRange{Lower: HSV{100, 150, 0}, Upper: HSV{140, 255, 255}}
	env := Env{Colors: map[string]ColorRange{"blue": blue}}

	_, err := Build(ColorFilter, map[string]interface{}{"preset": "blue"}, env)
	assert.NoError(t, err)

	_, err = Build(ColorFilter, map[string]interface{}{"preset": "ultraviolet"}, env)
	assert.Error(t, err)

	_, err = Build(ColorFilter, map[string]interface{}{"upper_h": 400.0}, env)
	assert.Error(t, err)

	fn, err := Build(ColorFilter, nil, Env{})
	require.NoError(t, err, "red works without any configured presets")

	src := solid(0, 0, 255, 4, 4)
	defer src.Close()
	out, err := fn(src)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, src.ToBytes(), out.ToBytes())
}

func TestOriginalReturnsIndependentCopy(t *testing.T) {
	fn, err := Build(Original, nil, Env{})
	require.NoError(t, err)

	src := solid(1, 2, 3, 2, 2)
	defer src.Close()
	out, err := fn(src)
	require.NoError(t, err)
	defer out.Close()

	out.SetUCharAt(0, 0, 99)
	assert.Equal(t, uint8(1), src.GetUCharAt(0, 0))
}

func TestParamReadersAcceptAnyNumber(t *testing.T) {
	th := ThresholdsParam(map[string]interface{}{"low_threshold": 40, "high_threshold": float32(90)})
	assert.Equal(t, Thresholds{Low: 40, High: 90}, th)

	th = ThresholdsParam(map[string]interface{}{"low_threshold": "loud"})
	assert.Equal(t, Thresholds{Low: DefaultLowThreshold, High: DefaultHighThreshold}, th, "non-numeric values fall back")

	assert.Equal(t, DefaultSigma, SigmaParam(nil))
	assert.Equal(t, 0.5, SigmaParam(map[string]interface{}{"sigma": 0.5}))
}
