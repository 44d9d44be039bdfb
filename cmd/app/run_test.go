package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/config"
	"ipcam-vision/internal/io"
)

func setup(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	logger, _ = test.NewNullLogger()
}

func TestTransformParamsPreferChangedFlags(t *testing.T) {
	setup(t)
	cfg.Edges.Low = 30

	var f transformFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd, algorithms.Edges)

	p := f.params(cmd)
	assert.Equal(t, 30.0, p["low_threshold"], "unset flags fall back to the config")
	assert.Equal(t, 200.0, p["high_threshold"])
	assert.Equal(t, "red", p["preset"])

	require.NoError(t, cmd.Flags().Set("low", "55"))
	require.NoError(t, cmd.Flags().Set("sigma", "0.5"))
	p = f.params(cmd)
	assert.Equal(t, 55.0, p["low_threshold"])
	assert.Equal(t, 0.5, p["sigma"])
}

func TestCommandError(t *testing.T) {
	setup(t)

	assert.NoError(t, commandError(nil))
	assert.NoError(t, commandError(fmt.Errorf("frame 3: %w", io.ErrRead)), "read failures only end the stream")
	assert.ErrorIs(t, commandError(fmt.Errorf("%w: refused", io.ErrOpen)), io.ErrOpen)
}

func TestBuildTransform(t *testing.T) {
	setup(t)

	_, _, err := buildTransform("sepia", nil)
	assert.Error(t, err)

	fn, release, err := buildTransform(algorithms.Grayscale, configParams("red"))
	require.NoError(t, err)
	defer release()
	assert.NotNil(t, fn)

	cfg.CascadePath = filepath.Join(t.TempDir(), "missing.xml")
	_, _, err = buildTransform(algorithms.Faces, nil)
	assert.ErrorIs(t, err, algorithms.ErrCascadeLoad)
}

func TestImageCommandWritesResult(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer src.Close()
	require.True(t, gocv.IMWrite(in, src))

	rootCmd.SetArgs([]string{"image", in, "--transform", algorithms.ColorFilter, "--out", out})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	result := gocv.IMRead(out, gocv.IMReadColor)
	defer result.Close()
	require.False(t, result.Empty())
	assert.Equal(t, gocv.Vecb{0, 0, 255}, result.GetVecbAt(5, 5), "pure red survives the red filter")

	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestImageCommandEdgeTransforms(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")

	src := gocv.NewMatWithSize(40, 40, gocv.MatTypeCV8UC3)
	defer src.Close()
	gocv.Rectangle(&src, image.Rect(10, 10, 30, 30), color.RGBA{R: 255, G: 255, B: 255}, -1)
	require.True(t, gocv.IMWrite(in, src))

	for _, args := range [][]string{
		{"--transform", algorithms.Edges, "--low", "50", "--high", "150"},
		{"--transform", algorithms.AutoEdges, "--sigma", "0.5"},
	} {
		out := filepath.Join(dir, args[1]+".png")
		rootCmd.SetArgs(append([]string{"image", in, "--out", out}, args...))
		require.NoError(t, rootCmd.ExecuteContext(context.Background()), args[1])

		result := gocv.IMRead(out, gocv.IMReadGrayScale)
		require.False(t, result.Empty(), args[1])
		assert.Positive(t, gocv.CountNonZero(result), "%s finds the square's border", args[1])
		result.Close()
	}
}

func TestNewEnvResolvesCascadeFromEnvironment(t *testing.T) {
	setup(t)
	cfg.CascadePath = filepath.Join("nowhere", "face.xml")
	t.Setenv(algorithms.CascadeEnv, "")
	saved := algorithms.CascadeDirs
	algorithms.CascadeDirs = nil
	t.Cleanup(func() { algorithms.CascadeDirs = saved })

	_, _, err := newEnv(true)
	assert.ErrorIs(t, err, algorithms.ErrCascadeLoad)

	env, release, err := newEnv(false)
	require.NoError(t, err)
	defer release()
	assert.Nil(t, env.Faces)
}

func TestWithoutTransform(t *testing.T) {
	names := withoutTransform(algorithms.Names(), algorithms.Faces)
	assert.NotContains(t, names, algorithms.Faces)
	assert.Len(t, names, len(algorithms.Names())-1)
}

type oneFrame struct{ read bool }

func (s *oneFrame) Read(dst *gocv.Mat) error {
	if s.read {
		return io.ErrEndOfStream
	}
	s.read = true
	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(dst)
	return nil
}

func (s *oneFrame) Close() error { return nil }

type waitRecorder struct{ waits []time.Duration }

func (d *waitRecorder) Show(gocv.Mat) error { return nil }

func (d *waitRecorder) PollStop(wait time.Duration) bool {
	d.waits = append(d.waits, wait)
	return false
}

func (d *waitRecorder) Close() error { return nil }

func TestStreamOptionsOverrideVideoPollDelay(t *testing.T) {
	setup(t)
	open := func() (io.FrameSource, error) { return &oneFrame{}, nil }
	identity := func(frame gocv.Mat) (gocv.Mat, error) { return frame.Clone(), nil }

	disp := &waitRecorder{}
	_, err := runPipeline(context.Background(), open, identity, disp)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{cfg.Video.PollDelay}, disp.waits)

	disp = &waitRecorder{}
	_, err = runPipeline(context.Background(), open, identity, disp, streamOptions()...)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond}, disp.waits, "live streams poll every millisecond")
}

func TestImageCommandMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"image", filepath.Join(t.TempDir(), "missing.png"), "--out", "x.png"})
	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, io.ErrLoad)
}
