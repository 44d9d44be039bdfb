package gui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/config"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

type recordedRun struct {
	mu        sync.Mutex
	calls     int
	url       string
	transform string
}

func (r *recordedRun) runner(err error) Runner {
	return func(_ context.Context, url, transform string, _ display.Display) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls++
		r.url = url
		r.transform = transform
		return err
	}
}

func (r *recordedRun) snapshot() (int, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.url, r.transform
}

func newTestApplication(t *testing.T, run Runner) *Application {
	t.Helper()
	return newTestApplicationWith(t, algorithms.Names(), run)
}

func newTestApplicationWith(t *testing.T, transforms []string, run Runner) *Application {
	t.Helper()
	app := test.NewApp()
	t.Cleanup(app.Quit)
	logger, _ := logtest.NewNullLogger()
	return NewApplication(app, config.Default(), transforms, run, logger)
}

func TestStartWithEmptyFieldsDoesNotRun(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplication(t, rec.runner(nil))

	test.Tap(a.startButton)
	calls, _, _ := rec.snapshot()
	assert.Zero(t, calls)
	assert.Equal(t, "IP address and port are required", a.status.Text)

	test.Type(a.ipEntry, "10.0.0.5")
	test.Tap(a.startButton)
	calls, _, _ = rec.snapshot()
	assert.Zero(t, calls, "port is still missing")

	a.ipEntry.SetText("   ")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)
	calls, _, _ = rec.snapshot()
	assert.Zero(t, calls, "whitespace counts as empty")
}

func TestStartBuildsStreamURL(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplication(t, rec.runner(nil))
	assert.Equal(t, algorithms.Faces, a.transformSelect.Selected)

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	a.transformSelect.SetSelected(algorithms.Edges)
	test.Tap(a.startButton)

	require.Eventually(t, func() bool {
		calls, _, _ := rec.snapshot()
		return calls == 1
	}, time.Second, 10*time.Millisecond)

	_, url, transform := rec.snapshot()
	assert.Equal(t, "http://10.0.0.5:8080/video", url)
	assert.Equal(t, algorithms.Edges, transform)

	assert.Eventually(t, func() bool {
		return a.status.Text == "Stream closed" && !a.startButton.Disabled()
	}, time.Second, 10*time.Millisecond)
}

func TestStartReportsOpenFailure(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplication(t, rec.runner(fmt.Errorf("%w: refused", io.ErrOpen)))

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "1")
	test.Tap(a.startButton)

	assert.Eventually(t, func() bool {
		return !a.startButton.Disabled() && strings.HasPrefix(a.status.Text, "Error:")
	}, time.Second, 10*time.Millisecond)
}

func TestStartReadFailureIsNotAnError(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplication(t, rec.runner(fmt.Errorf("%w: stream dropped", io.ErrRead)))

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)

	assert.Eventually(t, func() bool {
		return a.status.Text == "Stream ended: cannot read frame: stream dropped"
	}, time.Second, 10*time.Millisecond)
}

func TestStartReportsTransformFailure(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplication(t, rec.runner(errors.New("face detector not loaded")))

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)

	assert.Eventually(t, func() bool {
		return !a.startButton.Disabled() && strings.HasPrefix(a.status.Text, "Error:")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, a.status.Text, "face detector not loaded")
}

func TestTransformListWithoutFaces(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplicationWith(t, []string{algorithms.Edges, algorithms.Grayscale}, rec.runner(nil))

	assert.Equal(t, []string{algorithms.Edges, algorithms.Grayscale}, a.transformSelect.Options)
	assert.Equal(t, algorithms.Edges, a.transformSelect.Selected, "first entry when faces is unavailable")

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)

	require.Eventually(t, func() bool {
		calls, _, _ := rec.snapshot()
		return calls == 1
	}, time.Second, 10*time.Millisecond)
	_, _, transform := rec.snapshot()
	assert.Equal(t, algorithms.Edges, transform)
}

func TestStartWithoutTransformsDoesNotRun(t *testing.T) {
	rec := &recordedRun{}
	a := newTestApplicationWith(t, nil, rec.runner(nil))

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)

	calls, _, _ := rec.snapshot()
	assert.Zero(t, calls)
	assert.Equal(t, "Error: no transform selected", a.status.Text)
}

func TestStopCancelsRunningStream(t *testing.T) {
	started := make(chan struct{})
	a := newTestApplication(t, func(ctx context.Context, _, _ string, _ display.Display) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	test.Type(a.ipEntry, "10.0.0.5")
	test.Type(a.portEntry, "8080")
	test.Tap(a.startButton)
	<-started

	assert.True(t, a.startButton.Disabled(), "one stream at a time")
	a.Stop()

	assert.Eventually(t, func() bool {
		return !a.startButton.Disabled()
	}, time.Second, 10*time.Millisecond)
}

func TestViewerStopKeyAndClose(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	logger, _ := logtest.NewNullLogger()

	v := NewViewer(app, "viewer", 'q', logger)

	frame := gocv.NewMatWithSize(12, 16, gocv.MatTypeCV8UC3)
	defer frame.Close()
	require.NoError(t, v.Show(frame))
	assert.Equal(t, 16, v.image.Image.Bounds().Dx())

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, v.Show(empty))

	assert.False(t, v.PollStop(time.Millisecond))
	v.typedRune('x')
	assert.False(t, v.PollStop(time.Millisecond))
	v.typedRune('Q')
	assert.False(t, v.PollStop(time.Millisecond), "the stop key is case sensitive")
	v.typedRune('q')
	assert.True(t, v.PollStop(time.Millisecond))
	assert.True(t, v.PollStop(0), "a requested stop is sticky")

	assert.NoError(t, v.Close())
	assert.NoError(t, v.Close())
}
