// Camera address window: IP and port entries, a transform picker and a start button
package gui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/config"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

// Runner processes the stream at url with the named transform until the
// display asks to stop or ctx is cancelled.
type Runner func(ctx context.Context, url, transform string, disp display.Display) error

// Application represents the camera address window
type Application struct {
	app    fyne.App
	window fyne.Window
	logger logrus.FieldLogger
	cfg    config.Config
	run    Runner

	transforms []string

	ipEntry         *widget.Entry
	portEntry       *widget.Entry
	transformSelect *widget.Select
	startButton     *widget.Button
	status          *widget.Label

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewApplication builds the window. transforms lists what the picker offers;
// faces is preselected when present.
func NewApplication(app fyne.App, cfg config.Config, transforms []string, run Runner, logger logrus.FieldLogger) *Application {
	window := app.NewWindow("IP Camera")
	window.Resize(fyne.NewSize(360, 220))
	window.CenterOnScreen()

	a := &Application{
		app:    app,
		window: window,
		logger: logger,
		cfg:    cfg,
		run:    run,

		transforms: transforms,
	}
	a.setupLayout()
	return a
}

func (a *Application) setupLayout() {
	a.ipEntry = widget.NewEntry()
	a.ipEntry.SetPlaceHolder("192.168.0.10")

	a.portEntry = widget.NewEntry()
	a.portEntry.SetPlaceHolder("8080")

	a.transformSelect = widget.NewSelect(a.transforms, nil)
	a.transformSelect.SetSelected(a.defaultTransform())

	a.startButton = widget.NewButton("Start Camera", a.Start)
	a.status = widget.NewLabel("Enter the camera address")

	form := widget.NewForm(
		widget.NewFormItem("IP Address", a.ipEntry),
		widget.NewFormItem("Port", a.portEntry),
		widget.NewFormItem("Transform", a.transformSelect),
	)

	a.window.SetContent(container.NewVBox(
		form,
		a.startButton,
		widget.NewSeparator(),
		a.status,
	))
}

func (a *Application) defaultTransform() string {
	for _, name := range a.transforms {
		if name == algorithms.Faces {
			return name
		}
	}
	if len(a.transforms) > 0 {
		return a.transforms[0]
	}
	return ""
}

// Start validates the address fields and launches the stream in a viewer
// window. It runs on the fyne main goroutine.
func (a *Application) Start() {
	ip := strings.TrimSpace(a.ipEntry.Text)
	port := strings.TrimSpace(a.portEntry.Text)
	if ip == "" || port == "" {
		a.logger.Warn("GUI: start pressed with an empty address field")
		a.status.SetText("IP address and port are required")
		dialog.ShowInformation("Warning", "Please enter both IP address and port.", a.window)
		return
	}

	url, err := io.StreamURL(a.cfg.Stream.Scheme, ip, port, a.cfg.Stream.Path)
	if err != nil {
		a.showError(err)
		return
	}
	if a.transformSelect.Selected == "" {
		a.showError(errors.New("no transform selected"))
		return
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		a.logger.Debug("GUI: stream already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	transform := a.transformSelect.Selected
	viewer := NewViewer(a.app, a.cfg.Video.WindowName, a.cfg.StopRune(), a.logger)
	a.startButton.Disable()
	a.status.SetText(fmt.Sprintf("Streaming %s", url))
	a.logger.WithFields(logrus.Fields{"url": url, "transform": transform}).Info("GUI: starting stream")

	go func() {
		err := a.run(ctx, url, transform, viewer)
		viewer.Close()
		cancel()
		fyne.Do(func() {
			a.finish(url, err)
		})
	}()
}

func (a *Application) finish(url string, err error) {
	a.mu.Lock()
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	a.startButton.Enable()
	switch {
	case err == nil:
		a.status.SetText("Stream closed")
	case errors.Is(err, io.ErrOpen):
		a.showError(fmt.Errorf("unable to open video stream %s: %w", url, err))
	case errors.Is(err, io.ErrRead):
		// Read failures end the stream like a user stop; they are not dialog-worthy.
		a.logger.WithError(err).Warn("GUI: stream ended with a read failure")
		a.status.SetText(fmt.Sprintf("Stream ended: %v", err))
	default:
		a.showError(fmt.Errorf("stream %s failed: %w", url, err))
	}
}

// Stop cancels a running stream, if any.
func (a *Application) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing camera address window")

	a.window.SetCloseIntercept(func() {
		a.Stop()
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

func (a *Application) showError(err error) {
	a.logger.WithError(err).Error("GUI: error")
	dialog.ShowError(err, a.window)
	a.status.SetText(fmt.Sprintf("Error: %s", err.Error()))
}
