// Fyne window that shows processed frames
package gui

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Viewer is a display.Display backed by a fyne window. Typing the stop key
// or closing the window requests a stop.
type Viewer struct {
	window  fyne.Window
	image   *canvas.Image
	stopKey rune
	logger  logrus.FieldLogger

	stopOnce  sync.Once
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewViewer creates and shows the viewer window. Call it from the fyne
// main goroutine; Show and PollStop may then be used from any goroutine.
func NewViewer(app fyne.App, title string, stopKey rune, logger logrus.FieldLogger) *Viewer {
	v := &Viewer{
		window:  app.NewWindow(title),
		stopKey: stopKey,
		logger:  logger,
		stopped: make(chan struct{}),
	}

	v.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	v.image.FillMode = canvas.ImageFillContain
	v.image.ScaleMode = canvas.ImageScalePixels
	v.image.SetMinSize(fyne.NewSize(640, 480))

	v.window.SetContent(v.image)
	v.window.Canvas().SetOnTypedRune(v.typedRune)
	v.window.SetCloseIntercept(func() {
		v.requestStop()
		v.closeOnce.Do(v.window.Close)
	})
	v.window.Show()
	return v
}

func (v *Viewer) typedRune(r rune) {
	if r == v.stopKey {
		v.logger.WithField("key", string(r)).Debug("VIEWER: stop key pressed")
		v.requestStop()
	}
}

func (v *Viewer) requestStop() {
	v.stopOnce.Do(func() {
		close(v.stopped)
	})
}

func (v *Viewer) Show(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("cannot show an empty frame")
	}
	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	fyne.Do(func() {
		v.image.Image = img
		v.image.Refresh()
	})
	return nil
}

// PollStop waits for a stop request. A zero wait blocks until one arrives.
func (v *Viewer) PollStop(wait time.Duration) bool {
	if wait <= 0 {
		<-v.stopped
		return true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-v.stopped:
		return true
	case <-timer.C:
		return false
	}
}

// Close hides the window. It is safe to call more than once.
func (v *Viewer) Close() error {
	v.requestStop()
	v.closeOnce.Do(func() {
		fyne.Do(v.window.Close)
	})
	return nil
}
