package display

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// Window shows frames in an OpenCV highgui window. Pressing the stop key
// or closing the window counts as a stop request.
type Window struct {
	window  *gocv.Window
	stopKey rune
	closed  bool
}

// NewWindow opens a named window. highgui must be driven from the main
// OS thread on most platforms.
func NewWindow(name string, stopKey rune) *Window {
	return &Window{
		window:  gocv.NewWindow(name),
		stopKey: stopKey,
	}
}

// isStopKey reports whether a waitKey code is exactly the stop key. Only
// the low byte carries the character.
func isStopKey(key int, stop rune) bool {
	return key >= 0 && rune(key&0xff) == stop
}

func (w *Window) Show(frame gocv.Mat) error {
	if w.closed {
		return errors.New("window is closed")
	}
	if frame.Empty() {
		return errors.New("cannot show an empty frame")
	}
	w.window.IMShow(frame)
	return nil
}

func (w *Window) PollStop(wait time.Duration) bool {
	if w.closed || !w.window.IsOpen() {
		return true
	}

	ms := int(wait / time.Millisecond)
	if wait > 0 && ms < 1 {
		ms = 1
	}
	key := w.window.WaitKey(ms)
	if key < 0 {
		return !w.window.IsOpen()
	}
	return isStopKey(key, w.stopKey)
}

func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.window.Close()
}
