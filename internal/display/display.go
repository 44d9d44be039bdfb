// Package display renders processed frames and reports user stop requests.
package display

import (
	"time"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Display is where a processing loop sends its output.
type Display interface {
	// Show renders frame. The frame stays owned by the caller.
	Show(frame gocv.Mat) error
	// PollStop waits up to wait for user input and reports whether the
	// user asked to stop. A zero wait blocks until input arrives on
	// displays that take keyboard input.
	PollStop(wait time.Duration) bool
	Close() error
}

// Headless discards frames and never asks to stop.
type Headless struct{}

func (Headless) Show(gocv.Mat) error         { return nil }
func (Headless) PollStop(time.Duration) bool { return false }
func (Headless) Close() error                { return nil }

// Multi fans frames out to several displays. The first display receives
// the poll wait, the rest are polled without waiting.
type Multi []Display

func (m Multi) Show(frame gocv.Mat) error {
	var err error
	for _, d := range m {
		err = multierr.Append(err, d.Show(frame))
	}
	return err
}

func (m Multi) PollStop(wait time.Duration) bool {
	stop := false
	for i, d := range m {
		w := wait
		if i > 0 {
			w = time.Nanosecond
		}
		if d.PollStop(w) {
			stop = true
		}
	}
	return stop
}

func (m Multi) Close() error {
	var err error
	for _, d := range m {
		err = multierr.Append(err, d.Close())
	}
	return err
}
