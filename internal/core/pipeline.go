// internal/core/pipeline.go
// Frame processing loop: pull, transform, display, poll for stop
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

// ErrAlreadyRun is returned when Run is called on a pipeline that has left Idle.
var ErrAlreadyRun = errors.New("pipeline has already been run")

// State is the lifecycle position of a Pipeline.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateRunning
	StateStopped
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the pipeline can no longer change state.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFinished || s == StateFailed
}

// Opener opens the frame source when the pipeline starts.
type Opener func() (io.FrameSource, error)

// OpenSource returns an Opener for a raw source string (path, device index or URL).
func OpenSource(raw string, logger logrus.FieldLogger) Opener {
	return func() (io.FrameSource, error) {
		return io.Open(raw, logger)
	}
}

// Result summarises a finished run.
type Result struct {
	// RunID tags every log line of the run.
	RunID   string
	State   State
	Frames  int
	Elapsed time.Duration
	Err     error
}

// FPS is the achieved processing rate, transform and display included.
func (r Result) FPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Elapsed.Seconds()
}

// Pipeline applies one transform to every frame of a source until the
// source ends, fails, or the user asks to stop. It is single use.
type Pipeline struct {
	mu    sync.RWMutex
	state State
	id    string

	open      Opener
	transform algorithms.Func
	display   display.Display
	logger    logrus.FieldLogger

	pollDelay time.Duration
	onFrame   func(frames int)
	onState   func(State)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPollDelay sets how long each iteration waits for the stop signal.
func WithPollDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		p.pollDelay = d
	}
}

// WithFrameHook is called after every displayed frame with the running count.
func WithFrameHook(fn func(frames int)) Option {
	return func(p *Pipeline) {
		p.onFrame = fn
	}
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(p *Pipeline) {
		p.onState = fn
	}
}

func NewPipeline(open Opener, transform algorithms.Func, disp display.Display, logger logrus.FieldLogger, opts ...Option) *Pipeline {
	id := uuid.NewString()
	p := &Pipeline{
		state:     StateIdle,
		id:        id,
		open:      open,
		transform: transform,
		display:   disp,
		logger:    logger.WithField("run_id", id),
		pollDelay: 25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID identifies the run in logs.
func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	old := p.state
	p.state = s
	p.mu.Unlock()
	p.notify(old, s)
}

func (p *Pipeline) notify(from, to State) {
	p.logger.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Debug("PIPELINE: state change")
	if p.onState != nil {
		p.onState(to)
	}
}

// Run drives the loop to a terminal state. The returned error is non-nil
// only for StateFailed. Cancelling ctx is a stop request, honoured once
// per iteration. The source is released exactly once on every path.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		current := p.state
		p.mu.Unlock()
		return Result{RunID: p.id, State: current}, ErrAlreadyRun
	}
	p.state = StateOpening
	p.mu.Unlock()
	p.notify(StateIdle, StateOpening)

	start := time.Now()

	src, err := p.open()
	if err != nil {
		p.logger.WithError(err).Error("PIPELINE: cannot open source")
		p.setState(StateFailed)
		return Result{RunID: p.id, State: StateFailed, Err: err, Elapsed: time.Since(start)}, err
	}

	state, frames, loopErr := p.loop(ctx, src)

	if closeErr := src.Close(); closeErr != nil {
		p.logger.WithError(closeErr).Warn("PIPELINE: releasing source failed")
		if state == StateFailed {
			loopErr = multierr.Append(loopErr, closeErr)
		}
	}

	p.setState(state)
	res := Result{RunID: p.id, State: state, Frames: frames, Elapsed: time.Since(start), Err: loopErr}
	p.logger.WithFields(logrus.Fields{
		"state":  state.String(),
		"frames": frames,
		"fps":    fmt.Sprintf("%.1f", res.FPS()),
	}).Info("PIPELINE: loop ended")

	if state == StateFailed {
		return res, loopErr
	}
	return res, nil
}

func (p *Pipeline) loop(ctx context.Context, src io.FrameSource) (State, int, error) {
	p.setState(StateRunning)

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("PIPELINE: cancelled")
			return StateStopped, frames, nil
		}

		if err := src.Read(&frame); err != nil {
			if errors.Is(err, io.ErrEndOfStream) {
				p.logger.Info("PIPELINE: end of stream")
				return StateFinished, frames, nil
			}
			p.logger.WithError(err).Warn("PIPELINE: read failed, stopping")
			return StateFailed, frames, err
		}

		out, err := p.transform(frame)
		if err != nil {
			out.Close()
			p.logger.WithError(err).Error("PIPELINE: transform failed")
			return StateFailed, frames, fmt.Errorf("transform frame %d: %w", frames+1, err)
		}
		err = p.display.Show(out)
		out.Close()
		if err != nil {
			p.logger.WithError(err).Error("PIPELINE: display failed")
			return StateFailed, frames, fmt.Errorf("display frame %d: %w", frames+1, err)
		}

		frames++
		p.logger.WithField("frame", frames).Debug("PIPELINE: frame processed")
		if p.onFrame != nil {
			p.onFrame(frames)
		}

		if p.display.PollStop(p.pollDelay) {
			p.logger.Info("PIPELINE: stop requested")
			return StateStopped, frames, nil
		}
	}
}
