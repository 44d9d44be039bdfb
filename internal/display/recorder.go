package display

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Recorder writes every shown frame to a video file. The writer is opened
// on the first frame, when the frame size is known.
type Recorder struct {
	path   string
	codec  string
	fps    float64
	logger logrus.FieldLogger

	writer *gocv.VideoWriter
	width  int
	height int
	frames int
}

func NewRecorder(path, codec string, fps float64, logger logrus.FieldLogger) *Recorder {
	return &Recorder{
		path:   path,
		codec:  codec,
		fps:    fps,
		logger: logger.WithField("record", path),
	}
}

func (r *Recorder) Show(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("cannot record an empty frame")
	}

	if r.writer == nil {
		w, err := gocv.VideoWriterFile(r.path, r.codec, r.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("open video writer %s: %w", r.path, err)
		}
		if !w.IsOpened() {
			w.Close()
			return fmt.Errorf("open video writer %s: codec %s not available", r.path, r.codec)
		}
		r.writer, r.width, r.height = w, frame.Cols(), frame.Rows()
		r.logger.WithFields(logrus.Fields{
			"codec":  r.codec,
			"fps":    r.fps,
			"width":  r.width,
			"height": r.height,
		}).Info("Recording started")
	}

	if frame.Cols() != r.width || frame.Rows() != r.height {
		return fmt.Errorf("frame size %dx%d differs from recording size %dx%d", frame.Cols(), frame.Rows(), r.width, r.height)
	}

	// The writer is opened in color; gray outputs such as edge maps are expanded.
	if frame.Channels() != 3 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		code := gocv.ColorGrayToBGR
		if frame.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		if err := gocv.CvtColor(frame, &bgr, code); err != nil {
			return fmt.Errorf("convert frame for recording: %w", err)
		}
		frame = bgr
	}

	if err := r.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	r.frames++
	return nil
}

func (r *Recorder) PollStop(time.Duration) bool { return false }

// Frames is the number of frames written so far.
func (r *Recorder) Frames() int {
	return r.frames
}

func (r *Recorder) Close() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	r.logger.WithField("frames", r.frames).Info("Recording finished")
	return err
}
