// Haar cascade face detection
package algorithms

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrCascadeLoad is returned when the classifier XML cannot be loaded.
var ErrCascadeLoad = errors.New("cannot load cascade classifier")

// DefaultCascade is the frontal face cascade file name OpenCV ships.
const DefaultCascade = "haarcascade_frontalface_default.xml"

// CascadeEnv names the environment variable that points at a cascade XML.
const CascadeEnv = "FACE_CASCADE"

// CascadeDirs are the haarcascades directories of the usual OpenCV installs.
var CascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// ResolveCascade finds the cascade file for a configured path. An absolute
// path must exist as given. A relative one is tried against the working
// directory, then $FACE_CASCADE, then its base name in CascadeDirs.
func ResolveCascade(configured string) (string, error) {
	if configured == "" {
		return "", fmt.Errorf("%w: no cascade path configured", ErrCascadeLoad)
	}
	if filepath.IsAbs(configured) {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%w: %w", ErrCascadeLoad, err)
		}
		return configured, nil
	}

	candidates := []string{configured, os.Getenv(CascadeEnv)}
	for _, dir := range CascadeDirs {
		candidates = append(candidates, filepath.Join(dir, filepath.Base(configured)))
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s not found locally, in $%s or in %v", ErrCascadeLoad, configured, CascadeEnv, CascadeDirs)
}

// BGR is a color in OpenCV channel order.
type BGR [3]uint8

// RGBA converts to the color.RGBA gocv's drawing functions take.
func (c BGR) RGBA() color.RGBA {
	return color.RGBA{B: c[0], G: c[1], R: c[2], A: 0}
}

// FaceOptions are the detectMultiScale parameters and the overlay style.
type FaceOptions struct {
	ScaleFactor  float64
	MinNeighbors int
	Color        BGR
	Thickness    int
}

// DefaultFaceOptions match the frontal face defaults: scale 1.3, five
// neighbours, blue two pixel boxes.
func DefaultFaceOptions() FaceOptions {
	return FaceOptions{
		ScaleFactor:  1.3,
		MinNeighbors: 5,
		Color:        BGR{255, 0, 0},
		Thickness:    2,
	}
}

func (o FaceOptions) Validate() error {
	if o.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be above 1, got %v", o.ScaleFactor)
	}
	if o.MinNeighbors < 0 {
		return fmt.Errorf("min neighbors must not be negative, got %d", o.MinNeighbors)
	}
	if o.Thickness < 1 {
		return fmt.Errorf("thickness must be at least 1, got %d", o.Thickness)
	}
	return nil
}

// FaceDetector owns a loaded cascade classifier. Load it once at startup and
// share the pointer; the classifier is guarded so concurrent callers are safe.
type FaceDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	opts       FaceOptions
	logger     logrus.FieldLogger
}

// NewFaceDetector loads the cascade at path.
func NewFaceDetector(path string, opts FaceOptions, logger logrus.FieldLogger) (*FaceDetector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCascadeLoad, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, path)
	}

	logger.WithFields(logrus.Fields{
		"cascade":       path,
		"scale_factor":  opts.ScaleFactor,
		"min_neighbors": opts.MinNeighbors,
	}).Info("Face cascade loaded")

	return &FaceDetector{classifier: classifier, opts: opts, logger: logger}, nil
}

func (d *FaceDetector) Options() FaceOptions {
	return d.opts
}

// Detect converts frame to grayscale and returns the candidate face rectangles.
func (d *FaceDetector) Detect(frame gocv.Mat) ([]image.Rectangle, error) {
	gray, err := ToGrayscale(frame)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return d.DetectGray(gray), nil
}

// DetectGray runs the classifier on an image that is already grayscale.
func (d *FaceDetector) DetectGray(gray gocv.Mat) []image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()

	rects := d.classifier.DetectMultiScaleWithParams(gray, d.opts.ScaleFactor, d.opts.MinNeighbors, 0, image.Point{}, image.Point{})
	d.logger.WithField("faces", len(rects)).Debug("Cascade pass finished")
	return rects
}

// Overlay draws one rectangle per detection onto dst in place.
func (d *FaceDetector) Overlay(dst *gocv.Mat, rects []image.Rectangle) {
	for _, r := range rects {
		gocv.Rectangle(dst, r, d.opts.Color.RGBA(), d.opts.Thickness)
	}
}

// Annotate detects faces in frame and returns a color copy with the boxes
// drawn on it. frame itself is left untouched.
func (d *FaceDetector) Annotate(frame gocv.Mat) (gocv.Mat, error) {
	rects, err := d.Detect(frame)
	if err != nil {
		return gocv.NewMat(), err
	}

	out, err := ToBGR(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	d.Overlay(&out, rects)
	return out, nil
}

func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
