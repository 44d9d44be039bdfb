// Frame sources: video files, camera devices and network streams
package io

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	// ErrOpen is returned when a capture source cannot be initialized.
	ErrOpen = errors.New("cannot open stream")
	// ErrRead is returned when a live source stops delivering frames.
	ErrRead = errors.New("cannot read frame")
	// ErrEndOfStream is returned once a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrMissingAddress is returned when an IP address or port is blank.
	ErrMissingAddress = errors.New("ip address and port are required")
)

// SourceKind tells how a source string is opened.
type SourceKind int

const (
	KindFile SourceKind = iota
	KindDevice
	KindNetwork
)

func (k SourceKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDevice:
		return "device"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Source is a parsed stream source string.
type Source struct {
	Kind   SourceKind
	Raw    string
	Device int
}

func (s Source) String() string {
	return s.Raw
}

// ParseSource classifies raw as a device index, a URL with a scheme, or a file path.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty source", ErrOpen)
	}

	if device, err := strconv.Atoi(raw); err == nil {
		if device < 0 {
			return Source{}, fmt.Errorf("%w: negative device index %d", ErrOpen, device)
		}
		return Source{Kind: KindDevice, Raw: raw, Device: device}, nil
	}

	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return Source{Kind: KindNetwork, Raw: raw}, nil
	}

	return Source{Kind: KindFile, Raw: raw}, nil
}

// StreamURL builds the address of a phone camera stream, e.g. http://192.168.1.5:8080/video.
func StreamURL(scheme, ip, port, path string) (string, error) {
	ip = strings.TrimSpace(ip)
	port = strings.TrimSpace(port)
	if ip == "" || port == "" {
		return "", ErrMissingAddress
	}
	if scheme == "" {
		scheme = "http"
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(ip, port),
		Path:   path,
	}
	return u.String(), nil
}

// FrameSource is a pull based sequence of frames.
type FrameSource interface {
	// Read decodes the next frame into dst. It returns ErrEndOfStream when
	// a finite source is exhausted and ErrRead on any other failure.
	Read(dst *gocv.Mat) error
	Close() error
}

// Capture wraps an OpenCV VideoCapture opened on a Source.
type Capture struct {
	source Source
	vc     *gocv.VideoCapture
	logger logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

// OpenCapture opens src. There is no timeout: an unreachable network
// stream blocks until OpenCV gives up.
func OpenCapture(src Source, logger logrus.FieldLogger) (*Capture, error) {
	log := logger.WithFields(logrus.Fields{"source": src.Raw, "kind": src.Kind.String()})
	log.Info("Opening capture")

	var (
		vc  *gocv.VideoCapture
		err error
	)
	switch src.Kind {
	case KindDevice:
		vc, err = gocv.OpenVideoCapture(src.Device)
	case KindFile:
		if _, statErr := os.Stat(src.Raw); statErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, statErr)
		}
		vc, err = gocv.OpenVideoCapture(src.Raw)
	default:
		vc, err = gocv.OpenVideoCapture(src.Raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, src.Raw, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpen, src.Raw)
	}

	c := &Capture{source: src, vc: vc, logger: log}
	log.WithFields(logrus.Fields{
		"fps":    c.FPS(),
		"frames": c.FrameCount(),
	}).Info("Capture opened")
	return c, nil
}

// Open parses raw and opens it.
func Open(raw string, logger logrus.FieldLogger) (*Capture, error) {
	src, err := ParseSource(raw)
	if err != nil {
		return nil, err
	}
	return OpenCapture(src, logger)
}

func (c *Capture) Read(dst *gocv.Mat) error {
	if c.vc.Read(dst) && !dst.Empty() {
		return nil
	}
	if c.source.Kind != KindFile {
		return fmt.Errorf("%w: %s", ErrRead, c.source.Raw)
	}

	// Files end when the position reaches the container's frame count.
	// Containers that do not report a count are treated as ended.
	total := c.FrameCount()
	if total <= 0 || c.vc.Get(gocv.VideoCapturePosFrames) >= float64(total) {
		return ErrEndOfStream
	}
	return fmt.Errorf("%w: %s at frame %.0f", ErrRead, c.source.Raw, c.vc.Get(gocv.VideoCapturePosFrames))
}

// Close releases the capture. Only the first call reaches OpenCV.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.vc.Close()
		c.logger.Debug("Capture released")
	})
	return c.closeErr
}

// FrameCount is the number of frames a file reports, or 0 for live sources.
func (c *Capture) FrameCount() int {
	if c.source.Kind != KindFile {
		return 0
	}
	return int(c.vc.Get(gocv.VideoCaptureFrameCount))
}

func (c *Capture) FPS() float64 {
	return c.vc.Get(gocv.VideoCaptureFPS)
}

func (c *Capture) Source() Source {
	return c.source
}
