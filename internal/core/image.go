// Still image with memoized colorspace conversions and in-place drawing
package core

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"ipcam-vision/internal/algorithms"
	"ipcam-vision/internal/display"
	"ipcam-vision/internal/io"
)

// Default drawing colors, expressed as RGBA; gocv maps R, G, B onto BGR channels.
var (
	RectangleColor = color.RGBA{G: 255}
	CircleColor    = color.RGBA{R: 255}
	LineColor      = color.RGBA{B: 255}
)

// DefaultThickness is the stroke width used by the drawing helpers.
const DefaultThickness = 2

// StillImage holds one loaded image. Grayscale and HSV versions are computed
// on first use and dropped whenever the held pixels change.
type StillImage struct {
	mu       sync.RWMutex
	image    gocv.Mat
	gray     *gocv.Mat
	hsv      *gocv.Mat
	filepath string
	metadata ImageMetadata
}

// ImageMetadata contains image information
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Type     gocv.MatType
	Format   string
}

// LoadStillImage reads path as a color image. Failures wrap io.ErrLoad and
// leave nothing allocated.
func LoadStillImage(loader *io.ImageLoader, path string) (*StillImage, error) {
	mat, err := loader.LoadImage(path)
	if err != nil {
		mat.Close()
		return nil, err
	}
	img, err := newStillImage(mat, path)
	if err != nil {
		mat.Close()
		return nil, fmt.Errorf("%w: %w", io.ErrLoad, err)
	}
	return img, nil
}

// NewStillImage wraps a copy of mat.
func NewStillImage(mat gocv.Mat, path string) (*StillImage, error) {
	if err := ValidateImage(mat); err != nil {
		return nil, err
	}
	return newStillImage(mat.Clone(), path)
}

// newStillImage takes ownership of mat.
func newStillImage(mat gocv.Mat, path string) (*StillImage, error) {
	if err := ValidateImage(mat); err != nil {
		return nil, err
	}
	img := &StillImage{image: mat, filepath: path}
	img.metadata = metadataFor(mat, path)
	return img, nil
}

func metadataFor(mat gocv.Mat, path string) ImageMetadata {
	return ImageMetadata{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
		Format:   getFormatFromPath(path),
	}
}

// Image returns a copy of the held pixels.
func (img *StillImage) Image() gocv.Mat {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.image.Clone()
}

func (img *StillImage) Metadata() ImageMetadata {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.metadata
}

func (img *StillImage) Filepath() string {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.filepath
}

// Gray returns a copy of the memoized grayscale image.
func (img *StillImage) Gray() (gocv.Mat, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gray, err := img.grayLocked()
	if err != nil {
		return gocv.NewMat(), err
	}
	return gray.Clone(), nil
}

// HSV returns a copy of the memoized HSV image.
func (img *StillImage) HSV() (gocv.Mat, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	hsv, err := img.hsvLocked()
	if err != nil {
		return gocv.NewMat(), err
	}
	return hsv.Clone(), nil
}

func (img *StillImage) grayLocked() (*gocv.Mat, error) {
	if img.gray == nil {
		gray, err := algorithms.ToGrayscale(img.image)
		if err != nil {
			gray.Close()
			return nil, err
		}
		img.gray = &gray
	}
	return img.gray, nil
}

func (img *StillImage) hsvLocked() (*gocv.Mat, error) {
	if img.hsv == nil {
		hsv, err := algorithms.ToHSV(img.image)
		if err != nil {
			hsv.Close()
			return nil, err
		}
		img.hsv = &hsv
	}
	return img.hsv, nil
}

// invalidateLocked drops the cached conversions; callers hold the write lock.
func (img *StillImage) invalidateLocked() {
	if img.gray != nil {
		img.gray.Close()
		img.gray = nil
	}
	if img.hsv != nil {
		img.hsv.Close()
		img.hsv = nil
	}
}

// DetectEdges runs Canny with fixed thresholds on the grayscale image.
func (img *StillImage) DetectEdges(t algorithms.Thresholds) (gocv.Mat, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gray, err := img.grayLocked()
	if err != nil {
		return gocv.NewMat(), err
	}
	return algorithms.DetectEdgesGray(*gray, t)
}

// AutoEdges runs Canny with thresholds derived from the median intensity.
func (img *StillImage) AutoEdges(sigma float64) (gocv.Mat, algorithms.Thresholds, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gray, err := img.grayLocked()
	if err != nil {
		return gocv.NewMat(), algorithms.Thresholds{}, err
	}
	return algorithms.DetectEdgesAutoGray(*gray, sigma)
}

// DetectFaces returns the detections and an annotated copy of the image.
// The held image is not modified.
func (img *StillImage) DetectFaces(det *algorithms.FaceDetector) (gocv.Mat, []image.Rectangle, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gray, err := img.grayLocked()
	if err != nil {
		return gocv.NewMat(), nil, err
	}
	rects := det.DetectGray(*gray)

	out, err := algorithms.ToBGR(img.image)
	if err != nil {
		out.Close()
		return gocv.NewMat(), nil, err
	}
	det.Overlay(&out, rects)
	return out, rects, nil
}

// FilterColor keeps only the pixels whose HSV value is inside r.
func (img *StillImage) FilterColor(r algorithms.ColorRange) (gocv.Mat, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	hsv, err := img.hsvLocked()
	if err != nil {
		return gocv.NewMat(), err
	}
	return algorithms.FilterColorHSV(img.image, *hsv, r)
}

// DrawRectangle draws onto the held image. Geometry is not checked.
func (img *StillImage) DrawRectangle(r image.Rectangle, c color.RGBA, thickness int) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gocv.Rectangle(&img.image, r, c, thickness)
	img.invalidateLocked()
}

// DrawCircle draws onto the held image. Geometry is not checked.
func (img *StillImage) DrawCircle(center image.Point, radius int, c color.RGBA, thickness int) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gocv.Circle(&img.image, center, radius, c, thickness)
	img.invalidateLocked()
}

// DrawLine draws onto the held image. Geometry is not checked.
func (img *StillImage) DrawLine(from, to image.Point, c color.RGBA, thickness int) {
	img.mu.Lock()
	defer img.mu.Unlock()
	gocv.Line(&img.image, from, to, c, thickness)
	img.invalidateLocked()
}

// Replace swaps in a copy of mat, typically a transform result.
func (img *StillImage) Replace(mat gocv.Mat) error {
	if err := ValidateImage(mat); err != nil {
		return err
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	img.invalidateLocked()
	img.image.Close()
	img.image = mat.Clone()
	img.metadata = metadataFor(img.image, img.filepath)
	return nil
}

// Save writes the held image; the format follows the extension of path.
func (img *StillImage) Save(loader *io.ImageLoader, path string) error {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return loader.SaveImage(img.image, path)
}

// SaveFrame writes any frame, for example a transform result.
func SaveFrame(loader *io.ImageLoader, path string, frame gocv.Mat) error {
	return loader.SaveImage(frame, path)
}

// Show renders the held image and waits for the user.
func (img *StillImage) Show(d display.Display) error {
	img.mu.RLock()
	err := d.Show(img.image)
	img.mu.RUnlock()
	if err != nil {
		return err
	}
	d.PollStop(0)
	return nil
}

// Close releases all resources
func (img *StillImage) Close() {
	img.mu.Lock()
	defer img.mu.Unlock()
	img.invalidateLocked()
	img.image.Close()
}

// getFormatFromPath extracts image format from file path
func getFormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// ValidateImage validates an OpenCV Mat for basic requirements
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels < 1 || channels > 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	// Check for reasonable size limits (prevent memory issues)
	const maxDimension = 16384
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}
