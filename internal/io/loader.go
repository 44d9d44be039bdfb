// Still image loading and saving
package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	// ErrLoad is returned when an image path is unreadable or not decodable.
	ErrLoad = errors.New("cannot load image")
	// ErrUnsupportedFormat is returned for paths whose extension OpenCV is not asked to handle.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger logrus.FieldLogger
}

func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage reads a color image. The returned Mat is owned by the caller.
func (il *ImageLoader) LoadImage(path string) (gocv.Mat, error) {
	return il.load(path, gocv.IMReadColor)
}

// LoadImageGrayscale reads an image as a single channel Mat.
func (il *ImageLoader) LoadImageGrayscale(path string) (gocv.Mat, error) {
	return il.load(path, gocv.IMReadGrayScale)
}

func (il *ImageLoader) load(path string, flags gocv.IMReadFlag) (gocv.Mat, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if !IsSupportedImageFormat(path) {
		return gocv.NewMat(), fmt.Errorf("%w: %w: %s", ErrLoad, ErrUnsupportedFormat, path)
	}

	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %w", ErrLoad, err)
	}

	mat := gocv.IMRead(path, flags)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: not a decodable image: %s", ErrLoad, path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("Image loaded successfully")

	return mat, nil
}

// SaveImage writes mat to path, the format is chosen from the extension.
func (il *ImageLoader) SaveImage(mat gocv.Mat, path string) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if mat.Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	if !IsSupportedImageFormat(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s", path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("Image saved successfully")

	return nil
}

// IsSupportedImageFormat reports whether the path has an image extension we read and write.
func IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP", "WEBP"}
}
