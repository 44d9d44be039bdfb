package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newTestLoader() *ImageLoader {
	logger, _ := test.NewNullLogger()
	return NewImageLoader(logger)
}

func TestLoadImageMissingPath(t *testing.T) {
	mat, err := newTestLoader().LoadImage(filepath.Join(t.TempDir(), "nope.jpg"))
	defer mat.Close()

	assert.ErrorIs(t, err, ErrLoad)
	assert.True(t, mat.Empty())
}

func TestLoadImageNotDecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0o644))

	mat, err := newTestLoader().LoadImage(path)
	defer mat.Close()

	assert.ErrorIs(t, err, ErrLoad)
}

func TestLoadImageUnsupportedExtension(t *testing.T) {
	mat, err := newTestLoader().LoadImage("notes.txt")
	defer mat.Close()

	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveThenLoad(t *testing.T) {
	loader := newTestLoader()
	path := filepath.Join(t.TempDir(), "out.png")

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 12, 16, gocv.MatTypeCV8UC3)
	defer src.Close()
	require.NoError(t, loader.SaveImage(src, path))

	got, err := loader.LoadImage(path)
	require.NoError(t, err)
	defer got.Close()

	assert.Equal(t, 16, got.Cols())
	assert.Equal(t, 12, got.Rows())
	assert.Equal(t, 3, got.Channels())
	assert.Equal(t, uint8(30), got.GetUCharAt(0, 2), "png is lossless, red channel survives")

	gray, err := loader.LoadImageGrayscale(path)
	require.NoError(t, err)
	defer gray.Close()
	assert.Equal(t, 1, gray.Channels())
}

func TestSaveImageRejects(t *testing.T) {
	loader := newTestLoader()

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, loader.SaveImage(empty, filepath.Join(t.TempDir(), "empty.png")))

	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	defer src.Close()
	assert.ErrorIs(t, loader.SaveImage(src, filepath.Join(t.TempDir(), "out.gif")), ErrUnsupportedFormat)
}

func TestIsSupportedImageFormat(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("photo.JPG"))
	assert.True(t, IsSupportedImageFormat("dir.with.dots/scan.tiff"))
	assert.False(t, IsSupportedImageFormat("clip.mp4"))
	assert.False(t, IsSupportedImageFormat("noext"))
}
