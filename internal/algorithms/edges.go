// Canny edge detection with fixed or median derived thresholds
package algorithms

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

const (
	DefaultLowThreshold  = 100
	DefaultHighThreshold = 200
	DefaultSigma         = 0.33
)

// Thresholds is the hysteresis pair handed to Canny.
type Thresholds struct {
	Low  float32
	High float32
}

func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 255 {
		return fmt.Errorf("thresholds %v..%v outside 0..255", t.Low, t.High)
	}
	if t.Low > t.High {
		return fmt.Errorf("low threshold %v above high threshold %v", t.Low, t.High)
	}
	return nil
}

// DetectEdges runs Canny on the grayscale version of frame. The result is
// single channel with the dimensions of frame.
func DetectEdges(frame gocv.Mat, t Thresholds) (gocv.Mat, error) {
	gray, err := ToGrayscale(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	return DetectEdgesGray(gray, t)
}

// DetectEdgesGray is DetectEdges for an input that is already single channel.
func DetectEdgesGray(gray gocv.Mat, t Thresholds) (gocv.Mat, error) {
	if gray.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	if gray.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("edge detection needs a single channel image, got %d channels", gray.Channels())
	}

	edges := gocv.NewMat()
	gocv.Canny(gray, &edges, t.Low, t.High)
	return edges, nil
}

// Median returns the median intensity of a single channel 8-bit image. For an
// even pixel count it is the mean of the two middle values.
func Median(gray gocv.Mat) (float64, error) {
	if gray.Empty() {
		return 0, ErrEmptyFrame
	}
	if gray.Channels() != 1 {
		return 0, fmt.Errorf("median needs a single channel image, got %d channels", gray.Channels())
	}

	var hist [256]int
	if data, err := gray.DataPtrUint8(); err == nil {
		for _, v := range data {
			hist[v]++
		}
	} else {
		// Non-continuous views, e.g. a region of a larger Mat.
		for row := 0; row < gray.Rows(); row++ {
			for col := 0; col < gray.Cols(); col++ {
				hist[gray.GetUCharAt(row, col)]++
			}
		}
	}

	n := gray.Rows() * gray.Cols()
	return (float64(valueAtRank(&hist, (n-1)/2)) + float64(valueAtRank(&hist, n/2))) / 2, nil
}

func valueAtRank(hist *[256]int, rank int) int {
	seen := 0
	for v, c := range hist {
		seen += c
		if seen > rank {
			return v
		}
	}
	return len(hist) - 1
}

// AutoThresholds derives Canny thresholds from the median intensity m:
// low = max(0, (1-sigma)*m), high = min(255, (1+sigma)*m), both truncated.
func AutoThresholds(median, sigma float64) Thresholds {
	low := math.Max(0, (1-sigma)*median)
	high := math.Min(255, (1+sigma)*median)
	return Thresholds{Low: float32(math.Trunc(low)), High: float32(math.Trunc(high))}
}

// DetectEdgesAuto runs Canny with thresholds computed from the median of
// frame and returns them alongside the edges.
func DetectEdgesAuto(frame gocv.Mat, sigma float64) (gocv.Mat, Thresholds, error) {
	gray, err := ToGrayscale(frame)
	if err != nil {
		return gocv.NewMat(), Thresholds{}, err
	}
	defer gray.Close()

	return DetectEdgesAutoGray(gray, sigma)
}

func DetectEdgesAutoGray(gray gocv.Mat, sigma float64) (gocv.Mat, Thresholds, error) {
	if sigma < 0 {
		return gocv.NewMat(), Thresholds{}, fmt.Errorf("sigma must not be negative, got %v", sigma)
	}

	median, err := Median(gray)
	if err != nil {
		return gocv.NewMat(), Thresholds{}, err
	}

	t := AutoThresholds(median, sigma)
	edges, err := DetectEdgesGray(gray, t)
	return edges, t, err
}
