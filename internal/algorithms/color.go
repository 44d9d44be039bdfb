// Colorspace conversions and HSV color filtering
package algorithms

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when a transform receives an empty Mat.
var ErrEmptyFrame = errors.New("input frame is empty")

// HSV is a point in OpenCV's 8-bit HSV space: H in 0..179, S and V in 0..255.
type HSV [3]float64

// ColorRange selects pixels whose HSV value lies inside [Lower, Upper] on every channel.
type ColorRange struct {
	Lower HSV `yaml:"lower" json:"lower"`
	Upper HSV `yaml:"upper" json:"upper"`
}

// Red is the default preset, the low hue band of red.
var Red = ColorRange{Lower: HSV{0, 120, 70}, Upper: HSV{10, 255, 255}}

func (r ColorRange) Validate() error {
	limits := HSV{179, 255, 255}
	names := [3]string{"hue", "saturation", "value"}
	for i := range limits {
		if r.Lower[i] < 0 || r.Upper[i] > limits[i] {
			return fmt.Errorf("%s range %v..%v outside 0..%v", names[i], r.Lower[i], r.Upper[i], limits[i])
		}
		if r.Lower[i] > r.Upper[i] {
			return fmt.Errorf("%s lower bound %v above upper bound %v", names[i], r.Lower[i], r.Upper[i])
		}
	}
	return nil
}

// Contains reports whether an HSV pixel is inside the range, bounds included.
func (r ColorRange) Contains(h, s, v uint8) bool {
	px := HSV{float64(h), float64(s), float64(v)}
	for i := range px {
		if px[i] < r.Lower[i] || px[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

// ToGrayscale returns a single channel copy of frame. A frame that is
// already single channel is cloned, so applying it twice is a no-op.
func ToGrayscale(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}

	gray := gocv.NewMat()
	var err error
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		err = gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		err = gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}
	if err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion: %w", err)
	}
	return gray, nil
}

// ToBGR returns a three channel copy of frame.
func ToBGR(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}

	bgr := gocv.NewMat()
	var err error
	switch frame.Channels() {
	case 1:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	case 4:
		err = gocv.CvtColor(frame, &bgr, gocv.ColorBGRAToBGR)
	default:
		frame.CopyTo(&bgr)
	}
	if err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("bgr conversion: %w", err)
	}
	return bgr, nil
}

// ToHSV converts a BGR (or gray, or BGRA) frame to HSV.
func ToHSV(frame gocv.Mat) (gocv.Mat, error) {
	bgr, err := ToBGR(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()

	hsv := gocv.NewMat()
	if err := gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV); err != nil {
		hsv.Close()
		return gocv.NewMat(), fmt.Errorf("hsv conversion: %w", err)
	}
	return hsv, nil
}

// FilterColor keeps the pixels of frame whose HSV value is inside r and zeroes the rest.
func FilterColor(frame gocv.Mat, r ColorRange) (gocv.Mat, error) {
	hsv, err := ToHSV(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer hsv.Close()

	return FilterColorHSV(frame, hsv, r)
}

// FilterColorHSV is FilterColor for callers that already hold the HSV
// conversion of frame. The result is always three channel BGR.
func FilterColorHSV(frame, hsv gocv.Mat, r ColorRange) (gocv.Mat, error) {
	if frame.Empty() || hsv.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	if err := r.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	mask := ColorMask(hsv, r)
	defer mask.Close()

	bgr, err := ToBGR(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()

	result := gocv.NewMatWithSize(bgr.Rows(), bgr.Cols(), bgr.Type())
	result.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.BitwiseAndWithMask(bgr, bgr, &result, mask)
	return result, nil
}

// ColorMask returns a binary mask, 255 where hsv is inside r.
func ColorMask(hsv gocv.Mat, r ColorRange) gocv.Mat {
	mask := gocv.NewMat()
	lower := gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
	upper := gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}
