//go:build !gocv
// +build !gocv

package opencv

import (
	"image"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/imaging"
)

// Backend is a placeholder that fails every stage.
type Backend struct{}

// New reports that OpenCV support is not compiled in.
func New() (*Backend, error) {
	return nil, ErrNotEnabled
}

// Enabled reports whether the binary was built with OpenCV support.
func Enabled() bool { return false }

func (*Backend) Name() string { return Name }

func (*Backend) LineMask(image.Image, imaging.LineMaskParams) (*imaging.Mask, error) {
	return nil, ErrNotEnabled
}

func (*Backend) ExclusionMask(image.Image, imaging.ExclusionParams) (*imaging.Mask, error) {
	return nil, ErrNotEnabled
}

func (*Backend) Contours(*imaging.Mask) ([]detection.Contour, error) {
	return nil, ErrNotEnabled
}
