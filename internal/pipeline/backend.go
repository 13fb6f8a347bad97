package pipeline

import (
	"image"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/imaging"
)

// Backend performs the pixel-heavy stages. Implementations must be safe for
// concurrent use and must not retain the image.
type Backend interface {
	Name() string
	LineMask(img image.Image, p imaging.LineMaskParams) (*imaging.Mask, error)
	ExclusionMask(img image.Image, p imaging.ExclusionParams) (*imaging.Mask, error)
	Contours(m *imaging.Mask) ([]detection.Contour, error)
}

// Native is the pure Go backend.
type Native struct{}

func (Native) Name() string { return "native" }

func (Native) LineMask(img image.Image, p imaging.LineMaskParams) (*imaging.Mask, error) {
	return imaging.LineMask(img, p)
}

func (Native) ExclusionMask(img image.Image, p imaging.ExclusionParams) (*imaging.Mask, error) {
	return imaging.ExclusionMask(img, p)
}

func (Native) Contours(m *imaging.Mask) ([]detection.Contour, error) {
	return detection.FindExternalContours(m), nil
}
