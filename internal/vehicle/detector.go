// Package vehicle defines the vehicle detector contract consumed by the
// occupancy stage, plus the detector implementations the tools ship with.
//
// A Detector turns an image into bounding boxes. The pipeline never looks
// inside a detector; it only filters the returned list to an allow-list of
// class identifiers. Class identifiers follow the COCO numbering used by
// common object detection models (car=2, motorcycle=3, bus=5, truck=7).
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// ErrUnavailable is wrapped by every detector failure.
var ErrUnavailable = errors.New("vehicle detector unavailable")

// COCO class identifiers for vehicles.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// DefaultClasses is the default allow-list: car, bus, truck.
var DefaultClasses = []int{ClassCar, ClassBus, ClassTruck}

// Detection is one detected object.
type Detection struct {
	ClassID    int                `json:"class_id"`
	Label      string             `json:"label,omitempty"`
	Confidence float64            `json:"confidence"`
	Box        geometry.Rectangle `json:"box"`
}

// Detector finds objects in an image.
//
// Implementations must not retain or mutate img. Errors should wrap
// ErrUnavailable.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, img image.Image) ([]Detection, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

// FilterClasses returns the detections whose ClassID is in allow, preserving
// order. The input is not modified.
func FilterClasses(dets []Detection, allow []int) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if slices.Contains(allow, d.ClassID) {
			out = append(out, d)
		}
	}
	return out
}

// BoxFromCorners converts model output corners to a Rectangle. Coordinates
// are truncated toward zero.
func BoxFromCorners(x1, y1, x2, y2 float64) geometry.Rectangle {
	return geometry.FromCorners(int(x1), int(y1), int(x2), int(y2))
}

// Static returns a fixed list of detections for every image. It is the
// deterministic detector used by tests and by offline runs that read
// detections from a file.
type Static struct {
	Detections []Detection
}

// Detect returns a copy of s.Detections.
func (s Static) Detect(ctx context.Context, _ image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.Detections), nil
}

// None is the detector used when no backend is configured. It always fails
// with ErrUnavailable.
type None struct{}

// Detect always returns ErrUnavailable.
func (None) Detect(context.Context, image.Image) ([]Detection, error) {
	return nil, errNoBackend
}

var errNoBackend = fmt.Errorf("%w: no detector backend configured", ErrUnavailable)
