// Package geometry provides the integer rectangle arithmetic shared by the
// slot detection and occupancy stages.
//
// All coordinates are 0-based pixels with the origin at the top-left corner.
// A Rectangle is described by its top-left corner and its extent; as a box it
// spans [X, X+W) horizontally and [Y, Y+H) vertically.
//
// # Overlap
//
// IoU follows the corner-coordinate convention used by the slot and vehicle
// boxes: a rectangle is treated as the box [X, Y, X+W, Y+H], the
// intersection of two boxes is (right-left)*(bottom-top), and boxes that do
// not overlap (right < left or bottom < top) have IoU 0. Touching boxes have
// an empty intersection and therefore also score 0.
package geometry

import (
	"errors"
	"fmt"
)

// ErrDegenerateGeometry marks an overlap computation whose union area is not
// positive. It is never fatal: the IoU of such a pair is defined as 0.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rectangle is an axis-aligned rectangle in integer pixel coordinates.
type Rectangle struct {
	X int `json:"x"` // Left edge (inclusive)
	Y int `json:"y"` // Top edge (inclusive)
	W int `json:"w"` // Width in pixels
	H int `json:"h"` // Height in pixels
}

// FromCorners builds a Rectangle from corner coordinates (x1,y1)-(x2,y2).
func FromCorners(x1, y1, x2, y2 int) Rectangle {
	return Rectangle{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Right returns the exclusive right edge X+W.
func (r Rectangle) Right() int { return r.X + r.W }

// Bottom returns the exclusive bottom edge Y+H.
func (r Rectangle) Bottom() int { return r.Y + r.H }

// Area returns W*H.
func (r Rectangle) Area() int { return r.W * r.H }

// AspectRatio returns W/H. Callers guarantee H > 0; a zero height yields 0.
func (r Rectangle) AspectRatio() float64 {
	if r.H == 0 {
		return 0
	}
	return float64(r.W) / float64(r.H)
}

// Center returns the integer center (X + W/2, Y + H/2) using floor division.
func (r Rectangle) Center() Point {
	return Point{X: r.X + floorDiv(r.W, 2), Y: r.Y + floorDiv(r.H, 2)}
}

// Empty reports whether the rectangle has no positive area.
func (r Rectangle) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// String formats the rectangle as "x,y wxh".
func (r Rectangle) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.W, r.H)
}

// CenterDistanceSquared returns the squared Euclidean distance between the
// integer centers of a and b.
func CenterDistanceSquared(a, b Rectangle) int {
	ca, cb := a.Center(), b.Center()
	dx := ca.X - cb.X
	dy := ca.Y - cb.Y
	return dx*dx + dy*dy
}

// IoU returns the intersection-over-union of a and b in [0,1].
//
// Non-overlapping pairs and pairs whose union area is not positive score 0.
// IoU is symmetric and IoU(r, r) == 1 for any r with positive area.
func IoU(a, b Rectangle) float64 {
	iou, _ := Overlap(a, b)
	return iou
}

// Overlap is IoU with a diagnostic: it returns ErrDegenerateGeometry when the
// union area is not positive, in which case the IoU is 0.
func Overlap(a, b Rectangle) (float64, error) {
	left := max(a.X, b.X)
	top := max(a.Y, b.Y)
	right := min(a.Right(), b.Right())
	bottom := min(a.Bottom(), b.Bottom())

	if right < left || bottom < top {
		return 0, nil
	}

	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0, ErrDegenerateGeometry
	}
	return float64(intersection) / float64(union), nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
