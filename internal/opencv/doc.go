// Package opencv runs the pixel stages of the analysis through OpenCV.
//
// The package is compiled against gocv only when the gocv build tag is set:
//
//	go build -tags gocv ./...
//
// Without the tag New returns an error and callers fall back to the pure Go
// backend. Both builds expose the same names, so wiring code does not need
// build tags of its own.
//
// # Equivalence
//
// The OpenCV backend follows the same recipe as the native one: Gaussian
// blur, inverted Gaussian adaptive threshold, rectangular opening, HSV range
// masking with dilation and external contour tracing with simple chain
// approximation. Integer rounding inside OpenCV can move single border
// pixels, so results agree up to those pixels rather than exactly.
package opencv

import "errors"

// ErrNotEnabled is returned when the binary was built without OpenCV.
var ErrNotEnabled = errors.New("gocv build tag is not enabled")

// Name identifies this backend in logs and results.
const Name = "opencv"
