// Package imaging provides the pixel-level stages of the parking analysis
// pipeline: image loading, the line-mask preprocessor, the restricted-zone
// (exclusion) detector, binary morphology, and crop helpers.
//
// All operations accept standard Go image.Image values and never mutate them.
// Results are returned as freshly allocated Mask values owned by the caller.
//
// # Coordinate System
//
// Mask coordinates are 0-based and relative to the image bounds:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Mask pixel (x, y) corresponds to image pixel (x+Min.X, y+Min.Y)
//
// # Line Mask
//
// LineMask converts the image to 8-bit luminance (ITU-R BT.601), smooths it
// with a small Gaussian kernel, binarizes it with an inverted Gaussian
// adaptive threshold, and removes speckle with a morphological opening:
//
//	gray -> blur(5x5) -> adaptive(block 19, C 3) -> open(3x3, 1 iteration)
//
// A pixel is foreground when it is at least C levels darker than the
// Gaussian-weighted mean of its block.
//
// # Exclusion Mask
//
// ExclusionMask converts the image to HSV using the 8-bit convention
// (H 0-180, S 0-255, V 0-255), keeps pixels inside an inclusive color range
// (yellow restricted-zone paint by default), and dilates the result to add a
// safety margin around the markings.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently on different or identical images.
//
// # Error Handling
//
// Functions return errors wrapping ErrInvalidImage for zero-dimension or
// undecodable input, and plain errors for invalid parameters.
package imaging
