// Package detection turns a binary line mask into the final list of parking
// slots.
//
// # Pipeline
//
// The package implements two stages of the analysis:
//
//   - Candidate extraction: FindExternalContours traces the outer border of
//     every top-level foreground region, and ExtractCandidates keeps the
//     contours that look like a slot (area, polygon vertex count, aspect
//     ratio, and an exclusion-mask center test)
//   - Deduplication: Deduplicate sorts candidates by X and greedily rejects
//     any that overlap or nearly coincide with an already accepted slot
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Rectangles use inclusive top-left and exclusive bottom-right
//
// # Determinism
//
// Contour discovery order, candidate order, and slot IDs are fully defined
// by the input mask. The deduplication scan is sequential and order
// dependent; reordering candidates changes which duplicates survive.
//
// # Polygon Approximation
//
// ApproxPolygon is a closed-curve Douglas-Peucker simplification seeded from
// an approximate diameter of the contour, followed by a clean-up pass that
// drops nearly collinear vertices. Its vertex counts match the reference
// behaviour of common computer-vision libraries, which the slot filter's
// 4-6 vertex window was tuned against.
package detection
