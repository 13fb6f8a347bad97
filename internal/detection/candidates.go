package detection

import (
	"errors"
	"fmt"

	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
)

// Candidate is a geometry-filtered rectangle that may be a parking slot.
type Candidate struct {
	// Rect is the bounding rectangle of the contour.
	Rect geometry.Rectangle `json:"rect"`

	// Index is the contour's position in discovery order. It breaks ties
	// when candidates share an x coordinate.
	Index int `json:"index"`
}

// CandidateParams holds the slot geometry filter.
type CandidateParams struct {
	MinArea           float64 `json:"min_area"`
	MaxArea           float64 `json:"max_area"`
	MinAspectRatio    float64 `json:"min_aspect_ratio"`
	MaxAspectRatio    float64 `json:"max_aspect_ratio"`
	PolyEpsilonFactor float64 `json:"poly_epsilon_factor"`
	MinVertices       int     `json:"min_vertices"`
	MaxVertices       int     `json:"max_vertices"`
}

// DefaultCandidateParams returns the filter tuned for aerial lot imagery.
func DefaultCandidateParams() CandidateParams {
	return CandidateParams{
		MinArea:           2500,
		MaxArea:           7000,
		MinAspectRatio:    0.2,
		MaxAspectRatio:    0.7,
		PolyEpsilonFactor: 0.03,
		MinVertices:       4,
		MaxVertices:       6,
	}
}

// Validate reports every out-of-range field. Each range check is written
// as a negated comparison so that NaN fails it.
func (p CandidateParams) Validate() error {
	var errs []error
	if !(p.MinArea >= 0) {
		errs = append(errs, fmt.Errorf("min area must be >= 0, got %v", p.MinArea))
	}
	if !(p.MinArea <= p.MaxArea) {
		errs = append(errs, fmt.Errorf("min area %v exceeds max area %v", p.MinArea, p.MaxArea))
	}
	if !(p.MinAspectRatio >= 0) {
		errs = append(errs, fmt.Errorf("min aspect ratio must be >= 0, got %v", p.MinAspectRatio))
	}
	if !(p.MinAspectRatio <= p.MaxAspectRatio) {
		errs = append(errs, fmt.Errorf("min aspect ratio %v exceeds max aspect ratio %v", p.MinAspectRatio, p.MaxAspectRatio))
	}
	if !(p.PolyEpsilonFactor > 0) {
		errs = append(errs, fmt.Errorf("polygon epsilon factor must be > 0, got %v", p.PolyEpsilonFactor))
	}
	if p.MinVertices < 1 {
		errs = append(errs, fmt.Errorf("min vertices must be >= 1, got %d", p.MinVertices))
	}
	if p.MinVertices > p.MaxVertices {
		errs = append(errs, fmt.Errorf("min vertices %d exceeds max vertices %d", p.MinVertices, p.MaxVertices))
	}
	return errors.Join(errs...)
}

// ExtractStats counts how many contours each filter rejected.
type ExtractStats struct {
	Contours         int `json:"contours"`
	RejectedArea     int `json:"rejected_area"`
	RejectedVertices int `json:"rejected_vertices"`
	RejectedAspect   int `json:"rejected_aspect"`
	RejectedExcluded int `json:"rejected_excluded"`
	Accepted         int `json:"accepted"`
}

// ExtractCandidates applies the slot filter to contours, in order:
//
//  1. Area (shoelace) within [MinArea, MaxArea]
//  2. Polygon approximation with tolerance PolyEpsilonFactor*perimeter has
//     between MinVertices and MaxVertices vertices
//  3. Bounding rectangle aspect ratio W/H within [MinAspectRatio, MaxAspectRatio]
//  4. Bounding rectangle center not set in exclusion
//
// Contour i gets discovery index i. A nil exclusion mask excludes nothing.
func ExtractCandidates(contours []Contour, exclusion *imaging.Mask, p CandidateParams) ([]Candidate, ExtractStats) {
	stats := ExtractStats{Contours: len(contours)}
	var out []Candidate

	for i, c := range contours {
		area := Area(c)
		if area < p.MinArea || area > p.MaxArea {
			stats.RejectedArea++
			continue
		}

		approx := ApproxPolygon(c, p.PolyEpsilonFactor*ArcLength(c))
		if n := len(approx); n < p.MinVertices || n > p.MaxVertices {
			stats.RejectedVertices++
			continue
		}

		rect := BoundingRect(c)
		if ar := rect.AspectRatio(); ar < p.MinAspectRatio || ar > p.MaxAspectRatio {
			stats.RejectedAspect++
			continue
		}

		if exclusion != nil {
			center := rect.Center()
			if exclusion.At(center.X, center.Y) {
				stats.RejectedExcluded++
				continue
			}
		}

		out = append(out, Candidate{Rect: rect, Index: i})
	}

	stats.Accepted = len(out)
	return out, stats
}
