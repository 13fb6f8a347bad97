package detection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Slot is an accepted, deduplicated parking slot. IDs start at 1 and follow
// acceptance order.
type Slot struct {
	ID   int                `json:"id"`
	Rect geometry.Rectangle `json:"rect"`
}

// DedupParams configures Deduplicate.
type DedupParams struct {
	// IoUThreshold marks a candidate as duplicate when its IoU with an
	// accepted slot is strictly greater. Default: 0.6.
	IoUThreshold float64 `json:"iou_threshold"`

	// CenterDistanceFactor marks a candidate as duplicate when its squared
	// center distance to an accepted slot is strictly less than
	// (factor * min(candidate.W, slot.W))^2. Default: 0.5.
	CenterDistanceFactor float64 `json:"center_distance_factor"`
}

// DefaultDedupParams returns the default duplicate thresholds.
func DefaultDedupParams() DedupParams {
	return DedupParams{IoUThreshold: 0.6, CenterDistanceFactor: 0.5}
}

// Validate reports every out-of-range field.
func (p DedupParams) Validate() error {
	var errs []error
	if !(p.IoUThreshold >= 0 && p.IoUThreshold <= 1) {
		errs = append(errs, fmt.Errorf("dedup iou threshold must be in [0,1], got %v", p.IoUThreshold))
	}
	if !(p.CenterDistanceFactor >= 0) {
		errs = append(errs, fmt.Errorf("dedup center distance factor must be >= 0, got %v", p.CenterDistanceFactor))
	}
	return errors.Join(errs...)
}

// DedupStats reports what Deduplicate did.
type DedupStats struct {
	Duplicates int `json:"duplicates"`

	// Degenerate counts comparisons whose IoU union was not positive.
	Degenerate int `json:"degenerate"`
}

// Deduplicate turns candidates into the final slot list.
//
// Candidates are stable-sorted by ascending X, ties keeping discovery
// (Index) order, then scanned once. A candidate is kept unless, against any
// slot already kept, IoU > IoUThreshold or the squared center distance is
// below (CenterDistanceFactor * min(W, W'))^2. The scan is order dependent;
// the same input always yields the same output. Input is not modified.
func Deduplicate(candidates []Candidate, p DedupParams) ([]Slot, DedupStats) {
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b Candidate) int {
		if a.Rect.X != b.Rect.X {
			return a.Rect.X - b.Rect.X
		}
		return a.Index - b.Index
	})

	var stats DedupStats
	slots := make([]Slot, 0, len(ordered))
	for _, c := range ordered {
		duplicate := false
		for _, s := range slots {
			iou, err := geometry.Overlap(c.Rect, s.Rect)
			if errors.Is(err, geometry.ErrDegenerateGeometry) {
				stats.Degenerate++
			}
			limit := p.CenterDistanceFactor * float64(min(c.Rect.W, s.Rect.W))
			if iou > p.IoUThreshold || float64(geometry.CenterDistanceSquared(c.Rect, s.Rect)) < limit*limit {
				duplicate = true
				break
			}
		}
		if duplicate {
			stats.Duplicates++
			continue
		}
		slots = append(slots, Slot{ID: len(slots) + 1, Rect: c.Rect})
	}
	return slots, stats
}
