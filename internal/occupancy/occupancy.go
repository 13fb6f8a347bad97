// Package occupancy decides whether each parking slot holds a vehicle and
// rolls the per-slot decisions up into lot-level counts.
//
// A slot is OCCUPIED as soon as one vehicle box overlaps it with an IoU
// strictly greater than the configured threshold. Boxes are checked in the
// order the detector returned them and the first hit wins; the best match is
// never searched for.
package occupancy

import (
	"errors"
	"fmt"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/vehicle"
)

// Status is the occupancy of one slot.
type Status string

const (
	Occupied  Status = "OCCUPIED"
	Available Status = "AVAILABLE"
)

// Result is the classification of one slot.
type Result struct {
	SlotID int    `json:"slot_id"`
	Status Status `json:"status"`
}

// Params configures Classify.
type Params struct {
	// IoUThreshold is the overlap a vehicle box must exceed. Default: 0.10.
	IoUThreshold float64 `json:"iou_threshold"`
}

// DefaultParams returns the default occupancy threshold.
func DefaultParams() Params {
	return Params{IoUThreshold: 0.10}
}

// Validate checks the threshold range. NaN is rejected.
func (p Params) Validate() error {
	if !(p.IoUThreshold >= 0 && p.IoUThreshold <= 1) {
		return fmt.Errorf("occupancy iou threshold must be in [0,1], got %v", p.IoUThreshold)
	}
	return nil
}

// Stats reports what Classify did.
type Stats struct {
	Comparisons int `json:"comparisons"`
	Degenerate  int `json:"degenerate"`
}

// Classify returns one Result per slot, in slot order.
func Classify(slots []detection.Slot, vehicles []vehicle.Detection, p Params) ([]Result, Stats) {
	var stats Stats
	results := make([]Result, len(slots))
	for i, s := range slots {
		results[i] = Result{SlotID: s.ID, Status: Available}
		for _, v := range vehicles {
			stats.Comparisons++
			iou, err := geometry.Overlap(s.Rect, v.Box)
			if errors.Is(err, geometry.ErrDegenerateGeometry) {
				stats.Degenerate++
			}
			if iou > p.IoUThreshold {
				results[i].Status = Occupied
				break
			}
		}
	}
	return results, stats
}

// AllAvailable marks every slot AVAILABLE. It is the classification used
// when the vehicle detector failed and the caller asked for degraded output.
func AllAvailable(slots []detection.Slot) []Result {
	results := make([]Result, len(slots))
	for i, s := range slots {
		results[i] = Result{SlotID: s.ID, Status: Available}
	}
	return results
}

// Summary is the lot-level roll-up of a classification.
type Summary struct {
	Total                int     `json:"total"`
	Occupied             int     `json:"occupied"`
	Available            int     `json:"available"`
	OccupancyRatePercent float64 `json:"occupancy_rate_percent"`
}

// Aggregate counts results. An empty list yields a zero rate.
func Aggregate(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Status == Occupied {
			s.Occupied++
		}
	}
	s.Available = s.Total - s.Occupied
	if s.Total > 0 {
		s.OccupancyRatePercent = float64(s.Occupied) / float64(s.Total) * 100
	}
	return s
}
