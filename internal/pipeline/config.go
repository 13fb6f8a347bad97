package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/vehicle"
)

// Config holds every tunable of one analysis. It is a value type; the
// Analyzer keeps its own deep copy.
type Config struct {
	Preprocess imaging.LineMaskParams    `json:"preprocess"`
	Exclusion  imaging.ExclusionParams   `json:"exclusion"`
	Slots      detection.CandidateParams `json:"slots"`
	Dedup      detection.DedupParams     `json:"dedup"`
	Occupancy  occupancy.Params          `json:"occupancy"`

	// VehicleClasses is the allow-list of detector class IDs counted as
	// vehicles. It must not be empty.
	VehicleClasses []int `json:"vehicle_classes"`

	// DegradeOnDetectorFailure reports all slots AVAILABLE, flagged as
	// degraded, instead of failing the run when the detector fails.
	DegradeOnDetectorFailure bool `json:"degrade_on_detector_failure"`
}

// DefaultConfig returns the stock thresholds. Degraded classification is
// off; callers opt in.
func DefaultConfig() Config {
	return Config{
		Preprocess:     imaging.DefaultLineMaskParams(),
		Exclusion:      imaging.DefaultExclusionParams(),
		Slots:          detection.DefaultCandidateParams(),
		Dedup:          detection.DefaultDedupParams(),
		Occupancy:      occupancy.DefaultParams(),
		VehicleClasses: slices.Clone(vehicle.DefaultClasses),
	}
}

// Validate checks every field and reports all violations at once as a
// StageError of kind ErrConfiguration.
func (c Config) Validate() error {
	var errs []error
	for _, err := range []error{
		c.Preprocess.Validate(),
		c.Exclusion.Validate(),
		c.Slots.Validate(),
		c.Dedup.Validate(),
		c.Occupancy.Validate(),
	} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(c.VehicleClasses) == 0 {
		errs = append(errs, errors.New("vehicle class allow-list must not be empty"))
	}
	for _, id := range c.VehicleClasses {
		if id < 0 {
			errs = append(errs, fmt.Errorf("vehicle class id must be >= 0, got %d", id))
		}
	}
	if len(errs) > 0 {
		return &StageError{Stage: StageConfig, Kind: ErrConfiguration, Err: errors.Join(errs...)}
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.VehicleClasses = slices.Clone(c.VehicleClasses)
	out.Exclusion.ExtraZones = slices.Clone(c.Exclusion.ExtraZones)
	return out
}

// Overrides replaces individual thresholds for one request. Nil fields keep
// the base value.
type Overrides struct {
	MinArea        *float64 `json:"min_area,omitempty" form:"min_area"`
	MaxArea        *float64 `json:"max_area,omitempty" form:"max_area"`
	MinAspectRatio *float64 `json:"min_aspect_ratio,omitempty" form:"min_aspect_ratio"`
	MaxAspectRatio *float64 `json:"max_aspect_ratio,omitempty" form:"max_aspect_ratio"`

	// IoUThreshold is the occupancy threshold.
	IoUThreshold *float64 `json:"iou_threshold,omitempty" form:"iou_threshold"`
}

// Empty reports whether o changes nothing.
func (o Overrides) Empty() bool {
	return o.MinArea == nil && o.MaxArea == nil && o.MinAspectRatio == nil &&
		o.MaxAspectRatio == nil && o.IoUThreshold == nil
}

// Apply returns a copy of c with o applied. The result is not validated.
func (c Config) Apply(o Overrides) Config {
	out := c.clone()
	if o.MinArea != nil {
		out.Slots.MinArea = *o.MinArea
	}
	if o.MaxArea != nil {
		out.Slots.MaxArea = *o.MaxArea
	}
	if o.MinAspectRatio != nil {
		out.Slots.MinAspectRatio = *o.MinAspectRatio
	}
	if o.MaxAspectRatio != nil {
		out.Slots.MaxAspectRatio = *o.MaxAspectRatio
	}
	if o.IoUThreshold != nil {
		out.Occupancy.IoUThreshold = *o.IoUThreshold
	}
	return out
}
