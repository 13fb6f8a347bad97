package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/vehicle"
)

// Slot is one parking slot in an analysis result.
type Slot struct {
	ID     int              `json:"id"`
	X      int              `json:"x"`
	Y      int              `json:"y"`
	W      int              `json:"w"`
	H      int              `json:"h"`
	Status occupancy.Status `json:"status"`
}

// Rect returns the slot's bounding rectangle.
func (s Slot) Rect() geometry.Rectangle {
	return geometry.Rectangle{X: s.X, Y: s.Y, W: s.W, H: s.H}
}

// Stats carries per-stage counters for diagnostics.
type Stats struct {
	Candidates        detection.ExtractStats `json:"candidates"`
	Dedup             detection.DedupStats   `json:"dedup"`
	TextZones         int                    `json:"text_zones"`
	Detections        int                    `json:"detections"`
	VehicleDetections int                    `json:"vehicle_detections"`
	Classify          occupancy.Stats        `json:"classify"`
}

// Result is a complete analysis of one image.
type Result struct {
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Slots   []Slot            `json:"slots"`
	Summary occupancy.Summary `json:"summary"`

	// Degraded is true when the detector failed and occupancy is unknown.
	// Every slot is then reported AVAILABLE.
	Degraded      bool   `json:"degraded"`
	DetectorError string `json:"detector_error,omitempty"`

	Stats Stats `json:"stats"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBackend replaces the native pixel backend.
func WithBackend(b Backend) Option {
	return func(a *Analyzer) { a.backend = b }
}

// WithLogger sets the logger used for stage and run events.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// ZoneFinder locates restricted areas that are not marked by color, such as
// painted "RESERVED" text.
type ZoneFinder interface {
	FindZones(ctx context.Context, img image.Image) ([]geometry.Rectangle, error)
}

// WithZoneFinder adds zones found in each image to the exclusion mask. A
// finder failure is logged and the analysis continues with the configured
// zones only.
func WithZoneFinder(f ZoneFinder) Option {
	return func(a *Analyzer) { a.zones = f }
}

// Analyzer runs the analysis pipeline. It is safe for concurrent use.
type Analyzer struct {
	cfg      Config
	detector vehicle.Detector
	backend  Backend
	zones    ZoneFinder
	log      zerolog.Logger
}

// NewAnalyzer validates cfg and returns an Analyzer holding a copy of it.
// A nil detector behaves like vehicle.None.
func NewAnalyzer(cfg Config, detector vehicle.Detector, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		detector = vehicle.None{}
	}
	a := &Analyzer{
		cfg:      cfg.clone(),
		detector: detector,
		backend:  Native{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns a copy of the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg.clone()
}

// Backend returns the pixel backend in use.
func (a *Analyzer) Backend() Backend {
	return a.backend
}

// WithConfig returns an Analyzer sharing a's detector, backend and logger
// but using cfg. a is unchanged.
func (a *Analyzer) WithConfig(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg.clone(), detector: a.detector, backend: a.backend, zones: a.zones, log: a.log}, nil
}

// LineMask runs only the preprocess stage.
func (a *Analyzer) LineMask(img image.Image) (*imaging.Mask, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, &StageError{Stage: StageInput, Kind: ErrInvalidImage, Err: err}
	}
	m, err := a.backend.LineMask(img, a.cfg.Preprocess)
	if err != nil {
		return nil, &StageError{Stage: StagePreprocess, Kind: ErrInvalidImage, Err: err}
	}
	return m, nil
}

// ExclusionMask runs only the exclusion stage.
func (a *Analyzer) ExclusionMask(img image.Image) (*imaging.Mask, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, &StageError{Stage: StageInput, Kind: ErrInvalidImage, Err: err}
	}
	m, err := a.backend.ExclusionMask(img, a.cfg.Exclusion)
	if err != nil {
		return nil, &StageError{Stage: StageExclusion, Kind: ErrInvalidImage, Err: err}
	}
	return m, nil
}

// Analyze runs all stages on img. It returns either a complete Result or a
// *StageError; partial results are never returned.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	if err := imaging.Validate(img); err != nil {
		return nil, &StageError{Stage: StageInput, Kind: ErrInvalidImage, Err: err}
	}

	cfg := a.cfg
	b := img.Bounds()
	res := &Result{Width: b.Dx(), Height: b.Dy()}

	// A stage always runs to completion. Cancellation is checked only at
	// the boundaries between stages.
	stageCtx := context.WithoutCancel(ctx)

	var (
		lineMask, exclusion *imaging.Mask
		candidates          []detection.Candidate
		slots               []detection.Slot
		vehicles            []vehicle.Detection
		statuses            []occupancy.Result
		detectErr           error
	)

	steps := []struct {
		stage Stage
		kind  error
		run   func() error
	}{
		{StagePreprocess, ErrInvalidImage, func() (err error) {
			lineMask, err = a.backend.LineMask(img, cfg.Preprocess)
			return err
		}},
		{StageExclusion, ErrInvalidImage, func() (err error) {
			params := cfg.Exclusion
			if found := a.findZones(stageCtx, img); len(found) > 0 {
				res.Stats.TextZones = len(found)
				params.ExtraZones = append(append([]geometry.Rectangle(nil), params.ExtraZones...), found...)
			}
			exclusion, err = a.backend.ExclusionMask(img, params)
			return err
		}},
		{StageCandidates, ErrInvalidImage, func() error {
			contours, err := a.backend.Contours(lineMask)
			if err != nil {
				return err
			}
			candidates, res.Stats.Candidates = detection.ExtractCandidates(contours, exclusion, cfg.Slots)
			return nil
		}},
		{StageDedup, ErrInvalidImage, func() error {
			slots, res.Stats.Dedup = detection.Deduplicate(candidates, cfg.Dedup)
			return nil
		}},
		{StageDetect, ErrDetectorUnavailable, func() error {
			dets, err := a.detector.Detect(stageCtx, img)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return &StageError{Stage: StageDetect, Kind: ErrCanceled, Err: ctxErr}
				}
				if !cfg.DegradeOnDetectorFailure {
					return err
				}
				detectErr = err
				return nil
			}
			res.Stats.Detections = len(dets)
			vehicles = vehicle.FilterClasses(dets, cfg.VehicleClasses)
			res.Stats.VehicleDetections = len(vehicles)
			return nil
		}},
		{StageClassify, ErrInvalidImage, func() error {
			if detectErr != nil {
				statuses = occupancy.AllAvailable(slots)
				return nil
			}
			statuses, res.Stats.Classify = occupancy.Classify(slots, vehicles, cfg.Occupancy)
			return nil
		}},
		{StageAggregate, ErrInvalidImage, func() error {
			res.Summary = occupancy.Aggregate(statuses)
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: step.stage, Kind: ErrCanceled, Err: err}
		}
		stageStart := time.Now()
		if err := step.run(); err != nil {
			var se *StageError
			if errors.As(err, &se) {
				return nil, se
			}
			return nil, &StageError{Stage: step.stage, Kind: step.kind, Err: err}
		}
		a.log.Debug().
			Str("stage", string(step.stage)).
			Dur("elapsed", time.Since(stageStart)).
			Msg("stage complete")
	}

	res.Slots = make([]Slot, len(slots))
	for i, s := range slots {
		res.Slots[i] = Slot{
			ID:     s.ID,
			X:      s.Rect.X,
			Y:      s.Rect.Y,
			W:      s.Rect.W,
			H:      s.Rect.H,
			Status: statuses[i].Status,
		}
	}
	if detectErr != nil {
		res.Degraded = true
		res.DetectorError = detectErr.Error()
		a.log.Warn().Err(detectErr).Msg("vehicle detector failed, occupancy unknown")
	}

	a.log.Info().
		Int("width", res.Width).
		Int("height", res.Height).
		Int("contours", res.Stats.Candidates.Contours).
		Int("candidates", res.Stats.Candidates.Accepted).
		Int("total", res.Summary.Total).
		Int("occupied", res.Summary.Occupied).
		Bool("degraded", res.Degraded).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return res, nil
}

func (a *Analyzer) findZones(ctx context.Context, img image.Image) []geometry.Rectangle {
	if a.zones == nil {
		return nil
	}
	found, err := a.zones.FindZones(ctx, img)
	if err != nil {
		a.log.Warn().Err(err).Msg("text zone search failed")
		return nil
	}
	return found
}

// WithOverrides returns a when o is empty, otherwise an Analyzer using the
// overridden configuration.
func (a *Analyzer) WithOverrides(o Overrides) (*Analyzer, error) {
	if o.Empty() {
		return a, nil
	}
	return a.WithConfig(a.cfg.Apply(o))
}
