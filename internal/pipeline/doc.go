// Package pipeline runs the parking analysis end to end on one decoded image.
//
// An Analyzer owns an immutable Config, a pixel Backend, and a vehicle
// Detector. Analyze executes seven stages strictly in order:
//
//	preprocess -> exclusion -> candidates -> dedup -> detect -> classify -> aggregate
//
// Each stage consumes the whole output of the previous one. There is no
// caching between runs and no stage is retried.
//
// # Cancellation
//
// The context is checked before every stage. A stage that has started runs
// to completion; cancellation is reported at the next checkpoint as a
// StageError of kind ErrCanceled naming the stage that did not run.
//
// # Errors
//
// Every failure is a *StageError. errors.Is matches the kind
// (ErrInvalidImage, ErrConfiguration, ErrDetectorUnavailable, ErrCanceled)
// and the underlying cause; errors.As recovers the stage name.
//
// With Config.DegradeOnDetectorFailure set, a detector failure does not end
// the run: every slot is reported AVAILABLE and Result.Degraded is true.
//
// # Concurrency
//
// An Analyzer holds no per-run state and may be shared by many goroutines.
// AnalyzeBatch runs whole-image analyses on a bounded worker pool. Detectors
// that cannot be called concurrently should be wrapped in
// vehicle.Serialized.
package pipeline
