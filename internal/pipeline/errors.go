package pipeline

import (
	"errors"
	"fmt"

	"github.com/ironsheep/parkscan/internal/imaging"
)

// Error kinds carried by StageError.
var (
	ErrInvalidImage        = imaging.ErrInvalidImage
	ErrConfiguration       = errors.New("configuration error")
	ErrDetectorUnavailable = errors.New("detector unavailable")
	ErrCanceled            = errors.New("analysis canceled")
)

// Stage names a step of the analysis.
type Stage string

const (
	StageConfig     Stage = "config"
	StageInput      Stage = "input"
	StagePreprocess Stage = "preprocess"
	StageExclusion  Stage = "exclusion"
	StageCandidates Stage = "candidates"
	StageDedup      Stage = "dedup"
	StageDetect     Stage = "detect"
	StageClassify   Stage = "classify"
	StageAggregate  Stage = "aggregate"
)

// StageError is the single terminal error of a failed run.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("stage %s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StageOf returns the stage named by err, or "" when err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
