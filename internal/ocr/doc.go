// Package ocr finds restricted parking zones marked by painted text.
//
// Color masking catches yellow curb and hatch paint, but lots also mark
// slots with words such as "RESERVED" or "NO PARKING" in white. This
// package reads those words with Tesseract (via gosseract/v2) and turns the
// matching word boxes into rectangles for the exclusion mask.
//
// # Build Tag
//
// Tesseract is a cgo dependency, so the engine is compiled only with the
// ocr build tag:
//
//	go build -tags ocr ./...
//
// Without the tag NewTesseract returns ErrNotEnabled. Keyword matching
// (MatchZones) is plain Go and always available.
//
// # Prerequisites
//
// With the tag set, Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Matching
//
// Words are normalized to upper case letters and digits before comparison.
// A keyword made of several words matches a run of consecutive words on the
// same text line, and the zone is the union of their boxes. Words below
// ZoneParams.MinConfidence never match.
package ocr

import "errors"

// ErrNotEnabled is returned when the binary was built without Tesseract.
var ErrNotEnabled = errors.New("ocr build tag is not enabled")
