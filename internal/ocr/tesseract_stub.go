//go:build !ocr
// +build !ocr

package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Tesseract is a placeholder when the binary lacks Tesseract support.
type Tesseract struct{}

// NewTesseract reports that Tesseract support is not compiled in.
func NewTesseract(ZoneParams) (*Tesseract, error) {
	return nil, ErrNotEnabled
}

// Enabled reports whether the binary was built with Tesseract support.
func Enabled() bool { return false }

func (*Tesseract) Words(image.Image) ([]Word, error) {
	return nil, ErrNotEnabled
}

func (*Tesseract) Zones(context.Context, image.Image) ([]TextZone, error) {
	return nil, ErrNotEnabled
}

func (*Tesseract) FindZones(context.Context, image.Image) ([]geometry.Rectangle, error) {
	return nil, ErrNotEnabled
}
