//go:build ocr
// +build ocr

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Tesseract reads painted text with the Tesseract engine.
//
// A gosseract client is not safe for concurrent use, so each call creates
// its own. Tesseract is safe for concurrent use.
type Tesseract struct {
	params ZoneParams
}

// NewTesseract validates p and returns a zone finder.
func NewTesseract(p ZoneParams) (*Tesseract, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Keywords = append([]string(nil), p.Keywords...)
	return &Tesseract{params: p}, nil
}

// Enabled reports whether the binary was built with Tesseract support.
func Enabled() bool { return true }

// Words recognizes every word in img.
//
// Painted text seen from above is often small, so images narrower than
// 1600 pixels are upscaled before recognition and the boxes scaled back.
func (t *Tesseract) Words(img image.Image) ([]Word, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has zero dimension: %dx%d", b.Dx(), b.Dy())
	}

	scale := 1
	src := img
	if b.Dx() < 1600 {
		scale = 2
		src = imaging.Resize(img, b.Dx()*scale, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.params.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Box: geometry.FromCorners(
				b.Min.X+box.Box.Min.X/scale,
				b.Min.Y+box.Box.Min.Y/scale,
				b.Min.X+(box.Box.Max.X+scale-1)/scale,
				b.Min.Y+(box.Box.Max.Y+scale-1)/scale,
			),
		})
	}
	return words, nil
}

// Zones returns the matched text zones in img.
func (t *Tesseract) Zones(ctx context.Context, img image.Image) ([]TextZone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words, err := t.Words(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return MatchZones(words, t.params, b.Dx(), b.Dy()), nil
}

// FindZones returns the rectangles of the matched text zones.
func (t *Tesseract) FindZones(ctx context.Context, img image.Image) ([]geometry.Rectangle, error) {
	zones, err := t.Zones(ctx, img)
	if err != nil {
		return nil, err
	}
	return Rects(zones), nil
}
