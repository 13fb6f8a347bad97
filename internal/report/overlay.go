// Package report renders analysis results for people: an annotated copy of
// the lot image and CSV summaries.
package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/pipeline"
)

// Style selects overlay colors as hex strings ("#RRGGBB").
type Style struct {
	Occupied  string `json:"occupied"`
	Available string `json:"available"`
	Degraded  string `json:"degraded"`
	Text      string `json:"text"`
	LineWidth int    `json:"line_width"`
}

// DefaultStyle draws occupied slots red, available slots green, and slots of
// a degraded run amber.
func DefaultStyle() Style {
	return Style{
		Occupied:  "#FF0000",
		Available: "#00FF00",
		Degraded:  "#FFBF00",
		Text:      "#FFFFFF",
		LineWidth: 2,
	}
}

type palette struct {
	occupied, available, degraded, text color.NRGBA
}

func (s Style) palette() (palette, error) {
	var p palette
	for _, c := range []struct {
		name string
		hex  string
		dst  *color.NRGBA
	}{
		{"occupied", s.Occupied, &p.occupied},
		{"available", s.Available, &p.available},
		{"degraded", s.Degraded, &p.degraded},
		{"text", s.Text, &p.text},
	} {
		parsed, err := colorful.Hex(c.hex)
		if err != nil {
			return palette{}, fmt.Errorf("invalid %s color %q: %w", c.name, c.hex, err)
		}
		r, g, b := parsed.RGB255()
		*c.dst = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return p, nil
}

// RenderOverlay returns a copy of img with every slot outlined by status and
// the lot counts written in the top-left corner:
//
//	Total: N      (text color, baseline y=30)
//	Occupied: N   (occupied color, baseline y=70)
//	Available: N  (available color, baseline y=110)
//
// Slot coordinates are relative to img.Bounds().Min. img is not modified.
func RenderOverlay(img image.Image, res *pipeline.Result, style Style) (*image.NRGBA, error) {
	if res == nil {
		return nil, fmt.Errorf("failed to render overlay: no result")
	}
	p, err := style.palette()
	if err != nil {
		return nil, err
	}
	width := style.LineWidth
	if width < 1 {
		width = 1
	}

	out := imaging.Clone(img)

	for _, s := range res.Slots {
		c := p.available
		switch {
		case res.Degraded:
			c = p.degraded
		case s.Status == occupancy.Occupied:
			c = p.occupied
		}
		strokeRect(out, image.Rect(s.X, s.Y, s.X+s.W, s.Y+s.H), width, c)
	}

	drawLabel(out, 10, 30, fmt.Sprintf("Total: %d", res.Summary.Total), p.text)
	drawLabel(out, 10, 70, fmt.Sprintf("Occupied: %d", res.Summary.Occupied), p.occupied)
	drawLabel(out, 10, 110, fmt.Sprintf("Available: %d", res.Summary.Available), p.available)

	return out, nil
}

// strokeRect draws the outline of r, width pixels thick, inside r.
func strokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

// drawLabel writes text with its baseline at (x, y) over a translucent
// dark box.
func drawLabel(dst draw.Image, x, y int, text string, fg color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}

	metrics := face.Metrics()
	box := image.Rect(
		x-2,
		y-metrics.Ascent.Ceil()-2,
		x+d.MeasureString(text).Ceil()+2,
		y+metrics.Descent.Ceil()+2,
	)
	draw.Draw(dst, box.Intersect(dst.Bounds()), image.NewUniform(color.NRGBA{A: 160}), image.Point{}, draw.Over)
	d.DrawString(text)
}

// OverlayImageResult is an encoded overlay.
type OverlayImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeOverlay renders the overlay and encodes it as base64 PNG.
func EncodeOverlay(img image.Image, res *pipeline.Result, style Style) (*OverlayImageResult, error) {
	out, err := RenderOverlay(img, res, style)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := out.Bounds()
	return &OverlayImageResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
