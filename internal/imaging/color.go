package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// HSVColor is a color in the 8-bit HSV convention used for zone matching.
//
//   - H: hue 0-179 (degrees / 2)
//   - S: saturation 0-255
//   - V: value 0-255
type HSVColor struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// HSVRange is an inclusive HSV color range.
type HSVRange struct {
	Lower HSVColor `json:"lower"`
	Upper HSVColor `json:"upper"`
}

// Contains reports whether c lies within the range on all three channels.
func (r HSVRange) Contains(c HSVColor) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// Validate checks that each channel is within its domain and lower <= upper.
func (r HSVRange) Validate() error {
	check := func(name string, lo, hi, limit int) error {
		if lo < 0 || hi > limit {
			return fmt.Errorf("%s range [%d,%d] outside [0,%d]", name, lo, hi, limit)
		}
		if lo > hi {
			return fmt.Errorf("%s lower bound %d exceeds upper bound %d", name, lo, hi)
		}
		return nil
	}
	if err := check("hue", r.Lower.H, r.Upper.H, 180); err != nil {
		return err
	}
	if err := check("saturation", r.Lower.S, r.Upper.S, 255); err != nil {
		return err
	}
	return check("value", r.Lower.V, r.Upper.V, 255)
}

// YellowPaint is the default restricted-zone color range.
var YellowPaint = HSVRange{
	Lower: HSVColor{H: 20, S: 80, V: 80},
	Upper: HSVColor{H: 35, S: 255, V: 255},
}

// ToHSV converts 8-bit RGB components to HSVColor.
//
// Hue is computed in degrees by go-colorful and halved; saturation and value
// are scaled to 0-255. All channels are rounded to the nearest integer, and a
// hue that rounds to 180 wraps to 0.
func ToHSV(r, g, b uint8) HSVColor {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := c.Hsv()

	hh := int(math.Round(h / 2))
	if hh >= 180 {
		hh -= 180
	}
	return HSVColor{
		H: hh,
		S: int(math.Round(s * 255)),
		V: int(math.Round(v * 255)),
	}
}

// SampleHSVResult reports the color of one pixel.
type SampleHSVResult struct {
	X   int      `json:"x"`
	Y   int      `json:"y"`
	Hex string   `json:"hex"`
	HSV HSVColor `json:"hsv"`

	// InRange reports whether the color matches the range the caller passed.
	InRange bool `json:"in_range"`
}

// SampleHSV reads the pixel at (x, y) (0-based, relative to the image
// bounds) and tests it against rng. It is used to calibrate zone colors.
func SampleHSV(img image.Image, x, y int, rng HSVRange) (*SampleHSVResult, error) {
	b := img.Bounds()
	if x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, b.Dx(), b.Dy())
	}
	r8, g8, b8 := rgb8(img, b.Min.X+x, b.Min.Y+y)
	hsv := ToHSV(r8, g8, b8)
	return &SampleHSVResult{
		X:       x,
		Y:       y,
		Hex:     fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		HSV:     hsv,
		InRange: rng.Contains(hsv),
	}, nil
}

// ExclusionParams configures ExclusionMask.
type ExclusionParams struct {
	// Range is the restricted-zone paint color. Default: YellowPaint.
	Range HSVRange `json:"range"`

	// DilateKernel is the side of the square dilation element. Default: 7.
	DilateKernel int `json:"dilate_kernel"`

	// DilateIterations is the number of dilations. Default: 2.
	DilateIterations int `json:"dilate_iterations"`

	// ExtraZones are rectangles marked restricted before dilation, such as
	// zones found by reading painted text.
	ExtraZones []geometry.Rectangle `json:"extra_zones,omitempty"`
}

// DefaultExclusionParams returns the yellow-paint defaults.
func DefaultExclusionParams() ExclusionParams {
	return ExclusionParams{
		Range:            YellowPaint,
		DilateKernel:     7,
		DilateIterations: 2,
	}
}

// Validate checks parameter ranges.
func (p ExclusionParams) Validate() error {
	if err := p.Range.Validate(); err != nil {
		return err
	}
	if p.DilateKernel < 1 {
		return fmt.Errorf("dilate kernel must be >= 1, got %d", p.DilateKernel)
	}
	if p.DilateIterations < 0 {
		return fmt.Errorf("dilate iterations must be >= 0, got %d", p.DilateIterations)
	}
	return nil
}

// ExclusionMask marks restricted areas of img.
//
// A pixel is restricted when its HSV color lies inside p.Range (inclusive).
// Rectangles in p.ExtraZones are added, and the mask is then dilated with a
// DilateKernel square DilateIterations times.
func ExclusionMask(img image.Image, p ExclusionParams) (*Mask, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	raw := ColorRangeMask(img, p.Range)
	for _, z := range p.ExtraZones {
		raw.FillRect(z)
	}
	return Dilate(raw, p.DilateKernel, p.DilateKernel, p.DilateIterations), nil
}

// ColorRangeMask returns the undilated in-range mask of img.
func ColorRangeMask(img image.Image, rng HSVRange) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r8, g8, b8 := rgb8(img, b.Min.X+x, b.Min.Y+y)
			m.Pix[y*m.Width+x] = rng.Contains(ToHSV(r8, g8, b8))
		}
	}
	return m
}

// rgb8 returns the 8-bit color channels at (x, y) in image coordinates.
func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	switch src := img.(type) {
	case *image.NRGBA:
		i := src.PixOffset(x, y)
		return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
	case *image.RGBA:
		i := src.PixOffset(x, y)
		return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
