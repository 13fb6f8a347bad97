package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Mask is a binary image. Pix holds Width*Height values in row-major order;
// true marks a foreground pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// In reports whether (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the pixel at (x, y). Out-of-bounds pixels are background.
func (m *Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if m.In(x, y) {
		m.Pix[y*m.Width+x] = v
	}
}

// FillRect marks every pixel of r that lies inside the mask as foreground.
func (m *Mask) FillRect(r geometry.Rectangle) {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.Right(), m.Width), min(r.Bottom(), m.Height)
	for y := y0; y < y1; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			row[x] = true
		}
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Gray renders the mask as an 8-bit image: foreground 255, background 0.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			g.Pix[i] = 255
		}
	}
	return g
}

// MaskFromGray thresholds g: pixels strictly greater than level are
// foreground.
func MaskFromGray(g *image.Gray, level uint8) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y > level {
				m.Pix[y*m.Width+x] = true
			}
		}
	}
	return m
}

// MaskImageResult is a mask encoded as a base64 PNG.
//
// White pixels (255) are foreground.
type MaskImageResult struct {
	// Width of the mask in pixels (same as the source image).
	Width int `json:"width"`

	// Height of the mask in pixels (same as the source image).
	Height int `json:"height"`

	// ForegroundPixels is the number of set pixels.
	ForegroundPixels int `json:"foreground_pixels"`

	// ImageBase64 is the grayscale mask encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`
}

// EncodeMask renders m as a PNG and returns it base64 encoded.
func EncodeMask(m *Mask) (*MaskImageResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.Gray()); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return &MaskImageResult{
		Width:            m.Width,
		Height:           m.Height,
		ForegroundPixels: m.Count(),
		ImageBase64:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:         "image/png",
	}, nil
}

// grayPlane is an 8-bit single-channel raster used between stages.
type grayPlane struct {
	width, height int
	pix           []uint8
}

// planeFromImage reads the first channel of an already-gray image.
func planeFromImage(img image.Image) *grayPlane {
	b := img.Bounds()
	p := &grayPlane{width: b.Dx(), height: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < p.height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < p.width; x++ {
				p.pix[y*p.width+x] = src.Pix[off+x*4]
			}
		}
	case *image.RGBA:
		for y := 0; y < p.height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < p.width; x++ {
				p.pix[y*p.width+x] = src.Pix[off+x*4]
			}
		}
	default:
		for y := 0; y < p.height; y++ {
			for x := 0; x < p.width; x++ {
				c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				p.pix[y*p.width+x] = c.Y
			}
		}
	}
	return p
}

// padReflect101 returns p grown by r pixels on every side. The border is
// mirrored without repeating the edge pixel: dcb|abcd|cba.
func (p *grayPlane) padReflect101(r int) *grayPlane {
	w, h := p.width+2*r, p.height+2*r
	out := &grayPlane{width: w, height: h, pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		sy := reflect101(y-r, p.height)
		for x := 0; x < w; x++ {
			out.pix[y*w+x] = p.pix[sy*p.width+reflect101(x-r, p.width)]
		}
	}
	return out
}

// crop removes r pixels from every side of p.
func (p *grayPlane) crop(r int) *grayPlane {
	w, h := p.width-2*r, p.height-2*r
	out := &grayPlane{width: w, height: h, pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		copy(out.pix[y*w:(y+1)*w], p.pix[(y+r)*p.width+r:])
	}
	return out
}

// reflect101 maps any index onto [0,n) by mirroring about the first and
// last elements.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// image wraps the plane as an opaque NRGBA so it can be fed to the
// convolution routines.
func (p *grayPlane) image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	for i, v := range p.pix {
		img.Pix[i*4] = v
		img.Pix[i*4+1] = v
		img.Pix[i*4+2] = v
		img.Pix[i*4+3] = 255
	}
	return img
}
