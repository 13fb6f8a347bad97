package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// LineMaskParams configures LineMask.
type LineMaskParams struct {
	// BlurKernel is the side of the Gaussian pre-blur kernel. Must be odd.
	// Default: 5.
	BlurKernel int `json:"blur_kernel"`

	// BlockSize is the side of the adaptive-threshold neighbourhood. Must be
	// odd and greater than 1. Default: 19.
	BlockSize int `json:"block_size"`

	// Offset is the constant subtracted from the local mean. Default: 3.
	Offset float64 `json:"offset"`

	// OpenKernel is the side of the rectangular opening element. Default: 3.
	OpenKernel int `json:"open_kernel"`

	// OpenIterations is the number of erosions (then dilations) applied.
	// Default: 1.
	OpenIterations int `json:"open_iterations"`
}

// DefaultLineMaskParams returns the tuned defaults for aerial lot imagery.
func DefaultLineMaskParams() LineMaskParams {
	return LineMaskParams{
		BlurKernel:     5,
		BlockSize:      19,
		Offset:         3,
		OpenKernel:     3,
		OpenIterations: 1,
	}
}

// Validate checks parameter ranges.
func (p LineMaskParams) Validate() error {
	if p.BlurKernel < 1 || p.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", p.BlurKernel)
	}
	if p.BlockSize < 3 || p.BlockSize%2 == 0 {
		return fmt.Errorf("block size must be an odd number >= 3, got %d", p.BlockSize)
	}
	if math.IsNaN(p.Offset) || math.IsInf(p.Offset, 0) {
		return fmt.Errorf("offset must be finite, got %v", p.Offset)
	}
	if p.OpenKernel < 1 {
		return fmt.Errorf("open kernel must be >= 1, got %d", p.OpenKernel)
	}
	if p.OpenIterations < 0 {
		return fmt.Errorf("open iterations must be >= 0, got %d", p.OpenIterations)
	}
	return nil
}

// LineMask converts img into a binary mask of painted slot lines.
//
// # Algorithm
//
//  1. Grayscale: ITU-R BT.601 luminance, rounded to 8 bits
//  2. Blur: separable Gaussian of side BlurKernel, border mirrored without
//     repeating the edge pixel
//  3. Threshold: a pixel is foreground when
//     gray <= gaussianMean(BlockSize) - floor(Offset), with the mean's
//     border pixels replicated
//  4. Opening with a square element of side OpenKernel, OpenIterations times
//
// The result has the same dimensions as img.
func LineMask(img image.Image, p LineMaskParams) (*Mask, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gray := planeFromImage(imaging.Grayscale(img))
	blurred := blurPlane(gray, p.BlurKernel)
	mask := adaptiveThresholdInv(blurred, p.BlockSize, p.Offset)
	return Open(mask, p.OpenKernel, p.OpenKernel, p.OpenIterations), nil
}

// adaptiveThresholdInv marks pixels at least floor(offset) levels darker
// than their Gaussian-weighted neighbourhood mean.
func adaptiveThresholdInv(src *grayPlane, blockSize int, offset float64) *Mask {
	mean := gaussianPlane(src, blockSize)
	delta := int(math.Floor(offset))

	m := NewMask(src.width, src.height)
	for i, v := range src.pix {
		if int(v)-int(mean.pix[i]) <= -delta {
			m.Pix[i] = true
		}
	}
	return m
}

// blurPlane is the pre-threshold smoothing. Unlike the threshold mean it
// mirrors the border without repeating the edge pixel.
func blurPlane(p *grayPlane, ksize int) *grayPlane {
	r := ksize / 2
	if r == 0 {
		return gaussianPlane(p, ksize)
	}
	return gaussianPlane(p.padReflect101(r), ksize).crop(r)
}

// gaussianPlane blurs p with a separable Gaussian of side ksize and returns
// a new plane. Pixels past the border repeat the edge pixel. Each pass
// rounds to the nearest level.
func gaussianPlane(p *grayPlane, ksize int) *grayPlane {
	if ksize == 1 {
		out := &grayPlane{width: p.width, height: p.height, pix: make([]uint8, len(p.pix))}
		copy(out.pix, p.pix)
		return out
	}

	weights := gaussianWeights(ksize)
	horizontal := convolution.NewKernel(ksize, 1)
	vertical := convolution.NewKernel(1, ksize)
	copy(horizontal.Matrix, weights)
	copy(vertical.Matrix, weights)

	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	pass := convolution.Convolve(p.image(), horizontal, opts)
	pass = convolution.Convolve(pass, vertical, opts)
	return planeFromImage(pass)
}

// gaussianWeights returns normalized 1-D Gaussian weights of length ksize.
// Sizes up to 7 use the fixed binomial tables; larger sizes derive sigma
// from the size.
func gaussianWeights(ksize int) []float64 {
	switch ksize {
	case 1:
		return []float64{1}
	case 3:
		return []float64{0.25, 0.5, 0.25}
	case 5:
		return []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	case 7:
		return []float64{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125}
	}

	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	scale := -0.5 / (sigma * sigma)
	center := float64(ksize-1) / 2

	w := make([]float64, ksize)
	sum := 0.0
	for i := range w {
		d := float64(i) - center
		w[i] = math.Exp(scale * d * d)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
