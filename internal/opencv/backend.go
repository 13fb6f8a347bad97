//go:build gocv
// +build gocv

package opencv

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
)

// Backend implements the pixel stages with gocv. It holds no state and is
// safe for concurrent use.
type Backend struct{}

// New returns the OpenCV backend.
func New() (*Backend, error) {
	return &Backend{}, nil
}

// Enabled reports whether the binary was built with OpenCV support.
func Enabled() bool { return true }

func (*Backend) Name() string { return Name }

// LineMask builds the painted-line mask.
func (*Backend) LineMask(img image.Image, p imaging.LineMaskParams) (*imaging.Mask, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bgr, err := toBGR(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blur, &thresh, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinaryInv, p.BlockSize, float32(p.Offset))

	opened := morph(thresh, p.OpenKernel, p.OpenIterations, true)
	defer opened.Close()

	return fromMat(opened)
}

// ExclusionMask marks restricted paint plus any extra zones, then dilates.
func (*Backend) ExclusionMask(img image.Image, p imaging.ExclusionParams) (*imaging.Mask, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bgr, err := toBGR(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	lo, hi := p.Range.Lower, p.Range.Upper
	raw := gocv.NewMat()
	defer raw.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(lo.H), float64(lo.S), float64(lo.V), 0),
		gocv.NewScalar(float64(hi.H), float64(hi.S), float64(hi.V), 0),
		&raw)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, z := range p.ExtraZones {
		if z.Empty() {
			continue
		}
		gocv.Rectangle(&raw, image.Rect(z.X, z.Y, z.Right(), z.Bottom()), white, -1)
	}

	dilated := morph(raw, p.DilateKernel, p.DilateIterations, false)
	defer dilated.Close()

	return fromMat(dilated)
}

// Contours traces external borders with simple chain approximation.
func (*Backend) Contours(m *imaging.Mask) ([]detection.Contour, error) {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil, nil
	}

	mat, err := toMat(m)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	found := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]detection.Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		c := make(detection.Contour, len(pts))
		for j, pt := range pts {
			c[j] = geometry.Point{X: pt.X, Y: pt.Y}
		}
		contours = append(contours, c)
	}
	return contours, nil
}

// morph applies iterations erosions then dilations (an opening) when open is
// true, or iterations dilations otherwise. The caller owns the result.
func morph(src gocv.Mat, ksize, iterations int, open bool) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(ksize, ksize))
	defer kernel.Close()

	cur := src.Clone()
	step := func(erode bool) {
		next := gocv.NewMat()
		if erode {
			gocv.Erode(cur, &next, kernel)
		} else {
			gocv.Dilate(cur, &next, kernel)
		}
		cur.Close()
		cur = next
	}

	if open {
		for i := 0; i < iterations; i++ {
			step(true)
		}
	}
	for i := 0; i < iterations; i++ {
		step(false)
	}
	return cur
}

func toBGR(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.New("failed to convert image: empty matrix")
	}
	return mat, nil
}

func toMat(m *imaging.Mask) (gocv.Mat, error) {
	data := make([]byte, len(m.Pix))
	for i, v := range m.Pix {
		if v {
			data[i] = 255
		}
	}
	view, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert mask: %w", err)
	}
	defer view.Close()

	// view borrows data; the clone owns its pixels.
	return view.Clone(), nil
}

func fromMat(mat gocv.Mat) (*imaging.Mask, error) {
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected mask type %v", mat.Type())
	}
	cont := mat
	if !mat.IsContinuous() {
		cont = mat.Clone()
		defer cont.Close()
	}
	data, err := cont.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}

	m := imaging.NewMask(mat.Cols(), mat.Rows())
	for i := range m.Pix {
		m.Pix[i] = data[i] != 0
	}
	return m, nil
}
