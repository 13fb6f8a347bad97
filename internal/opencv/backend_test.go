//go:build gocv
// +build gocv

package opencv

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestMaskRoundTrip(t *testing.T) {
	m := imaging.NewMask(7, 5)
	m.FillRect(geometry.Rectangle{X: 1, Y: 1, W: 3, H: 2})

	mat, err := toMat(m)
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	defer mat.Close()

	back, err := fromMat(mat)
	if err != nil {
		t.Fatalf("fromMat: %v", err)
	}
	if back.Width != 7 || back.Height != 5 || back.Count() != 6 {
		t.Errorf("round trip mismatch: %dx%d with %d set", back.Width, back.Height, back.Count())
	}
}

func TestContours_Rectangle(t *testing.T) {
	m := imaging.NewMask(60, 60)
	m.FillRect(geometry.Rectangle{X: 10, Y: 10, W: 20, H: 30})

	b, _ := New()
	contours, err := b.Contours(m)
	if err != nil {
		t.Fatalf("Contours: %v", err)
	}
	if len(contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(contours))
	}

	got := detection.BoundingRect(contours[0])
	want := geometry.Rectangle{X: 10, Y: 10, W: 20, H: 30}
	if got != want {
		t.Errorf("bounding rect = %v, want %v", got, want)
	}
}

func TestLineMask_UniformImage(t *testing.T) {
	b, _ := New()
	m, err := b.LineMask(solid(40, 40, color.Gray{Y: 128}), imaging.DefaultLineMaskParams())
	if err != nil {
		t.Fatalf("LineMask: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("uniform image produced %d foreground pixels", m.Count())
	}
}

func TestExclusionMask_Yellow(t *testing.T) {
	img := solid(60, 60, color.Gray{Y: 90})
	draw.Draw(img, image.Rect(25, 25, 35, 35), &image.Uniform{C: color.RGBA{R: 230, G: 200, B: 20, A: 255}}, image.Point{}, draw.Src)

	b, _ := New()
	m, err := b.ExclusionMask(img, imaging.DefaultExclusionParams())
	if err != nil {
		t.Fatalf("ExclusionMask: %v", err)
	}
	if !m.At(30, 30) {
		t.Error("patch center should be restricted")
	}
	if !m.At(22, 30) {
		t.Error("dilation should grow the patch")
	}
	if m.At(2, 2) {
		t.Error("far corner should not be restricted")
	}
}
