package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestIoU_Identity(t *testing.T) {
	rects := []Rectangle{
		{X: 0, Y: 0, W: 1, H: 1},
		{X: 10, Y: 20, W: 30, H: 75},
		{X: -5, Y: -5, W: 10, H: 4},
	}
	for _, r := range rects {
		if got := IoU(r, r); got != 1.0 {
			t.Errorf("IoU(%v, %v) = %v, want 1", r, r, got)
		}
	}
}

func TestIoU_Symmetric(t *testing.T) {
	pairs := [][2]Rectangle{
		{{X: 0, Y: 0, W: 10, H: 10}, {X: 5, Y: 5, W: 10, H: 10}},
		{{X: 0, Y: 0, W: 40, H: 100}, {X: 10, Y: 30, W: 20, H: 20}},
		{{X: 3, Y: 7, W: 11, H: 2}, {X: 100, Y: 100, W: 5, H: 5}},
		{{X: 0, Y: 0, W: 0, H: 0}, {X: 0, Y: 0, W: 0, H: 0}},
	}
	for _, p := range pairs {
		ab := IoU(p[0], p[1])
		ba := IoU(p[1], p[0])
		if ab != ba {
			t.Errorf("IoU not symmetric for %v / %v: %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestIoU_NonOverlapping(t *testing.T) {
	tests := []struct {
		name string
		a, b Rectangle
	}{
		{"separated horizontally", Rectangle{X: 0, Y: 0, W: 10, H: 10}, Rectangle{X: 20, Y: 0, W: 10, H: 10}},
		{"separated vertically", Rectangle{X: 0, Y: 0, W: 10, H: 10}, Rectangle{X: 0, Y: 11, W: 10, H: 10}},
		{"touching edge", Rectangle{X: 0, Y: 0, W: 10, H: 10}, Rectangle{X: 10, Y: 0, W: 10, H: 10}},
		{"diagonal", Rectangle{X: 0, Y: 0, W: 5, H: 5}, Rectangle{X: 50, Y: 50, W: 5, H: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IoU(tt.a, tt.b); got != 0 {
				t.Errorf("IoU = %v, want 0", got)
			}
		})
	}
}

func TestIoU_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Rectangle
		want float64
	}{
		// 50 / (100 + 100 - 50)
		{"half shift", Rectangle{X: 0, Y: 0, W: 10, H: 10}, Rectangle{X: 5, Y: 0, W: 10, H: 10}, 50.0 / 150.0},
		// Contained: 400 / 1600
		{"contained", Rectangle{X: 0, Y: 0, W: 40, H: 40}, Rectangle{X: 10, Y: 10, W: 20, H: 20}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("IoU = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlap_Degenerate(t *testing.T) {
	zero := Rectangle{X: 5, Y: 5, W: 0, H: 0}
	iou, err := Overlap(zero, zero)
	if iou != 0 {
		t.Errorf("IoU of degenerate pair = %v, want 0", iou)
	}
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}

	// One degenerate rectangle inside a real one has a positive union.
	iou, err = Overlap(zero, Rectangle{X: 0, Y: 0, W: 10, H: 10})
	if err != nil || iou != 0 {
		t.Errorf("Overlap(zero, real) = %v, %v; want 0, nil", iou, err)
	}
}

func TestRectangle_Center(t *testing.T) {
	tests := []struct {
		r    Rectangle
		want Point
	}{
		{Rectangle{X: 0, Y: 0, W: 10, H: 10}, Point{X: 5, Y: 5}},
		{Rectangle{X: 3, Y: 4, W: 7, H: 9}, Point{X: 6, Y: 8}},
		{Rectangle{X: 10, Y: 10, W: 1, H: 1}, Point{X: 10, Y: 10}},
	}
	for _, tt := range tests {
		if got := tt.r.Center(); got != tt.want {
			t.Errorf("Center(%v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestRectangle_AspectRatio(t *testing.T) {
	r := Rectangle{W: 40, H: 100}
	if got := r.AspectRatio(); got != 0.4 {
		t.Errorf("AspectRatio = %v, want 0.4", got)
	}
	if got := (Rectangle{W: 4}).AspectRatio(); got != 0 {
		t.Errorf("AspectRatio with zero height = %v, want 0", got)
	}
}

func TestCenterDistanceSquared(t *testing.T) {
	a := Rectangle{X: 0, Y: 0, W: 10, H: 10}
	b := Rectangle{X: 3, Y: 4, W: 10, H: 10}
	if got := CenterDistanceSquared(a, b); got != 25 {
		t.Errorf("CenterDistanceSquared = %d, want 25", got)
	}
}
