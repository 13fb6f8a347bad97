package imaging

import (
	"testing"

	"github.com/ironsheep/parkscan/internal/geometry"
)

func maskWithRect(w, h int, r geometry.Rectangle) *Mask {
	m := NewMask(w, h)
	m.FillRect(r)
	return m
}

func TestErode(t *testing.T) {
	tests := []struct {
		name      string
		mask      *Mask
		wantCount int
	}{
		{"isolated pixel vanishes", maskWithRect(10, 10, geometry.Rectangle{X: 5, Y: 5, W: 1, H: 1}), 0},
		{"3x3 block shrinks to center", maskWithRect(10, 10, geometry.Rectangle{X: 3, Y: 3, W: 3, H: 3}), 1},
		{"5x4 block shrinks to 3x2", maskWithRect(10, 10, geometry.Rectangle{X: 2, Y: 2, W: 5, H: 4}), 6},
		{"full mask survives at borders", maskWithRect(6, 6, geometry.Rectangle{W: 6, H: 6}), 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Erode(tt.mask, 3, 3, 1)
			if got.Count() != tt.wantCount {
				t.Errorf("count = %d, want %d", got.Count(), tt.wantCount)
			}
		})
	}
}

func TestDilate(t *testing.T) {
	m := maskWithRect(10, 10, geometry.Rectangle{X: 5, Y: 5, W: 1, H: 1})

	got := Dilate(m, 3, 3, 1)
	if got.Count() != 9 {
		t.Errorf("single dilation count = %d, want 9", got.Count())
	}
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			if !got.At(x, y) {
				t.Errorf("pixel (%d,%d) should be set", x, y)
			}
		}
	}

	got = Dilate(m, 3, 3, 2)
	if got.Count() != 25 {
		t.Errorf("double dilation count = %d, want 25", got.Count())
	}
}

func TestDilate_AtBorderDoesNotWrap(t *testing.T) {
	m := maskWithRect(10, 10, geometry.Rectangle{X: 0, Y: 0, W: 1, H: 1})
	got := Dilate(m, 3, 3, 1)
	if got.Count() != 4 {
		t.Errorf("corner dilation count = %d, want 4", got.Count())
	}
	if got.At(9, 0) || got.At(0, 9) {
		t.Error("dilation wrapped around the border")
	}
}

func TestOpen(t *testing.T) {
	m := maskWithRect(20, 20, geometry.Rectangle{X: 5, Y: 5, W: 5, H: 5})
	m.Set(15, 15, true)
	m.Set(0, 19, true)

	got := Open(m, 3, 3, 1)

	if got.Count() != 25 {
		t.Errorf("count = %d, want 25 (speckle removed, block kept)", got.Count())
	}
	if got.At(15, 15) || got.At(0, 19) {
		t.Error("speckle pixels should be removed")
	}
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			if !got.At(x, y) {
				t.Fatalf("block pixel (%d,%d) lost", x, y)
			}
		}
	}
}

func TestMorphology_DoesNotMutateInput(t *testing.T) {
	m := maskWithRect(10, 10, geometry.Rectangle{X: 2, Y: 2, W: 4, H: 4})
	before := m.Clone()

	Erode(m, 3, 3, 2)
	Dilate(m, 7, 7, 2)
	Close(m, 3, 3, 1)

	for i := range m.Pix {
		if m.Pix[i] != before.Pix[i] {
			t.Fatal("input mask was mutated")
		}
	}
}

func TestMorphology_ZeroIterations(t *testing.T) {
	m := maskWithRect(10, 10, geometry.Rectangle{X: 5, Y: 5, W: 1, H: 1})
	if got := Dilate(m, 7, 7, 0); got.Count() != 1 {
		t.Errorf("zero iterations changed the mask: count %d", got.Count())
	}
}
