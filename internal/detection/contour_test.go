package detection

import (
	"reflect"
	"testing"

	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
)

func pt(x, y int) geometry.Point { return geometry.Point{X: x, Y: y} }

// outlineMask draws a rectangle border of the given thickness.
func outlineMask(m *imaging.Mask, r geometry.Rectangle, thickness int) {
	m.FillRect(geometry.Rectangle{X: r.X, Y: r.Y, W: r.W, H: thickness})
	m.FillRect(geometry.Rectangle{X: r.X, Y: r.Bottom() - thickness, W: r.W, H: thickness})
	m.FillRect(geometry.Rectangle{X: r.X, Y: r.Y, W: thickness, H: r.H})
	m.FillRect(geometry.Rectangle{X: r.Right() - thickness, Y: r.Y, W: thickness, H: r.H})
}

func TestFindExternalContours_Empty(t *testing.T) {
	if got := FindExternalContours(imaging.NewMask(20, 20)); len(got) != 0 {
		t.Errorf("empty mask produced %d contours", len(got))
	}
	if got := FindExternalContours(nil); got != nil {
		t.Errorf("nil mask produced %v", got)
	}
}

func TestFindExternalContours_FilledRectangle(t *testing.T) {
	tests := []struct {
		name string
		rect geometry.Rectangle
		want Contour
	}{
		{"3x3 block", geometry.Rectangle{X: 2, Y: 2, W: 3, H: 3}, Contour{pt(2, 2), pt(2, 4), pt(4, 4), pt(4, 2)}},
		{"touching image corner", geometry.Rectangle{X: 0, Y: 0, W: 4, H: 2}, Contour{pt(0, 0), pt(0, 1), pt(3, 1), pt(3, 0)}},
		{"single pixel", geometry.Rectangle{X: 7, Y: 3, W: 1, H: 1}, Contour{pt(7, 3)}},
		{"horizontal run", geometry.Rectangle{X: 1, Y: 1, W: 4, H: 1}, Contour{pt(1, 1), pt(4, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := imaging.NewMask(10, 10)
			m.FillRect(tt.rect)
			got := FindExternalContours(m)
			if len(got) != 1 {
				t.Fatalf("got %d contours, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0], tt.want) {
				t.Errorf("contour = %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestFindExternalContours_ReverseDiscoveryOrder(t *testing.T) {
	m := imaging.NewMask(30, 30)
	m.FillRect(geometry.Rectangle{X: 20, Y: 2, W: 3, H: 3})  // discovered first
	m.FillRect(geometry.Rectangle{X: 2, Y: 10, W: 3, H: 3})  // second
	m.FillRect(geometry.Rectangle{X: 10, Y: 20, W: 3, H: 3}) // third

	got := FindExternalContours(m)
	if len(got) != 3 {
		t.Fatalf("got %d contours, want 3", len(got))
	}
	wantFirst := []geometry.Point{pt(10, 20), pt(2, 10), pt(20, 2)}
	for i, c := range got {
		if c[0] != wantFirst[i] {
			t.Errorf("contour %d starts at %v, want %v", i, c[0], wantFirst[i])
		}
	}
}

func TestFindExternalContours_SkipsNestedComponents(t *testing.T) {
	m := imaging.NewMask(40, 40)
	outlineMask(m, geometry.Rectangle{X: 5, Y: 5, W: 30, H: 30}, 2)
	m.FillRect(geometry.Rectangle{X: 15, Y: 15, W: 5, H: 5}) // inside the hole

	got := FindExternalContours(m)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want 1 (nested block must be skipped)", len(got))
	}
	want := Contour{pt(5, 5), pt(5, 34), pt(34, 34), pt(34, 5)}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("outer contour = %v, want %v", got[0], want)
	}
}

func TestFindExternalContours_ConcavityIsOutside(t *testing.T) {
	// A "C" shape open to the right with a block sitting in the opening.
	m := imaging.NewMask(40, 40)
	m.FillRect(geometry.Rectangle{X: 5, Y: 5, W: 20, H: 2})
	m.FillRect(geometry.Rectangle{X: 5, Y: 5, W: 2, H: 20})
	m.FillRect(geometry.Rectangle{X: 5, Y: 23, W: 20, H: 2})
	m.FillRect(geometry.Rectangle{X: 12, Y: 12, W: 4, H: 4})

	if got := FindExternalContours(m); len(got) != 2 {
		t.Errorf("got %d contours, want 2", len(got))
	}
}

func TestFindExternalContours_DiagonalConnectivity(t *testing.T) {
	m := imaging.NewMask(10, 10)
	m.Set(2, 2, true)
	m.Set(3, 3, true)
	m.Set(4, 4, true)

	got := FindExternalContours(m)
	if len(got) != 1 {
		t.Fatalf("diagonal pixels should form one component, got %d", len(got))
	}
	want := Contour{pt(2, 2), pt(4, 4)}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("contour = %v, want %v", got[0], want)
	}
}
