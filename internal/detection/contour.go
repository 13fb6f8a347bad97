package detection

import (
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
)

// Contour is a closed border as a sequence of pixel coordinates. Only the
// points where the border changes direction are kept.
type Contour []geometry.Point

// chainDeltas maps a Freeman chain code to its (dx, dy) step. Code 0 points
// right and codes advance counter-clockwise in image coordinates.
var chainDeltas = [8]geometry.Point{
	{X: 1, Y: 0}, {X: 1, Y: -1}, {X: 0, Y: -1}, {X: -1, Y: -1},
	{X: -1, Y: 0}, {X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// FindExternalContours returns the outer border of every 8-connected
// foreground component of m that is not enclosed by another component.
//
// # Algorithm
//
//  1. The mask is padded with one background pixel on every side
//  2. The background reachable from the padding (4-connected) is marked as
//     the outside region
//  3. Components are discovered in raster order; a component is external
//     when the pixel left of its first raster pixel belongs to the outside
//  4. Each external border is followed with the Suzuki-Abe rule starting at
//     that pixel, and only direction-change points are recorded
//
// The returned slice lists components in reverse discovery order, so the
// component found last by the raster scan comes first. That position is the
// contour's discovery index used for tie-breaking downstream.
//
// A single-pixel component yields a one-point contour.
func FindExternalContours(m *imaging.Mask) []Contour {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil
	}

	stride := m.Width + 2
	rows := m.Height + 2
	grid := make([]uint8, stride*rows)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				grid[(y+1)*stride+x+1] = 1
			}
		}
	}

	outside := markOutside(grid, stride, rows)
	labeled := make([]bool, len(grid))

	var found []Contour
	for y := 1; y <= m.Height; y++ {
		for x := 1; x <= m.Width; x++ {
			i := y*stride + x
			if grid[i] == 0 || labeled[i] {
				continue
			}
			labelComponent(grid, labeled, stride, i)
			if !outside[i-1] {
				continue
			}
			found = append(found, traceBorder(grid, stride, i, geometry.Point{X: x - 1, Y: y - 1}))
		}
	}

	for l, r := 0, len(found)-1; l < r; l, r = l+1, r-1 {
		found[l], found[r] = found[r], found[l]
	}
	return found
}

// markOutside flood-fills the 4-connected background reachable from the
// padded corner.
func markOutside(grid []uint8, stride, rows int) []bool {
	outside := make([]bool, len(grid))
	stack := []int{0}
	outside[0] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := i%stride, i/stride
		neighbors := [4]struct {
			ok bool
			j  int
		}{
			{x > 0, i - 1},
			{x < stride-1, i + 1},
			{y > 0, i - stride},
			{y < rows-1, i + stride},
		}
		for _, n := range neighbors {
			if n.ok && !outside[n.j] && grid[n.j] == 0 {
				outside[n.j] = true
				stack = append(stack, n.j)
			}
		}
	}
	return outside
}

// labelComponent marks every pixel 8-connected to start. The padding keeps
// neighbor offsets in range.
func labelComponent(grid []uint8, labeled []bool, stride, start int) {
	offsets := [8]int{-stride - 1, -stride, -stride + 1, -1, 1, stride - 1, stride, stride + 1}
	stack := []int{start}
	labeled[start] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range offsets {
			j := i + d
			if grid[j] != 0 && !labeled[j] {
				labeled[j] = true
				stack = append(stack, j)
			}
		}
	}
}

// traceBorder follows the outer border starting at index i0, whose left
// neighbor is background, and returns the compressed point list.
func traceBorder(grid []uint8, stride, i0 int, origin geometry.Point) Contour {
	var deltas [16]int
	base := [8]int{1, -stride + 1, -stride, -stride - 1, -1, stride - 1, stride, stride + 1}
	for k := range deltas {
		deltas[k] = base[k&7]
	}

	// Search clockwise from the left neighbor for the first foreground pixel.
	s, sEnd := 4, 4
	var i1 int
	for {
		s = (s - 1) & 7
		i1 = i0 + deltas[s]
		if grid[i1] != 0 || s == sEnd {
			break
		}
	}
	if s == sEnd {
		return Contour{origin}
	}

	var pts Contour
	pt := origin
	i3 := i0
	prevS := s ^ 4

	for {
		// Search counter-clockwise from the direction after the one we
		// arrived from.
		var i4 int
		for s < len(deltas)-1 {
			s++
			i4 = i3 + deltas[s]
			if grid[i4] != 0 {
				break
			}
		}
		s &= 7

		if s != prevS {
			pts = append(pts, pt)
			prevS = s
		}
		pt.X += chainDeltas[s].X
		pt.Y += chainDeltas[s].Y

		if i4 == i0 && i3 == i1 {
			break
		}
		i3 = i4
		s = (s + 4) & 7
	}
	return pts
}
