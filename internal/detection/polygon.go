package detection

import (
	"math"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Area returns the absolute enclosed area of the closed polygon c using the
// shoelace formula. Contours with fewer than three points have area 0.
func Area(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	sum := 0
	prev := c[n-1]
	for _, p := range c {
		sum += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	return math.Abs(float64(sum)) / 2
}

// ArcLength returns the perimeter of the closed polygon c.
func ArcLength(c Contour) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	total := 0.0
	prev := c[n-1]
	for _, p := range c {
		total += math.Hypot(float64(p.X-prev.X), float64(p.Y-prev.Y))
		prev = p
	}
	return total
}

// BoundingRect returns the smallest axis-aligned rectangle containing every
// point of c. Width and height count pixels, so a single point has W=H=1.
func BoundingRect(c Contour) geometry.Rectangle {
	if len(c) == 0 {
		return geometry.Rectangle{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return geometry.Rectangle{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
}

// span is a half-open run of contour indices [start, end] walked forward with
// wrap-around.
type span struct{ start, end int }

// ApproxPolygon simplifies the closed contour c with the Douglas-Peucker
// algorithm using tolerance epsilon (pixels).
//
// # Algorithm
//
//  1. Seed: starting at point 0, jump to the farthest point three times; the
//     last start and its farthest point split the curve into two chains
//  2. Split each chain at the point farthest from its chord until every
//     point is within epsilon of the chord
//  3. Clean up: drop vertices that lie within epsilon/sqrt(2) of the line
//     through their neighbours when that line is neither horizontal nor
//     vertical and the vertex does not reverse direction
//
// The vertex count of the result is what the slot filter inspects.
func ApproxPolygon(c Contour, epsilon float64) Contour {
	count := len(c)
	if count == 0 {
		return nil
	}

	eps := epsilon * epsilon
	dst := make(Contour, 0, count)
	var stack []span

	// 1. Approximate the two farthest points of the contour.
	pos := 0
	rightStart := 0
	leEps := false
	var startPt geometry.Point
	for iter := 0; iter < 3; iter++ {
		maxDist := 0.0
		pos = (pos + rightStart) % count
		startPt = c[pos]
		pos = (pos + 1) % count

		for j := 1; j < count; j++ {
			pt := c[pos]
			pos = (pos + 1) % count
			dx := float64(pt.X - startPt.X)
			dy := float64(pt.Y - startPt.Y)
			if dist := dx*dx + dy*dy; dist > maxDist {
				maxDist = dist
				rightStart = j
			}
		}
		leEps = maxDist <= eps
	}

	// 2. Seed the stack with both chains.
	if !leEps {
		first := pos % count
		far := (rightStart + first) % count
		stack = append(stack, span{start: far, end: first}, span{start: first, end: far})
	} else {
		dst = append(dst, startPt)
	}

	// 3. Recursive split.
	for len(stack) > 0 {
		sl := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		endPt := c[sl.end]
		pos = sl.start
		startPt = c[pos]
		pos = (pos + 1) % count

		var split int
		if pos != sl.end {
			dx := float64(endPt.X - startPt.X)
			dy := float64(endPt.Y - startPt.Y)
			maxDist := 0.0
			for pos != sl.end {
				pt := c[pos]
				pos = (pos + 1) % count
				dist := math.Abs(float64(pt.Y-startPt.Y)*dx - float64(pt.X-startPt.X)*dy)
				if dist > maxDist {
					maxDist = dist
					split = (pos + count - 1) % count
				}
			}
			leEps = maxDist*maxDist <= eps*(dx*dx+dy*dy)
		} else {
			leEps = true
		}

		if leEps {
			dst = append(dst, startPt)
		} else {
			stack = append(stack, span{start: split, end: sl.end}, span{start: sl.start, end: split})
		}
	}

	return cleanupCollinear(dst, eps)
}

// cleanupCollinear removes nearly collinear vertices from the closed polygon
// poly in place, where eps is the squared tolerance.
func cleanupCollinear(poly Contour, eps float64) Contour {
	count := len(poly)
	newCount := count
	if count == 0 {
		return poly
	}

	pos := count - 1
	read := func() geometry.Point {
		p := poly[pos]
		pos++
		if pos >= count {
			pos = 0
		}
		return p
	}

	startPt := read()
	wpos := pos
	pt := read()

	for i := 0; i < count && newCount > 2; i++ {
		endPt := read()

		dx := float64(endPt.X - startPt.X)
		dy := float64(endPt.Y - startPt.Y)
		dist := math.Abs(float64(pt.X-startPt.X)*dy - float64(pt.Y-startPt.Y)*dx)
		inner := float64(pt.X-startPt.X)*float64(endPt.X-pt.X) +
			float64(pt.Y-startPt.Y)*float64(endPt.Y-pt.Y)

		if dist*dist <= 0.5*eps*(dx*dx+dy*dy) && dx != 0 && dy != 0 && inner >= 0 {
			newCount--
			startPt = endPt
			poly[wpos] = endPt
			wpos++
			if wpos >= count {
				wpos = 0
			}
			pt = read()
			i++
			continue
		}

		startPt = pt
		poly[wpos] = pt
		wpos++
		if wpos >= count {
			wpos = 0
		}
		pt = endPt
	}

	return poly[:newCount]
}
