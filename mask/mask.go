/*
Copyright © 2019 the modeverify authors.
This file is part of modeverify.

modeverify is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

modeverify is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with modeverify.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package mask implements binary-mask operations: connected-component
// labeling of a binary field, area and intensity-percentile filtering
// of the resulting components, and the geometric helpers (moments,
// convex hull, complexity, bounding box, point-in-polygon) a
// SingleFeature needs.
//
// Convex hulls and point-in-polygon tests are built on
// github.com/ctessum/geom's Point/Polygon/Bounds types.
package mask

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/modeverify/grid"
)

// neighborOffsets are the four 4-connected neighbor directions.
var neighborOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Split performs 4-connectivity connected-component labeling of the
// binary mask (non-zero is foreground). Labels are assigned in
// row-major scan order starting at 1; it returns the label grid and
// the number of distinct objects found.
func Split(maskGrid *grid.LabelGrid) (*grid.LabelGrid, int) {
	out := grid.NewLabelGrid(maskGrid.Nx, maskGrid.Ny)
	nextLabel := 0
	var stack [][2]int
	for y := 0; y < maskGrid.Ny; y++ {
		for x := 0; x < maskGrid.Nx; x++ {
			if maskGrid.Get(x, y) == 0 || out.Get(x, y) != 0 {
				continue
			}
			nextLabel++
			out.Set(x, y, nextLabel)
			stack = append(stack[:0], [2]int{x, y})
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, off := range neighborOffsets {
					nx, ny := p[0]+off[0], p[1]+off[1]
					if !maskGrid.InBounds(nx, ny) {
						continue
					}
					if maskGrid.Get(nx, ny) == 0 || out.Get(nx, ny) != 0 {
						continue
					}
					out.Set(nx, ny, nextLabel)
					stack = append(stack, [2]int{nx, ny})
				}
			}
		}
	}
	return out, nextLabel
}

// Select returns a binary grid that is 1 where labels equals k, else 0.
func Select(labels *grid.LabelGrid, k int) *grid.LabelGrid {
	out := grid.NewLabelGrid(labels.Nx, labels.Ny)
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			if labels.Get(x, y) == k {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

// Area returns the pixel count of a binary (or label) grid's non-zero pixels.
func Area(m *grid.LabelGrid) int {
	n := 0
	for y := 0; y < m.Ny; y++ {
		for x := 0; x < m.Nx; x++ {
			if m.Get(x, y) != 0 {
				n++
			}
		}
	}
	return n
}

// Pixels returns the (x,y) coordinates of every non-zero pixel in m, in
// row-major order.
func Pixels(m *grid.LabelGrid) []geom.Point {
	var pts []geom.Point
	for y := 0; y < m.Ny; y++ {
		for x := 0; x < m.Nx; x++ {
			if m.Get(x, y) != 0 {
				pts = append(pts, geom.Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return pts
}

// ThresholdArea connected-component-labels binaryMask and clears (sets
// to 0) every component whose pixel count fails areaThresh. 4-connectivity
// is used; background stays 0.
func ThresholdArea(binaryMask *grid.LabelGrid, areaThresh grid.SingleThresh) *grid.LabelGrid {
	labels, n := Split(binaryMask)
	areas := make([]int, n+1)
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			areas[labels.Get(x, y)]++
		}
	}
	out := grid.NewLabelGrid(binaryMask.Nx, binaryMask.Ny)
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			l := labels.Get(x, y)
			if l == 0 {
				continue
			}
			if areaThresh.Check(float64(areas[l])) {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

// ThresholdIntensity connected-component-labels binaryMask; for each
// component it computes the pct-percentile (linear interpolation
// between sorted samples, rank = pct*(N-1)/100) of rawFilterGrid
// values inside the component, and clears the component if th fails
// against that percentile.
func ThresholdIntensity(binaryMask *grid.LabelGrid, rawFilterGrid *grid.ValueGrid, pct int, th grid.SingleThresh) *grid.LabelGrid {
	labels, n := Split(binaryMask)
	samples := make([][]float64, n+1)
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			l := labels.Get(x, y)
			if l == 0 {
				continue
			}
			v := rawFilterGrid.Get(x, y)
			if v == grid.BadData {
				continue
			}
			samples[l] = append(samples[l], v)
		}
	}
	keep := make([]bool, n+1)
	for l := 1; l <= n; l++ {
		p := Percentile(samples[l], pct)
		keep[l] = th.Check(p)
	}
	out := grid.NewLabelGrid(binaryMask.Nx, binaryMask.Ny)
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			l := labels.Get(x, y)
			if l != 0 && keep[l] {
				out.Set(x, y, 1)
			}
		}
	}
	return out
}

// Percentile returns the pct-percentile of samples (pct in [0,100])
// using linear interpolation between the sorted values at rank =
// pct*(N-1)/100. Returns grid.BadData for an empty sample set.
func Percentile(samples []float64, pct int) float64 {
	if len(samples) == 0 {
		return grid.BadData
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	rank := float64(pct) * float64(len(s)-1) / 100.0
	lo := int(rank)
	if lo >= len(s)-1 {
		return s[len(s)-1]
	}
	if lo < 0 {
		return s[0]
	}
	frac := rank - float64(lo)
	return s[lo] + frac*(s[lo+1]-s[lo])
}

// Moments computes the centroid, principal axis angle, length, width
// and aspect ratio of a set of pixel coordinates from its first and
// second image moments.
func Moments(pts []geom.Point) (centroid geom.Point, axisAngle, length, width, aspectRatio float64) {
	n := float64(len(pts))
	if n == 0 {
		return geom.Point{}, 0, 0, 0, 0
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	mx, my := sx/n, sy/n
	var m20, m02, m11 float64
	for _, p := range pts {
		dx, dy := p.X-mx, p.Y-my
		m20 += dx * dx
		m02 += dy * dy
		m11 += dx * dy
	}
	m20 /= n
	m02 /= n
	m11 /= n

	theta := 0.5 * math.Atan2(2*m11, m20-m02)
	// normalize to (-90, 90]
	halfPi := math.Pi / 2
	for theta <= -halfPi {
		theta += 2 * halfPi
	}
	for theta > halfPi {
		theta -= 2 * halfPi
	}
	axisAngle = theta * 180 / math.Pi

	// Eigenvalues of the 2x2 moment matrix [[m20,m11],[m11,m02]].
	trace := m20 + m02
	det := m20*m02 - m11*m11
	disc := trace*trace/4 - det
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)
	lambdaMax := trace/2 + sq
	lambdaMin := trace/2 - sq
	if lambdaMin < 0 {
		lambdaMin = 0
	}
	length = 2 * math.Sqrt(lambdaMax)
	width = 2 * math.Sqrt(lambdaMin)
	if length > 0 {
		aspectRatio = width / length
	}
	if aspectRatio > 1 {
		aspectRatio = 1
	}
	return geom.Point{X: mx, Y: my}, axisAngle, length, width, aspectRatio
}

// ConvexHull returns the convex hull of the pixels at pts as a closed
// polyline (first point repeated last), computed with the
// monotone-chain algorithm. Each pixel is treated as the unit square
// centred on its coordinates, so the hull runs through pixel corners
// and its area is never less than the pixel count. An empty point set
// yields an empty hull with zero area.
func ConvexHull(pts []geom.Point) geom.Polygon {
	corners := make([]geom.Point, 0, 4*len(pts))
	for _, p := range pts {
		for _, d := range [4][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}} {
			corners = append(corners, geom.Point{X: p.X + d[0], Y: p.Y + d[1]})
		}
	}
	uniq := dedupe(corners)
	if len(uniq) < 3 {
		ring := append([]geom.Point(nil), uniq...)
		if len(ring) > 0 {
			ring = append(ring, ring[0])
		}
		return geom.Polygon{ring}
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].X != uniq[j].X {
			return uniq[i].X < uniq[j].X
		}
		return uniq[i].Y < uniq[j].Y
	})

	cross := func(o, a, b geom.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	lower := make([]geom.Point, 0, len(uniq))
	for _, p := range uniq {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	upper := make([]geom.Point, 0, len(uniq))
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	hull = append(hull, hull[0])
	return geom.Polygon{hull}
}

func dedupe(pts []geom.Point) []geom.Point {
	seen := make(map[geom.Point]bool, len(pts))
	var out []geom.Point
	for _, p := range pts {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Complexity is 1 - area/hullArea, clamped to [0,1]. A zero-area hull
// (as for an empty object) yields complexity 0.
func Complexity(area, hullArea float64) float64 {
	if hullArea <= 0 {
		return 0
	}
	c := 1 - area/hullArea
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// BoundingBox returns the min/max coordinates of hull's vertices.
func BoundingBox(hull geom.Polygon) (xll, yll, xur, yur float64) {
	b := hull.Bounds()
	return b.Min.X, b.Min.Y, b.Max.X, b.Max.Y
}

// IsInside reports whether (x,y) lies inside hull, using an even-odd
// ray test where boundary points count as inside.
func IsInside(hull geom.Polygon, x, y float64) bool {
	status := geom.Point{X: x, Y: y}.Within(hull)
	return status == geom.Inside || status == geom.OnEdge
}

// BoundaryPixels returns the pixels of the binary object mask that
// have at least one of their 4 neighbors outside the object (or off
// the grid), i.e. the object's perimeter pixels.
func BoundaryPixels(objectMask *grid.LabelGrid) []geom.Point {
	var out []geom.Point
	for y := 0; y < objectMask.Ny; y++ {
		for x := 0; x < objectMask.Nx; x++ {
			if objectMask.Get(x, y) == 0 {
				continue
			}
			boundary := false
			for _, off := range neighborOffsets {
				nx, ny := x+off[0], y+off[1]
				if !objectMask.InBounds(nx, ny) || objectMask.Get(nx, ny) == 0 {
					boundary = true
					break
				}
			}
			if boundary {
				out = append(out, geom.Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return out
}
