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

package mask

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/modeverify/grid"
)

func square(nx, ny, x0, y0, w, h int) *grid.LabelGrid {
	g := grid.NewLabelGrid(nx, ny)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			g.Set(x, y, 1)
		}
	}
	return g
}

func TestSplitTwoComponents(t *testing.T) {
	g := grid.NewLabelGrid(10, 10)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			g.Set(x, y, 1)
		}
	}
	for y := 5; y < 8; y++ {
		for x := 5; x < 8; x++ {
			g.Set(x, y, 1)
		}
	}
	labels, n := Split(g)
	if n != 2 {
		t.Fatalf("expected 2 components, got %d", n)
	}
	if labels.Get(0, 0) != 1 {
		t.Errorf("expected first component scanned in row-major order to get label 1")
	}
	if labels.Get(5, 5) != 2 {
		t.Errorf("expected second component to get label 2, got %d", labels.Get(5, 5))
	}
}

func TestSplitLabelsContiguous(t *testing.T) {
	g := square(20, 20, 2, 2, 3, 3)
	labels, n := Split(g)
	seen := map[int]bool{}
	for y := 0; y < labels.Ny; y++ {
		for x := 0; x < labels.Nx; x++ {
			if l := labels.Get(x, y); l != 0 {
				seen[l] = true
			}
		}
	}
	if len(seen) != n {
		t.Fatalf("expected labels 1..%d present, saw %v", n, seen)
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Errorf("label %d missing from split output", i)
		}
	}
}

func TestSelectAreaMatchesLabelCount(t *testing.T) {
	g := square(20, 20, 2, 2, 4, 3) // area 12
	labels, _ := Split(g)
	sel := Select(labels, 1)
	if got := Area(sel); got != 12 {
		t.Errorf("expected area 12, got %d", got)
	}
}

func TestThresholdAreaRemovesSmallComponents(t *testing.T) {
	g := grid.NewLabelGrid(20, 20)
	// big component, area 20
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			g.Set(x, y, 1)
		}
	}
	// small component, area 3
	g.Set(15, 15, 1)
	g.Set(16, 15, 1)
	g.Set(15, 16, 1)

	out := ThresholdArea(g, grid.SingleThresh{Value: 10, Op: grid.Gt})
	if Area(out) != 20 {
		t.Errorf("expected only the 20-pixel component to survive, got area %d", Area(out))
	}
}

func TestPercentile(t *testing.T) {
	samples := []float64{10, 20, 30, 40, 50}
	if p := Percentile(samples, 50); p != 30 {
		t.Errorf("expected median 30, got %v", p)
	}
	if p := Percentile(samples, 0); p != 10 {
		t.Errorf("expected p0=10, got %v", p)
	}
	if p := Percentile(samples, 100); p != 50 {
		t.Errorf("expected p100=50, got %v", p)
	}
	if p := Percentile(nil, 50); p != grid.BadData {
		t.Errorf("expected bad data for empty sample set")
	}
}

func TestMomentsSquareIsUnbiased(t *testing.T) {
	var pts []geom.Point
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			pts = append(pts, geom.Point{X: float64(x), Y: float64(y)})
		}
	}
	centroid, _, _, _, aspect := Moments(pts)
	if centroid.X != 2 || centroid.Y != 2 {
		t.Errorf("expected centroid (2,2), got %v", centroid)
	}
	if aspect < 0.9 {
		t.Errorf("expected a square object to have aspect ratio near 1, got %v", aspect)
	}
}

func TestConvexHullAndComplexity(t *testing.T) {
	// An L-shape: full square minus one corner.
	g := square(10, 10, 0, 0, 4, 4)
	g.Set(3, 3, 0)
	pts := Pixels(g)
	hull := ConvexHull(pts)
	area := float64(len(pts))
	hullArea := hull.Area()
	if hullArea <= area {
		t.Errorf("expected hull area to exceed pixel area for a non-convex shape, hull=%v area=%v", hullArea, area)
	}
	c := Complexity(area, hullArea)
	if c <= 0 || c > 1 {
		t.Errorf("expected complexity in (0,1], got %v", c)
	}
}

func TestIsInside(t *testing.T) {
	hull := geom.Polygon{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}}
	if !IsInside(hull, 5, 5) {
		t.Errorf("expected (5,5) to be inside")
	}
	if !IsInside(hull, 0, 5) {
		t.Errorf("expected boundary point to count as inside")
	}
	if IsInside(hull, 20, 20) {
		t.Errorf("expected (20,20) to be outside")
	}
}

func TestBoundaryPixelsSingleSquare(t *testing.T) {
	g := square(10, 10, 2, 2, 4, 4) // 4x4 block, area 16
	b := BoundaryPixels(g)
	// a 4x4 block's boundary is the full perimeter: 4x4 - 2x2 interior = 12
	if len(b) != 12 {
		t.Errorf("expected 12 boundary pixels, got %d", len(b))
	}
}
