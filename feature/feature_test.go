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

package feature

import (
	"testing"

	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/mask"
)

func diskMask(nx, ny int, cx, cy, r float64) *grid.LabelGrid {
	g := grid.NewLabelGrid(nx, ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				g.Set(x, y, 1)
			}
		}
	}
	return g
}

func TestComputeSingleFeatureDisk(t *testing.T) {
	raw := grid.NewValueGrid(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			raw.Set(x, y, 1)
		}
	}
	obj := diskMask(100, 100, 30, 50, 10)
	sf := Compute(1, raw, obj, obj, 50)
	if sf.Empty() {
		t.Fatal("expected non-empty feature")
	}
	if sf.Area != mask.Area(obj) {
		t.Errorf("area mismatch: feature=%d mask=%d", sf.Area, mask.Area(obj))
	}
	if sf.Centroid.X < 29 || sf.Centroid.X > 31 {
		t.Errorf("expected centroid x near 30, got %v", sf.Centroid.X)
	}
	if sf.IntensitySum != float64(sf.AreaFilter) {
		t.Errorf("expected intensity sum == area filter for a unit-valued field")
	}
}

func TestComputeSingleFeatureEmpty(t *testing.T) {
	raw := grid.NewValueGrid(10, 10)
	obj := grid.NewLabelGrid(10, 10)
	sf := Compute(1, raw, obj, obj, 50)
	if !sf.Empty() {
		t.Fatal("expected empty feature for an all-zero mask")
	}
}

func TestPairFeatureCentroidVeto(t *testing.T) {
	raw := grid.NewValueGrid(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			raw.Set(x, y, 1)
		}
	}
	f1 := diskMask(100, 100, 10, 10, 5)
	f2 := diskMask(100, 100, 90, 90, 5)
	sf1 := Compute(1, raw, f1, f1, 50)
	sf2 := Compute(1, raw, f2, f2, 50)

	pf := ComputePair(0, 0, 0, sf1, sf2, 50)
	if !pf.Bad {
		t.Fatalf("expected pair to be marked bad when centroid distance (%v) exceeds max (50)", pf.CentroidDist)
	}
}

func TestPairFeaturePerfectOverlapMatches(t *testing.T) {
	raw := grid.NewValueGrid(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			raw.Set(x, y, 1)
		}
	}
	f1 := diskMask(100, 100, 30, 50, 10)
	f2 := diskMask(100, 100, 30, 50, 10)
	sf1 := Compute(1, raw, f1, f1, 50)
	sf2 := Compute(1, raw, f2, f2, 50)

	pf := ComputePair(0, 0, 0, sf1, sf2, 500)
	if pf.Bad {
		t.Fatal("identical objects should not be vetoed")
	}
	if pf.AreaRatio != 1 {
		t.Errorf("expected area ratio 1.0 for identical objects, got %v", pf.AreaRatio)
	}
	if pf.CentroidDist != 0 {
		t.Errorf("expected zero centroid distance, got %v", pf.CentroidDist)
	}
	if pf.IntersectionOverArea != 1 {
		t.Errorf("expected intersection_over_area 1.0, got %v", pf.IntersectionOverArea)
	}
}
