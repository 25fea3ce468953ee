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

// Package feature computes SingleFeature and PairFeature, the
// per-object and per-(fcst,obs)-pair attribute records the matching
// engine ranks pairs with.
package feature

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/stat"

	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/mask"
)

// IntensityPercentiles holds the fixed set of intensity percentiles
// computed for every object, plus the caller-selected user percentile.
type IntensityPercentiles struct {
	P10, P25, P50, P75, P90 float64
	PUser                   float64
}

// SingleFeature is the attribute record for one connected-component
// object in one field.
type SingleFeature struct {
	ObjectNumber int // 1-based label
	Area         int
	AreaFilter   int
	AreaThresh   int

	Centroid   geom.Point
	Lat, Lon   float64 // populated by the engine via a Grid projector; 0 if unset

	AxisAngle   float64 // degrees, in (-90, 90]
	Length      float64
	Width       float64
	AspectRatio float64

	Curvature       float64
	CurvatureCenter geom.Point

	Complexity float64

	IntensityPercentiles IntensityPercentiles
	IntensitySum         float64

	Hull     geom.Polygon
	Boundary []geom.Point

	// Mask is the binary pixel footprint of this object, kept so
	// PairFeature can compute pixelwise intersection/union/symdiff
	// areas against another single's mask.
	Mask *grid.LabelGrid
}

// Empty reports whether the feature has no pixels. Callers must not
// match or cluster empty singles.
func (f *SingleFeature) Empty() bool {
	return f == nil || f.Area == 0
}

// Compute builds the SingleFeature for objectMask (a binary grid
// containing exactly one object), given the raw-filtered field, the
// conv-threshold binary mask, and the caller-selected user percentile.
func Compute(objectNumber int, rawFilter *grid.ValueGrid, thresholdMask, objectMask *grid.LabelGrid, pctUser int) *SingleFeature {
	f := &SingleFeature{ObjectNumber: objectNumber, Mask: objectMask}

	pts := mask.Pixels(objectMask)
	f.Area = len(pts)
	if f.Area == 0 {
		return f
	}

	var areaFilter, areaThresh int
	var samples []float64
	var sum float64
	for _, p := range pts {
		x, y := int(p.X), int(p.Y)
		v := rawFilter.Get(x, y)
		if v != grid.BadData {
			areaFilter++
			samples = append(samples, v)
			sum += v
		}
		if thresholdMask.Get(x, y) != 0 {
			areaThresh++
		}
	}
	f.AreaFilter = areaFilter
	f.AreaThresh = areaThresh
	f.IntensitySum = sum

	f.Centroid, f.AxisAngle, f.Length, f.Width, f.AspectRatio = mask.Moments(pts)
	f.Hull = mask.ConvexHull(pts)
	f.Complexity = mask.Complexity(float64(f.Area), f.Hull.Area())
	f.Boundary = mask.BoundaryPixels(objectMask)
	f.Curvature, f.CurvatureCenter = fitCircle(f.Boundary)
	f.IntensityPercentiles = computePercentiles(samples, pctUser)

	return f
}

func computePercentiles(samples []float64, pctUser int) IntensityPercentiles {
	if len(samples) == 0 {
		return IntensityPercentiles{grid.BadData, grid.BadData, grid.BadData, grid.BadData, grid.BadData, grid.BadData}
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)
	q := func(pct int) float64 {
		if len(s) == 1 {
			return s[0]
		}
		return stat.Quantile(float64(pct)/100.0, stat.LinInterp, s, nil)
	}
	return IntensityPercentiles{
		P10:   q(10),
		P25:   q(25),
		P50:   q(50),
		P75:   q(75),
		P90:   q(90),
		PUser: q(pctUser),
	}
}

// fitCircle fits the least-squares best circle to pts (the object's
// boundary polyline) via the Kasa algebraic fit, returning curvature
// (1/R) and the fitted center. Fewer than 3 points yields curvature 0.
func fitCircle(pts []geom.Point) (curvature float64, center geom.Point) {
	n := float64(len(pts))
	if n < 3 {
		return 0, geom.Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	xm, ym := sx/n, sy/n

	var suu, svv, suv, suuu, svvv, suvv, svuu float64
	for _, p := range pts {
		u, v := p.X-xm, p.Y-ym
		suu += u * u
		svv += v * v
		suv += u * v
		suuu += u * u * u
		svvv += v * v * v
		suvv += u * v * v
		svuu += v * u * u
	}
	rhs1 := 0.5 * (suuu + suvv)
	rhs2 := 0.5 * (svvv + svuu)
	det := suu*svv - suv*suv
	if det == 0 {
		return 0, geom.Point{}
	}
	uc := (rhs1*svv - rhs2*suv) / det
	vc := (suu*rhs2 - suv*rhs1) / det

	r2 := uc*uc + vc*vc + (suu+svv)/n
	if r2 <= 0 {
		return 0, geom.Point{X: xm + uc, Y: ym + vc}
	}
	r := math.Sqrt(r2)
	if r == 0 {
		return 0, geom.Point{X: xm + uc, Y: ym + vc}
	}
	return 1 / r, geom.Point{X: xm + uc, Y: ym + vc}
}
