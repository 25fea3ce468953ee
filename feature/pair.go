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
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/modeverify/grid"
)

// BadInterest is the sentinel value marking a total interest or pair
// attribute that could not be computed.
const BadInterest = -9999.0

// PairFeature is the geometric/intensity relationship between one
// forecast single and one observed single.
//
// FcstIdx/ObsIdx are indices into the engine's parent SingleFeature
// slices rather than back-pointers, so the engine retains exclusive
// ownership of the feature arrays.
type PairFeature struct {
	PairNumber int
	FcstIdx    int
	ObsIdx     int

	// Bad is true when the centroid distance exceeded
	// max_centroid_dist; in that case only CentroidDist is populated
	// and every other field is its zero value.
	Bad bool

	CentroidDist   float64
	BoundaryDist   float64
	ConvexHullDist float64
	AngleDiff      float64
	AreaRatio      float64

	IntersectionArea     float64
	UnionArea            float64
	SymmetricDiff        float64
	IntersectionOverArea float64

	ComplexityRatio          float64
	PercentileIntensityRatio float64
}

// ComputePair builds the PairFeature between fcst and obs. If the
// Euclidean distance between their centroids exceeds maxCentroidDist,
// the pair is marked Bad and no further attributes are computed.
func ComputePair(pairNumber, fcstIdx, obsIdx int, fcst, obs *SingleFeature, maxCentroidDist float64) *PairFeature {
	p := &PairFeature{PairNumber: pairNumber, FcstIdx: fcstIdx, ObsIdx: obsIdx}

	p.CentroidDist = dist(fcst.Centroid, obs.Centroid)
	if p.CentroidDist > maxCentroidDist {
		p.Bad = true
		return p
	}

	p.BoundaryDist = minPointDist(fcst.Boundary, obs.Boundary)
	p.ConvexHullDist = minPointDist(hullVertices(fcst.Hull), hullVertices(obs.Hull))

	p.AngleDiff = foldAngle(fcst.AxisAngle - obs.AxisAngle)

	fa, oa := float64(fcst.Area), float64(obs.Area)
	p.AreaRatio = ratio(fa, oa)

	inter, union, xor := pixelOverlap(fcst.Mask, obs.Mask)
	p.IntersectionArea = inter
	p.UnionArea = union
	p.SymmetricDiff = xor
	minArea := math.Min(fa, oa)
	if minArea > 0 {
		p.IntersectionOverArea = inter / minArea
	}

	p.ComplexityRatio = ratio(fcst.Complexity, obs.Complexity)
	p.PercentileIntensityRatio = ratio(fcst.IntensityPercentiles.PUser, obs.IntensityPercentiles.PUser)

	return p
}

// ratio is min(a,b)/max(a,b), defined as 1 when both are zero.
func ratio(a, b float64) float64 {
	hi, lo := math.Max(a, b), math.Min(a, b)
	if hi == 0 {
		return 1
	}
	return lo / hi
}

func dist(a, b geom.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// minPointDist returns the minimum Euclidean distance over every pair
// (p in a, q in b). Empty inputs return BadInterest.
func minPointDist(a, b []geom.Point) float64 {
	if len(a) == 0 || len(b) == 0 {
		return BadInterest
	}
	best := math.Inf(1)
	for _, p := range a {
		for _, q := range b {
			if d := dist(p, q); d < best {
				best = d
			}
		}
	}
	return best
}

// hullVertices returns the vertex points of a closed convex-hull
// polyline, excluding the repeated closing point.
func hullVertices(hull geom.Polygon) []geom.Point {
	if len(hull) == 0 {
		return nil
	}
	ring := hull[0]
	if len(ring) < 2 {
		return ring
	}
	return ring[:len(ring)-1]
}

// pixelOverlap computes pixelwise AND/OR/XOR areas between two binary
// object masks of the same grid.
func pixelOverlap(a, b *grid.LabelGrid) (intersection, union, symDiff float64) {
	for y := 0; y < a.Ny; y++ {
		for x := 0; x < a.Nx; x++ {
			av := a.Get(x, y) != 0
			bv := b.Get(x, y) != 0
			switch {
			case av && bv:
				intersection++
				union++
			case av != bv:
				union++
				symDiff++
			}
		}
	}
	return intersection, union, symDiff
}

// foldAngle folds a raw axis-angle difference (input angles in
// (-90,90]) into [0,90].
func foldAngle(diff float64) float64 {
	if diff < 0 {
		diff = -diff
	}
	if diff > 90 {
		diff = 180 - diff
	}
	return diff
}
