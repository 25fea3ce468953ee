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

// Package fuzzy computes the weighted aggregation of per-attribute
// interest and confidence curves into a single "total interest" score
// used to rank and accept forecast/observation pairs.
package fuzzy

import (
	"math"

	"github.com/spatialmodel/modeverify/feature"
	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/modeerr"
)

// Weights holds the non-negative weight given to each attribute's
// interest/confidence term.
type Weights struct {
	CentroidDist         float64
	BoundaryDist         float64
	ConvexHullDist       float64
	AngleDiff            float64
	AreaRatio            float64
	IntersectionOverArea float64
	ComplexityRatio      float64
	IntensityRatio       float64
}

// Curves holds the piecewise-linear interest curves for each
// attribute, the complexity-ratio backup curve used when either
// single's complexity is exactly zero, and the two confidence curves.
type Curves struct {
	CentroidDistIf         *grid.PiecewiseLinear
	BoundaryDistIf         *grid.PiecewiseLinear
	ConvexHullDistIf       *grid.PiecewiseLinear
	AngleDiffIf            *grid.PiecewiseLinear
	AreaRatioIf            *grid.PiecewiseLinear
	IntersectionOverAreaIf *grid.PiecewiseLinear
	ComplexityRatioIf      *grid.PiecewiseLinear
	RatioIf                *grid.PiecewiseLinear // backup for complexity_ratio
	IntensityRatioIf       *grid.PiecewiseLinear

	AreaRatioConf   *grid.PiecewiseLinear
	AspectRatioConf *grid.PiecewiseLinear
}

// Config bundles the weights and curves a single FuzzyInterest
// evaluation needs.
type Config struct {
	Weights Weights
	Curves  Curves
}

// Validate checks that every interest curve has at least two knots
// and every weight is non-negative.
func (c Config) Validate() error {
	curves := []*grid.PiecewiseLinear{
		c.Curves.CentroidDistIf, c.Curves.BoundaryDistIf, c.Curves.ConvexHullDistIf,
		c.Curves.AngleDiffIf, c.Curves.AreaRatioIf, c.Curves.IntersectionOverAreaIf,
		c.Curves.ComplexityRatioIf, c.Curves.RatioIf, c.Curves.IntensityRatioIf,
	}
	for _, cv := range curves {
		if !cv.Valid() {
			return modeerr.ErrConfigOutOfRange
		}
	}
	w := c.Weights
	for _, v := range []float64{w.CentroidDist, w.BoundaryDist, w.ConvexHullDist, w.AngleDiff,
		w.AreaRatio, w.IntersectionOverArea, w.ComplexityRatio, w.IntensityRatio} {
		if v < 0 {
			return modeerr.ErrConfigOutOfRange
		}
	}
	return nil
}

type term struct {
	weight, interest, confidence float64
}

// TotalInterest computes the scalar total interest for pair, given the
// fcst and obs singles it relates and the configured weights/curves.
// Returns feature.BadInterest if pair.Bad or if the confidence-weighted
// denominator is zero.
func TotalInterest(pair *feature.PairFeature, fcst, obs *feature.SingleFeature, cfg Config) float64 {
	if pair.Bad {
		return feature.BadInterest
	}
	c := cfg.Curves
	w := cfg.Weights

	areaRatioConf := c.AreaRatioConf.Eval(pair.AreaRatio)
	angleConf := math.Sqrt(c.AspectRatioConf.Eval(obs.AspectRatio) * c.AspectRatioConf.Eval(fcst.AspectRatio))

	complexityCurve := c.ComplexityRatioIf
	if fcst.Complexity == 0 || obs.Complexity == 0 {
		complexityCurve = c.RatioIf
	}

	terms := []term{
		{w.CentroidDist, c.CentroidDistIf.Eval(pair.CentroidDist), areaRatioConf},
		{w.BoundaryDist, c.BoundaryDistIf.Eval(pair.BoundaryDist), 1.0},
		{w.ConvexHullDist, c.ConvexHullDistIf.Eval(pair.ConvexHullDist), 1.0},
		{w.AngleDiff, c.AngleDiffIf.Eval(pair.AngleDiff), angleConf},
		{w.AreaRatio, c.AreaRatioIf.Eval(pair.AreaRatio), 1.0},
		{w.IntersectionOverArea, c.IntersectionOverAreaIf.Eval(pair.IntersectionOverArea), 1.0},
		{w.ComplexityRatio, complexityCurve.Eval(pair.ComplexityRatio), 1.0},
		{w.IntensityRatio, c.IntensityRatioIf.Eval(pair.PercentileIntensityRatio), 1.0},
	}

	var num, den float64
	for _, t := range terms {
		num += t.weight * t.interest * t.confidence
		den += t.weight * t.confidence
	}
	if den == 0 {
		return feature.BadInterest
	}
	return num / den
}
