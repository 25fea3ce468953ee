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

// Package config defines the read-only configuration surface the
// engine package consumes, and a github.com/lnashier/viper-backed
// Source that reads it from a file or environment variables.
package config

import (
	"github.com/spatialmodel/modeverify/fuzzy"
	"github.com/spatialmodel/modeverify/grid"
)

// MergeFlag controls whether and how objects on one side are
// pre-merged before matching.
type MergeFlag int

// The four merge flag values named in the configuration surface.
const (
	MergeOff MergeFlag = iota
	MergeThreshOnly
	MergeEngineOnly
	MergeBoth
)

func (f MergeFlag) String() string {
	switch f {
	case MergeOff:
		return "OFF"
	case MergeThreshOnly:
		return "THRESH_ONLY"
	case MergeEngineOnly:
		return "ENGINE_ONLY"
	case MergeBoth:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether f is one of the four defined merge flags.
func (f MergeFlag) Valid() bool { return f >= MergeOff && f <= MergeBoth }

// MatchFlag controls how matched pairs are merged into clusters.
type MatchFlag int

// The four match flag values named in the configuration surface.
const (
	MatchNone MatchFlag = iota
	MatchMerge
	MatchFcstMerge
	MatchOnly
)

func (f MatchFlag) String() string {
	switch f {
	case MatchNone:
		return "NONE"
	case MatchMerge:
		return "MATCH_MERGE"
	case MatchFcstMerge:
		return "MATCH_FCST_MERGE"
	case MatchOnly:
		return "MATCH_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether f is one of the four defined match flags.
func (f MatchFlag) Valid() bool { return f >= MatchNone && f <= MatchOnly }

// Side selects which of the two input fields a per-side setting
// applies to.
type Side int

// The two sides a configuration setting can be requested for.
const (
	Fcst Side = iota
	Obs
)

// Source is the read-only configuration contract the engine consumes.
// Getters return values without an error; range checks are separate
// (Cfg.Validate reports modeerr.ErrConfigOutOfRange, and the engine
// validates the fuzzy configuration at the start of DoMatching).
// engine.New itself performs no validation.
type Source interface {
	RawThresh(side Side) grid.SingleThresh
	ConvThresh(side Side) grid.SingleThresh
	AreaThresh(side Side) grid.SingleThresh
	IntenPerc(side Side) int
	IntenPercThresh(side Side) grid.SingleThresh
	MergeThresh(side Side) grid.SingleThresh
	ConvRadius(side Side) int
	MergeFlag(side Side) MergeFlag

	ZeroBorderSize() int
	BadDataThresh() float64
	IntensityPercentile() int
	MaxCentroidDist() float64
	TotalInterestThresh() float64
	PrintInterestThresh() float64
	MatchFlag() MatchFlag

	FuzzyConfig() fuzzy.Config

	ModeColorTable() string
}
