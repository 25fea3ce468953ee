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

// Package engine implements the top-level verification orchestrator:
// the per-side derivation chain from raw field to split objects, and
// the cross-side matching/merging/clustering logic. Logging goes
// through an injectable logrus.FieldLogger rather than a
// package-global logger, so multiple Engines (including the
// sub-engines fuzzy-engine merging spawns) can log independently.
package engine

import (
	"fmt"
	"image/color"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/modeverify/clusterset"
	"github.com/spatialmodel/modeverify/config"
	"github.com/spatialmodel/modeverify/convolve"
	"github.com/spatialmodel/modeverify/feature"
	"github.com/spatialmodel/modeverify/fuzzy"
	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/mask"
	"github.com/spatialmodel/modeverify/modeerr"
)

// sideState holds one side's (fcst or obs) derivation chain: the
// cached grid at each stage and the Stage marking how far that cache
// has been rebuilt.
type sideState struct {
	side  config.Side
	stage Stage

	raw    *grid.ValueGrid
	filter *grid.ValueGrid
	thresh *grid.LabelGrid // binary: filter satisfies conv_thresh
	conv   *grid.ValueGrid
	mask   *grid.LabelGrid
	split  *grid.LabelGrid

	n       int
	singles []*feature.SingleFeature
}

// Engine is the top-level verification-run orchestrator.
// One Engine instance drives a single fcst/obs comparison; fuzzy-
// engine merging spawns short-lived sub-engines (see merge.go) that
// share the parent's configuration but own their own state.
type Engine struct {
	Log logrus.FieldLogger

	cfg        config.Source
	maxSingles int
	zeroBorder int
	convolver  convolve.Convolver
	projector  *grid.Projector

	fcst, obs sideState

	matchStage Stage

	pairs   []*feature.PairFeature // size n_fcst*n_obs, pairIndex-addressed
	sets    clusterset.SetCollection
	nClus   int

	fcstClusterSplit *grid.LabelGrid
	obsClusterSplit  *grid.LabelGrid
	clusterFcst      []*feature.SingleFeature
	clusterObs       []*feature.SingleFeature
	clusterPairs     []*feature.PairFeature

	fcstColor []color.RGBA
	obsColor  []color.RGBA
	palette   []color.RGBA
}

// New constructs an Engine reading thresholds, weights and curves
// from cfg. maxSingles is the cap on object count per side; a run
// fails with modeerr.ErrObjectCountExceeded when a side's object
// count reaches it.
func New(cfg config.Source, maxSingles int) *Engine {
	return &Engine{
		cfg:        cfg,
		maxSingles: maxSingles,
		zeroBorder: cfg.ZeroBorderSize(),
		convolver:  convolve.Convolver{BadDataFrac: cfg.BadDataThresh()},
		fcst:       sideState{side: config.Fcst},
		obs:        sideState{side: config.Obs},
	}
}

// SetPalette installs the ordered colour list used to paint cluster
// ids. A non-empty palette must hold at least n_clus colours (with
// match_flag NONE, at least n_fcst+n_obs) when DoMatching assigns
// colours; otherwise the run fails with modeerr.ErrInsufficientColors.
// With no palette installed at all, every object keeps the zero colour.
func (e *Engine) SetPalette(palette []color.RGBA) { e.palette = palette }

// SetProjector installs the x,y ↔ lat,lon mapping, so that every
// SingleFeature's Lat/Lon fields are populated from its centroid once
// this is set. Optional: a nil projector (the default) leaves Lat/Lon
// at their zero value.
func (e *Engine) SetProjector(p *grid.Projector) { e.projector = p }

// projectSingles fills in Lat/Lon for every feature in singles from
// its centroid, logging and leaving the zero value on a projection
// failure rather than aborting the run.
func (e *Engine) projectSingles(side config.Side, singles []*feature.SingleFeature) {
	if e.projector == nil {
		return
	}
	for _, s := range singles {
		lat, lon, err := e.projector.ToLatLon(s.Centroid.X, s.Centroid.Y)
		if err != nil {
			e.logProjectionFailure(side, s.ObjectNumber, err)
			continue
		}
		s.Lat, s.Lon = lat, lon
	}
}

func (e *Engine) logProjectionFailure(side config.Side, objectNumber int, err error) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{"side": sideName(side), "object": objectNumber, "error": err}).Warn("projecting centroid to lat/lon failed")
}

// Set seeds both chains from raw grids and runs each side through the
// SPLIT stage, discarding any matching state from a previous run.
func (e *Engine) Set(fcstRaw, obsRaw *grid.ValueGrid) error {
	e.fcst.raw = fcstRaw.Clone()
	e.obs.raw = obsRaw.Clone()
	e.fcst.raw.ZeroBorder(e.zeroBorder, grid.BadData)
	e.obs.raw.ZeroBorder(e.zeroBorder, grid.BadData)
	rewind(&e.fcst.stage, StageNew)
	rewind(&e.obs.stage, StageNew)
	rewind(&e.matchStage, StageNew)

	e.pairs = nil
	e.sets = clusterset.SetCollection{}
	e.nClus = 0
	e.fcstClusterSplit = nil
	e.obsClusterSplit = nil
	e.clusterFcst = nil
	e.clusterObs = nil
	e.clusterPairs = nil
	e.fcstColor = nil
	e.obsColor = nil

	if err := e.advanceToSplit(&e.fcst); err != nil {
		return err
	}
	if err := e.advanceToSplit(&e.obs); err != nil {
		return err
	}
	return nil
}

// advanceToSplit runs s's derivation chain up through StageSplit,
// skipping any stage already computed.
func (e *Engine) advanceToSplit(s *sideState) error {
	if s.stage < StageFiltered {
		e.doFilter(s)
	}
	if s.stage < StageConvolved {
		e.doConvolution(s)
	}
	if s.stage < StageMasked {
		e.doThresholding(s)
	}
	if s.stage < StageSplit {
		if err := e.doSplitting(s); err != nil {
			return err
		}
	}
	return nil
}

// doFilter applies the raw threshold to a copy of the raw field and
// derives the conv-threshold binary of the filtered field.
func (e *Engine) doFilter(s *sideState) {
	rawThresh := e.cfg.RawThresh(s.side)
	convThresh := e.cfg.ConvThresh(s.side)

	s.filter = s.raw.Filter(rawThresh)
	s.thresh = s.filter.ThresholdDouble(convThresh)
	s.stage = StageFiltered
	e.logStage(s.side, "do_filter")
}

// doConvolution smooths the filtered field with the circular mean
// filter and border-zeroes the result.
func (e *Engine) doConvolution(s *sideState) {
	radius := e.cfg.ConvRadius(s.side)
	s.conv = e.convolver.Smooth(s.filter, radius)
	s.conv.ZeroBorder(e.zeroBorder, grid.BadData)
	s.stage = StageConvolved
	e.logStage(s.side, "do_convolution")
}

// doThresholding derives the object mask: conv-threshold the
// convolved field, drop components failing the area test, then drop
// components whose intensity percentile (taken from the raw-filtered
// field, not the convolved one) fails its test.
func (e *Engine) doThresholding(s *sideState) {
	convThresh := e.cfg.ConvThresh(s.side)
	areaThresh := e.cfg.AreaThresh(s.side)
	intenPerc := e.cfg.IntenPerc(s.side)
	intenPercThresh := e.cfg.IntenPercThresh(s.side)

	m := s.conv.ThresholdDouble(convThresh)
	m = mask.ThresholdArea(m, areaThresh)
	m = mask.ThresholdIntensity(m, s.filter, intenPerc, intenPercThresh)
	s.mask = m
	s.stage = StageMasked
	e.logStage(s.side, "do_thresholding")
}

// doSplitting labels the mask's connected components and computes the
// SingleFeature array, which matching needs immediately afterwards.
func (e *Engine) doSplitting(s *sideState) error {
	split, n := mask.Split(s.mask)
	if n >= e.maxSingles {
		return fmt.Errorf("%w: %s side found %d objects, max %d", modeerr.ErrObjectCountExceeded, sideName(s.side), n, e.maxSingles)
	}
	s.split = split
	s.n = n

	pctUser := e.cfg.IntensityPercentile()
	singles := make([]*feature.SingleFeature, n)
	for k := 1; k <= n; k++ {
		obj := mask.Select(split, k)
		singles[k-1] = feature.Compute(k, s.filter, s.thresh, obj, pctUser)
	}
	e.projectSingles(s.side, singles)
	s.singles = singles
	s.stage = StageSplit
	e.logStage(s.side, "do_splitting")
	return nil
}

func sideName(side config.Side) string {
	if side == config.Fcst {
		return "fcst"
	}
	return "obs"
}

func (e *Engine) logStage(side config.Side, stage string) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{"side": sideName(side), "stage": stage}).Debug("engine stage complete")
}

// pairIndex packs a (fcstIdx, obsIdx) 0-based pair into its linear
// array offset: obsIdx*nFcst + fcstIdx.
func (e *Engine) pairIndex(fcstIdx, obsIdx int) int {
	return obsIdx*len(e.fcst.singles) + fcstIdx
}

// NFcst returns the number of forecast objects found by Set.
func (e *Engine) NFcst() int { return e.fcst.n }

// NObs returns the number of observation objects found by Set.
func (e *Engine) NObs() int { return e.obs.n }

// NClus returns the number of clusters found by DoMatching.
func (e *Engine) NClus() int { return e.nClus }

// FcstSingle returns the 1-based fcst object's feature.
func (e *Engine) FcstSingle(k int) *feature.SingleFeature { return e.fcst.singles[k-1] }

// ObsSingle returns the 1-based obs object's feature.
func (e *Engine) ObsSingle(k int) *feature.SingleFeature { return e.obs.singles[k-1] }

// Pair returns the PairFeature for the given 1-based (fcstIdx,obsIdx),
// or nil if matching has not run yet.
func (e *Engine) Pair(fcstIdx, obsIdx int) *feature.PairFeature {
	if e.pairs == nil {
		return nil
	}
	return e.pairs[e.pairIndex(fcstIdx-1, obsIdx-1)]
}

// TotalInterest returns the fuzzy total interest for the given
// 1-based (fcstIdx,obsIdx) pair, or feature.BadInterest if matching
// has not run yet.
func (e *Engine) TotalInterest(fcstIdx, obsIdx int) float64 {
	p := e.Pair(fcstIdx, obsIdx)
	if p == nil {
		return feature.BadInterest
	}
	return fuzzy.TotalInterest(p, e.FcstSingle(fcstIdx), e.ObsSingle(obsIdx), e.cfg.FuzzyConfig())
}

// The per-side intermediate grids exposed for downstream rendering:
// raw, filter, conv, mask and split, in derivation order.

// FcstRaw returns the border-zeroed raw forecast field.
func (e *Engine) FcstRaw() *grid.ValueGrid { return e.fcst.raw }

// FcstFilter returns the raw-threshold-filtered forecast field.
func (e *Engine) FcstFilter() *grid.ValueGrid { return e.fcst.filter }

// FcstConv returns the convolved forecast field.
func (e *Engine) FcstConv() *grid.ValueGrid { return e.fcst.conv }

// FcstMask returns the thresholded forecast object mask.
func (e *Engine) FcstMask() *grid.LabelGrid { return e.fcst.mask }

// FcstSplit returns the labeled forecast object grid.
func (e *Engine) FcstSplit() *grid.LabelGrid { return e.fcst.split }

// ObsRaw returns the border-zeroed raw observation field.
func (e *Engine) ObsRaw() *grid.ValueGrid { return e.obs.raw }

// ObsFilter returns the raw-threshold-filtered observation field.
func (e *Engine) ObsFilter() *grid.ValueGrid { return e.obs.filter }

// ObsConv returns the convolved observation field.
func (e *Engine) ObsConv() *grid.ValueGrid { return e.obs.conv }

// ObsMask returns the thresholded observation object mask.
func (e *Engine) ObsMask() *grid.LabelGrid { return e.obs.mask }

// ObsSplit returns the labeled observation object grid.
func (e *Engine) ObsSplit() *grid.LabelGrid { return e.obs.split }

// FcstClusterSplit returns the per-pixel cluster label grid for the
// fcst side, populated by DoMatching.
func (e *Engine) FcstClusterSplit() *grid.LabelGrid { return e.fcstClusterSplit }

// ObsClusterSplit returns the per-pixel cluster label grid for the
// obs side, populated by DoMatching.
func (e *Engine) ObsClusterSplit() *grid.LabelGrid { return e.obsClusterSplit }

// ClusterPair returns the cluster-level PairFeature for the given
// 0-based set index.
func (e *Engine) ClusterPair(s int) *feature.PairFeature { return e.clusterPairs[s] }

// ClusterFcst returns the fcst-side cluster-shape SingleFeature for
// the given 0-based set index.
func (e *Engine) ClusterFcst(s int) *feature.SingleFeature { return e.clusterFcst[s] }

// ClusterObs returns the obs-side cluster-shape SingleFeature for the
// given 0-based set index.
func (e *Engine) ClusterObs(s int) *feature.SingleFeature { return e.clusterObs[s] }

// ClusterSet returns the s'th object set (0-based), exposing which
// fcst and obs objects each cluster holds.
func (e *Engine) ClusterSet(s int) *clusterset.ObjectSet { return e.sets.Sets[s] }

// MatchedFcst reports whether fcst object k (1-based) belongs to a
// set with at least one obs member.
func (e *Engine) MatchedFcst(k int) bool {
	s := e.sets.FcstSetNumber(k)
	return s != -1 && !e.sets.Sets[s].Empty() && len(e.sets.Sets[s].ObsIDs) > 0
}

// UnmatchedFcst is the complement of MatchedFcst.
func (e *Engine) UnmatchedFcst(k int) bool { return !e.MatchedFcst(k) }

// MatchedObs reports whether obs object k (1-based) belongs to a set
// with at least one fcst member.
func (e *Engine) MatchedObs(k int) bool {
	s := e.sets.ObsSetNumber(k)
	return s != -1 && !e.sets.Sets[s].Empty() && len(e.sets.Sets[s].FcstIDs) > 0
}

// UnmatchedObs is the complement of MatchedObs.
func (e *Engine) UnmatchedObs(k int) bool { return !e.MatchedObs(k) }

// FcstColor returns the assigned colour for fcst object k (1-based),
// or the zero color.RGBA if no colours have been assigned.
func (e *Engine) FcstColor(k int) color.RGBA {
	if k-1 < 0 || k-1 >= len(e.fcstColor) {
		return color.RGBA{}
	}
	return e.fcstColor[k-1]
}

// ObsColor returns the assigned colour for obs object k (1-based).
func (e *Engine) ObsColor(k int) color.RGBA {
	if k-1 < 0 || k-1 >= len(e.obsColor) {
		return color.RGBA{}
	}
	return e.obsColor[k-1]
}
