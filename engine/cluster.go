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

package engine

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/modeverify/config"
	"github.com/spatialmodel/modeverify/feature"
	"github.com/spatialmodel/modeverify/fuzzy"
	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/mask"
	"github.com/spatialmodel/modeverify/modeerr"
)

// DoMatching runs the full post-Set pipeline: per-side pre-merge,
// pairwise fuzzy scoring, set assembly per match_flag, cluster
// splitting, cluster-level feature computation and colour assignment.
func (e *Engine) DoMatching() error {
	if e.matchStage >= StageReady {
		return nil
	}
	if e.fcst.stage < StageSplit || e.obs.stage < StageSplit {
		return fmt.Errorf("%w: matching requested at stages %v/%v, want SPLIT",
			modeerr.ErrInternalState, e.fcst.stage, e.obs.stage)
	}
	if err := e.cfg.FuzzyConfig().Validate(); err != nil {
		return err
	}

	if err := e.doMerge(&e.fcst); err != nil {
		return err
	}
	if err := e.doMerge(&e.obs); err != nil {
		return err
	}

	// With match_flag NONE no pair features exist at all; only the
	// single features and the unmatched colouring pass are produced.
	flag := e.cfg.MatchFlag()
	if flag != config.MatchNone {
		e.computePairs()
	}
	e.buildSets(flag)
	if err := e.doClusterSplitting(); err != nil {
		return err
	}
	e.doClusterFeatures()
	if err := e.assignColors(); err != nil {
		return err
	}

	e.matchStage = StageReady
	return nil
}

// computePairs fills e.pairs with every (fcst,obs) PairFeature,
// addressed by pairIndex.
func (e *Engine) computePairs() {
	nf, no := e.fcst.n, e.obs.n
	maxDist := e.cfg.MaxCentroidDist()
	e.pairs = make([]*feature.PairFeature, nf*no)
	pairNum := 0
	for oi := 0; oi < no; oi++ {
		for fi := 0; fi < nf; fi++ {
			pairNum++
			e.pairs[e.pairIndex(fi, oi)] = feature.ComputePair(pairNum, fi, oi, e.fcst.singles[fi], e.obs.singles[oi], maxDist)
		}
	}
	e.matchStage = StageMatched
	e.logMatchStage("do_matching: pairs computed")
}

type scoredPair struct {
	fi, oi int
	total  float64
}

// buildSets folds the scored pairs into the engine's set collection,
// on top of any pre-merge sets doMerge left there, according to flag:
//   - NONE: no pairs are added and any pre-merge sets are dropped;
//     nothing forms a cluster.
//   - MATCH_ONLY: each object may join at most one pair (a 1:1 assignment).
//   - MATCH_MERGE: accepted pairs are added without a uniqueness
//     restriction, so a chain of accepted pairs transitively merges
//     every object it touches into one set (clusterset.AddPair
//     performs the union).
//   - MATCH_FCST_MERGE: like MATCH_MERGE, but a fcst id already placed
//     in a pair is skipped on later (lower-interest) pairs, so only
//     the fcst side can merge; the obs side stays 1:1 per fcst.
func (e *Engine) buildSets(flag config.MatchFlag) {
	if flag == config.MatchNone {
		e.sets.Sets = nil
		return
	}

	accept := e.cfg.TotalInterestThresh()
	fuzzyCfg := e.cfg.FuzzyConfig()
	scored := make([]scoredPair, 0, len(e.pairs))
	for oi := 0; oi < e.obs.n; oi++ {
		for fi := 0; fi < e.fcst.n; fi++ {
			p := e.pairs[e.pairIndex(fi, oi)]
			ti := fuzzy.TotalInterest(p, e.fcst.singles[fi], e.obs.singles[oi], fuzzyCfg)
			if ti != feature.BadInterest && ti >= accept {
				scored = append(scored, scoredPair{fi, oi, ti})
			}
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].total > scored[j].total })

	usedFcst := map[int]bool{}
	usedObs := map[int]bool{}
	for _, sp := range scored {
		switch flag {
		case config.MatchOnly:
			if usedFcst[sp.fi] || usedObs[sp.oi] {
				continue
			}
		case config.MatchFcstMerge:
			if usedFcst[sp.fi] {
				continue
			}
		}
		e.sets.AddPair(sp.fi+1, sp.oi+1)
		usedFcst[sp.fi] = true
		usedObs[sp.oi] = true
	}
	e.sets.ClearEmptySets()
}

// doClusterSplitting paints each side's split grid with its set
// number (1-based; 0 for background and for unmatched objects).
func (e *Engine) doClusterSplitting() error {
	e.fcstClusterSplit = grid.NewLabelGrid(e.fcst.split.Nx, e.fcst.split.Ny)
	for y := 0; y < e.fcst.split.Ny; y++ {
		for x := 0; x < e.fcst.split.Nx; x++ {
			if id := e.fcst.split.Get(x, y); id != 0 {
				if s := e.sets.FcstSetNumber(id); s != -1 {
					e.fcstClusterSplit.Set(x, y, s+1)
				}
			}
		}
	}
	e.obsClusterSplit = grid.NewLabelGrid(e.obs.split.Nx, e.obs.split.Ny)
	for y := 0; y < e.obs.split.Ny; y++ {
		for x := 0; x < e.obs.split.Nx; x++ {
			if id := e.obs.split.Get(x, y); id != 0 {
				if s := e.sets.ObsSetNumber(id); s != -1 {
					e.obsClusterSplit.Set(x, y, s+1)
				}
			}
		}
	}
	e.nClus = len(e.sets.Sets)
	e.matchStage = StageClusterSplit
	return nil
}

// doClusterFeatures computes, for every set, the OR'd fcst and obs
// cluster masks and their SingleFeature/PairFeature.
func (e *Engine) doClusterFeatures() {
	pctUser := e.cfg.IntensityPercentile()
	maxDist := e.cfg.MaxCentroidDist()

	e.clusterFcst = make([]*feature.SingleFeature, e.nClus)
	e.clusterObs = make([]*feature.SingleFeature, e.nClus)
	e.clusterPairs = make([]*feature.PairFeature, e.nClus)

	for s := 0; s < e.nClus; s++ {
		e.clusterFcst[s] = feature.Compute(s+1, e.fcst.filter, e.fcst.thresh, mask.Select(e.fcstClusterSplit, s+1), pctUser)
		e.clusterObs[s] = feature.Compute(s+1, e.obs.filter, e.obs.thresh, mask.Select(e.obsClusterSplit, s+1), pctUser)
		e.projectSingles(config.Fcst, e.clusterFcst[s:s+1])
		e.projectSingles(config.Obs, e.clusterObs[s:s+1])
		if e.clusterFcst[s].Empty() || e.clusterObs[s].Empty() {
			continue
		}
		e.clusterPairs[s] = feature.ComputePair(s+1, s, s, e.clusterFcst[s], e.clusterObs[s], maxDist)
	}
}

// assignColors paints every object with its set's palette colour. If
// match_flag is NONE (so no sets were ever populated with pairs),
// every object gets its own colour instead, in object order. A
// non-empty palette with fewer colours than needed fails with
// modeerr.ErrInsufficientColors.
func (e *Engine) assignColors() error {
	need := e.nClus
	if e.cfg.MatchFlag() == config.MatchNone {
		need = e.fcst.n + e.obs.n
	}
	if len(e.palette) < need && len(e.palette) > 0 {
		return fmt.Errorf("%w: have %d colours, need %d", modeerr.ErrInsufficientColors, len(e.palette), need)
	}

	e.fcstColor = make([]color.RGBA, e.fcst.n)
	e.obsColor = make([]color.RGBA, e.obs.n)

	if e.cfg.MatchFlag() == config.MatchNone {
		e.doNoMatch()
		return nil
	}

	for fi := 1; fi <= e.fcst.n; fi++ {
		if s := e.sets.FcstSetNumber(fi); s != -1 {
			e.fcstColor[fi-1] = e.paletteColor(s)
		}
	}
	for oi := 1; oi <= e.obs.n; oi++ {
		if s := e.sets.ObsSetNumber(oi); s != -1 {
			e.obsColor[oi-1] = e.paletteColor(s)
		}
	}
	return nil
}

// doNoMatch assigns every object its own colour in object-number
// order, fcst objects first, used when match_flag == NONE.
func (e *Engine) doNoMatch() {
	idx := 0
	for fi := 0; fi < e.fcst.n; fi++ {
		e.fcstColor[fi] = e.paletteColor(idx)
		idx++
	}
	for oi := 0; oi < e.obs.n; oi++ {
		e.obsColor[oi] = e.paletteColor(idx)
		idx++
	}
}

func (e *Engine) paletteColor(i int) color.RGBA {
	if len(e.palette) == 0 {
		return color.RGBA{}
	}
	return e.palette[i%len(e.palette)]
}

func (e *Engine) logMatchStage(msg string) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{"n_fcst": e.fcst.n, "n_obs": e.obs.n}).Debug(msg)
}
