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

	"github.com/spatialmodel/modeverify/config"
	"github.com/spatialmodel/modeverify/mask"
	"github.com/spatialmodel/modeverify/modeerr"
)

// doMerge runs the configured pre-merge pass(es) on s, recording each
// group of same-side objects as a set in the engine's collection
// (fcst ids with no obs members, or the mirror). The side's split grid
// and singles are left untouched: merging is a statement that objects
// belong to the same cluster, not a rebuild of the objects themselves.
func (e *Engine) doMerge(s *sideState) error {
	if s.n < 2 {
		s.stage = StageMerged
		return nil
	}

	flag := e.cfg.MergeFlag(s.side)
	if flag == config.MergeThreshOnly || flag == config.MergeBoth {
		e.mergeByLooseThreshold(s)
	}
	if flag == config.MergeEngineOnly || flag == config.MergeBoth {
		if err := e.mergeByFuzzyEngine(s); err != nil {
			return err
		}
	}
	s.stage = StageMerged
	return nil
}

// addMergeSet records a same-side object group in the collection.
// Singleton groups are skipped: a lone object in a merge shape carries
// no merge information.
func (e *Engine) addMergeSet(side config.Side, ids []int) {
	if len(ids) < 2 {
		return
	}
	if side == config.Fcst {
		e.sets.AddFcstSet(ids)
	} else {
		e.sets.AddObsSet(ids)
	}
}

// mergeByLooseThreshold groups split objects that are wholly contained
// in the same connected component of a looser, merge_thresh-based
// double-threshold of the convolved field. Containment is by pixelwise
// area: an object belongs to a merge shape when every one of its
// pixels does.
func (e *Engine) mergeByLooseThreshold(s *sideState) {
	mergeThresh := e.cfg.MergeThresh(s.side)
	loose := s.conv.ThresholdDouble(mergeThresh)
	looseSplit, looseN := mask.Split(loose)
	if looseN == 0 {
		return
	}

	areas := make([]int, s.n+1)
	overlap := make([]map[int]int, s.n+1) // overlap[origID][looseID] = shared pixels
	for k := 1; k <= s.n; k++ {
		overlap[k] = map[int]int{}
	}
	for y := 0; y < s.split.Ny; y++ {
		for x := 0; x < s.split.Nx; x++ {
			orig := s.split.Get(x, y)
			if orig == 0 {
				continue
			}
			areas[orig]++
			if lid := looseSplit.Get(x, y); lid != 0 {
				overlap[orig][lid]++
			}
		}
	}

	contained := make([][]int, looseN+1)
	for orig := 1; orig <= s.n; orig++ {
		for lid, shared := range overlap[orig] {
			if shared >= areas[orig] {
				contained[lid] = append(contained[lid], orig)
			}
		}
	}
	for lid := 1; lid <= looseN; lid++ {
		e.addMergeSet(s.side, contained[lid])
	}
}

// mergeByFuzzyEngine runs the fuzzy-engine pre-merge pass: a sub-engine
// whose forecast and observation inputs are both this side's field is
// seeded from the parent's already-computed derivations, given any
// pre-merge sets already found on this side, and run through
// doMatchMerge. Every sub-engine set holding two or more ids on the
// side under consideration becomes a pre-merge set in the parent's
// collection.
func (e *Engine) mergeByFuzzyEngine(s *sideState) error {
	sub := e.newSubEngine(s)
	if sub.fcst.n != s.n || sub.obs.n != s.n {
		return fmt.Errorf("%w: sub-engine seeded with %d/%d objects, parent side has %d",
			modeerr.ErrInternalState, sub.fcst.n, sub.obs.n, s.n)
	}

	for _, set := range e.sets.Sets {
		if s.side == config.Fcst && len(set.ObsIDs) == 0 && len(set.FcstIDs) >= 2 {
			sub.sets.AddFcstSet(set.FcstIDs)
		}
		if s.side == config.Obs && len(set.FcstIDs) == 0 && len(set.ObsIDs) >= 2 {
			sub.sets.AddFcstSet(set.ObsIDs)
		}
	}

	if err := sub.doMatchMerge(); err != nil {
		return err
	}

	for _, set := range sub.sets.Sets {
		e.addMergeSet(s.side, set.FcstIDs)
	}
	return nil
}

// newSubEngine is the seed-from-known-state factory: it constructs a
// peer Engine whose fcst and obs sides both hold this side's cached
// derivation chain, already advanced through SPLIT so no upstream
// stage reruns. The sub-engine shares the parent's read-only
// configuration and grids but owns its own matching state.
func (e *Engine) newSubEngine(s *sideState) *Engine {
	sub := &Engine{
		Log:        e.Log,
		cfg:        e.cfg,
		maxSingles: e.maxSingles,
		zeroBorder: e.zeroBorder,
		convolver:  e.convolver,
		projector:  e.projector,
	}
	sub.fcst = *s
	sub.fcst.side = config.Fcst
	sub.fcst.stage = StageSplit
	sub.obs = *s
	sub.obs.side = config.Obs
	sub.obs.stage = StageSplit
	return sub
}

// doMatchMerge scores every pair and assembles sets with MATCH_MERGE
// semantics regardless of the configured match_flag; it is the
// matching pass a fuzzy-engine sub-run always performs.
func (e *Engine) doMatchMerge() error {
	if e.fcst.stage < StageSplit || e.obs.stage < StageSplit {
		return fmt.Errorf("%w: matching requested at stages %v/%v, want SPLIT",
			modeerr.ErrInternalState, e.fcst.stage, e.obs.stage)
	}
	e.computePairs()
	e.buildSets(config.MatchMerge)
	return nil
}
