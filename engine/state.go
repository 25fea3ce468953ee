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

// Stage is the per-side pipeline state: each value is both "the last
// derivation that has completed" and the memoisation guard the compute
// methods check before recomputing anything.
type Stage int

// The nine stages a side (or the whole engine, for the cross-side
// stages) progresses through, in order.
const (
	StageNew Stage = iota
	StageFiltered
	StageConvolved
	StageMasked
	StageSplit
	StageMerged
	StageMatched
	StageClusterSplit
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "NEW"
	case StageFiltered:
		return "FILTERED"
	case StageConvolved:
		return "CONVOLVED"
	case StageMasked:
		return "MASKED"
	case StageSplit:
		return "SPLIT"
	case StageMerged:
		return "MERGED"
	case StageMatched:
		return "MATCHED"
	case StageClusterSplit:
		return "CLUSTER_SPLIT"
	case StageReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// rewind lowers a stage's recorded progress to at most to, so that a
// changed input invalidates everything downstream of the earliest
// affected stage.
func rewind(cur *Stage, to Stage) {
	if *cur > to {
		*cur = to
	}
}
