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

// Package clusterset implements the equivalence-class bookkeeping that
// groups forecast and observed object ids into clusters during
// merging and matching.
package clusterset

// ObjectSet is an unordered pair of 1-based object id lists, one per
// side, that are considered "the same feature" after matching/merging.
type ObjectSet struct {
	FcstIDs []int
	ObsIDs  []int
}

// HasFcst reports whether n is a member of the fcst side.
func (s *ObjectSet) HasFcst(n int) bool { return contains(s.FcstIDs, n) }

// HasObs reports whether n is a member of the obs side.
func (s *ObjectSet) HasObs(n int) bool { return contains(s.ObsIDs, n) }

// Empty reports whether both sides are empty.
func (s *ObjectSet) Empty() bool { return len(s.FcstIDs) == 0 && len(s.ObsIDs) == 0 }

func contains(ids []int, n int) bool {
	for _, id := range ids {
		if id == n {
			return true
		}
	}
	return false
}

func addUnique(ids []int, n int) []int {
	if contains(ids, n) {
		return ids
	}
	return append(ids, n)
}

// SetCollection is an ordered sequence of ObjectSets.
type SetCollection struct {
	Sets []*ObjectSet
}

// fcstSetIndex returns the index of the set containing fcst id n, or -1.
func (sc *SetCollection) fcstSetIndex(n int) int {
	for i, s := range sc.Sets {
		if s.HasFcst(n) {
			return i
		}
	}
	return -1
}

// obsSetIndex returns the index of the set containing obs id n, or -1.
func (sc *SetCollection) obsSetIndex(n int) int {
	for i, s := range sc.Sets {
		if s.HasObs(n) {
			return i
		}
	}
	return -1
}

// FcstSetNumber returns the 0-based index of the set containing fcst
// id n, or -1 if n is unmatched.
func (sc *SetCollection) FcstSetNumber(n int) int { return sc.fcstSetIndex(n) }

// ObsSetNumber returns the 0-based index of the set containing obs
// id n, or -1 if n is unmatched.
func (sc *SetCollection) ObsSetNumber(n int) int { return sc.obsSetIndex(n) }

// AddPair records that fcst id f and obs id o belong together,
// extending or unioning existing sets as needed. -1 is a placeholder
// meaning "no id on this side"; it is legal to pass -1 for either f
// or o (but not both, which is a no-op).
func (sc *SetCollection) AddPair(f, o int) {
	switch {
	case f == -1 && o == -1:
		return
	case f != -1 && o != -1:
		sc.addPairBothSides(f, o)
	case f != -1:
		sc.addOneSided(f, -1)
	default:
		sc.addOneSided(-1, o)
	}
}

func (sc *SetCollection) addPairBothSides(f, o int) {
	sf := sc.fcstSetIndex(f)
	so := sc.obsSetIndex(o)
	switch {
	case sf == -1 && so == -1:
		sc.Sets = append(sc.Sets, &ObjectSet{FcstIDs: []int{f}, ObsIDs: []int{o}})
	case sf != -1 && so == -1:
		sc.Sets[sf].ObsIDs = addUnique(sc.Sets[sf].ObsIDs, o)
	case sf == -1 && so != -1:
		sc.Sets[so].FcstIDs = addUnique(sc.Sets[so].FcstIDs, f)
	case sf == so:
		// already in the same set: no-op, keeps AddPair idempotent.
	default:
		sc.mergeSets(sf, so)
	}
}

// addOneSided adds a single id (the non-(-1) one of f,o) to the
// collection, creating a new set if it is not already present anywhere
// on its side.
func (sc *SetCollection) addOneSided(f, o int) {
	if f != -1 {
		if sc.fcstSetIndex(f) == -1 {
			sc.Sets = append(sc.Sets, &ObjectSet{FcstIDs: []int{f}})
		}
		return
	}
	if sc.obsSetIndex(o) == -1 {
		sc.Sets = append(sc.Sets, &ObjectSet{ObsIDs: []int{o}})
	}
}

// AddFcstSet places every id in ids into one set with no obs members,
// the shape a pre-merge pass produces. Ids already present in existing
// sets pull those sets into the group, with the same union semantics
// as AddPair's merge case.
func (sc *SetCollection) AddFcstSet(ids []int) {
	if len(ids) == 0 {
		return
	}
	first := ids[0]
	if sc.fcstSetIndex(first) == -1 {
		sc.Sets = append(sc.Sets, &ObjectSet{FcstIDs: []int{first}})
	}
	for _, id := range ids[1:] {
		si := sc.fcstSetIndex(first)
		sj := sc.fcstSetIndex(id)
		switch {
		case sj == -1:
			sc.Sets[si].FcstIDs = addUnique(sc.Sets[si].FcstIDs, id)
		case sj != si:
			sc.mergeSets(si, sj)
		}
	}
}

// AddObsSet is the obs-side mirror of AddFcstSet.
func (sc *SetCollection) AddObsSet(ids []int) {
	if len(ids) == 0 {
		return
	}
	first := ids[0]
	if sc.obsSetIndex(first) == -1 {
		sc.Sets = append(sc.Sets, &ObjectSet{ObsIDs: []int{first}})
	}
	for _, id := range ids[1:] {
		si := sc.obsSetIndex(first)
		sj := sc.obsSetIndex(id)
		switch {
		case sj == -1:
			sc.Sets[si].ObsIDs = addUnique(sc.Sets[si].ObsIDs, id)
		case sj != si:
			sc.mergeSets(si, sj)
		}
	}
}

// mergeSets merges the set at index so into the set at index sf and
// deletes so.
func (sc *SetCollection) mergeSets(sf, so int) {
	dst, src := sc.Sets[sf], sc.Sets[so]
	for _, id := range src.FcstIDs {
		dst.FcstIDs = addUnique(dst.FcstIDs, id)
	}
	for _, id := range src.ObsIDs {
		dst.ObsIDs = addUnique(dst.ObsIDs, id)
	}
	sc.Sets = append(sc.Sets[:so], sc.Sets[so+1:]...)
}

// ClearEmptySets removes every set whose both id lists are empty.
func (sc *SetCollection) ClearEmptySets() {
	kept := sc.Sets[:0]
	for _, s := range sc.Sets {
		if !s.Empty() {
			kept = append(kept, s)
		}
	}
	sc.Sets = kept
}
