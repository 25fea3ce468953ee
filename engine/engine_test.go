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
	"errors"
	"image/color"
	"testing"

	"github.com/spatialmodel/modeverify/config"
	"github.com/spatialmodel/modeverify/fuzzy"
	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/modeerr"
)

// fakeConfig is a directly-constructed config.Source, used instead of
// config.Cfg so these tests exercise the engine's own logic rather
// than the viper-backed parsing path (covered separately in
// config_test.go).
type fakeConfig struct {
	rawThresh, convThresh, areaThresh, mergeThresh grid.SingleThresh
	intenPerc                                      int
	intenPercThresh                                grid.SingleThresh
	convRadius                                     int
	mergeFlag                                      config.MergeFlag
	matchFlag                                      config.MatchFlag

	zeroBorder   int
	badDataFrac  float64
	maxCentroid  float64
	acceptThresh float64
	printThresh  float64
	intensityPct int

	curves fuzzy.Config
}

func (c *fakeConfig) RawThresh(config.Side) grid.SingleThresh        { return c.rawThresh }
func (c *fakeConfig) ConvThresh(config.Side) grid.SingleThresh       { return c.convThresh }
func (c *fakeConfig) AreaThresh(config.Side) grid.SingleThresh       { return c.areaThresh }
func (c *fakeConfig) IntenPerc(config.Side) int                      { return c.intenPerc }
func (c *fakeConfig) IntenPercThresh(config.Side) grid.SingleThresh  { return c.intenPercThresh }
func (c *fakeConfig) MergeThresh(config.Side) grid.SingleThresh      { return c.mergeThresh }
func (c *fakeConfig) ConvRadius(config.Side) int                     { return c.convRadius }
func (c *fakeConfig) MergeFlag(config.Side) config.MergeFlag         { return c.mergeFlag }
func (c *fakeConfig) ZeroBorderSize() int                            { return c.zeroBorder }
func (c *fakeConfig) BadDataThresh() float64                         { return c.badDataFrac }
func (c *fakeConfig) IntensityPercentile() int                       { return c.intensityPct }
func (c *fakeConfig) MaxCentroidDist() float64                       { return c.maxCentroid }
func (c *fakeConfig) TotalInterestThresh() float64                   { return c.acceptThresh }
func (c *fakeConfig) PrintInterestThresh() float64                   { return c.printThresh }
func (c *fakeConfig) MatchFlag() config.MatchFlag                    { return c.matchFlag }
func (c *fakeConfig) FuzzyConfig() fuzzy.Config                      { return c.curves }
func (c *fakeConfig) ModeColorTable() string                         { return "" }

// alwaysMax is a two-knot curve that returns 1 everywhere, used for
// confidence curves and for attributes this test suite doesn't weight.
func alwaysMax() *grid.PiecewiseLinear {
	p, _ := grid.NewPiecewiseLinear("always_max", []float64{0, 1000}, []float64{1, 1})
	return p
}

// centroidDecay falls linearly from 1 at distance 0 to 0 at distance
// 20, so only near-identical placements score above the acceptance
// threshold — it's the only attribute these tests give nonzero
// weight, making total interest a deterministic function of
// placement rather than of the (untested) other attribute curves.
func centroidDecay() *grid.PiecewiseLinear {
	p, _ := grid.NewPiecewiseLinear("centroid_decay", []float64{0, 20}, []float64{1, 0})
	return p
}

func baseConfig() *fakeConfig {
	curves := fuzzy.Config{
		Weights: fuzzy.Weights{
			CentroidDist: 1,
		},
		Curves: fuzzy.Curves{
			CentroidDistIf: centroidDecay(), BoundaryDistIf: alwaysMax(), ConvexHullDistIf: alwaysMax(),
			AngleDiffIf: alwaysMax(), AreaRatioIf: alwaysMax(), IntersectionOverAreaIf: alwaysMax(),
			ComplexityRatioIf: alwaysMax(), RatioIf: alwaysMax(), IntensityRatioIf: alwaysMax(),
			AreaRatioConf: alwaysMax(), AspectRatioConf: alwaysMax(),
		},
	}
	return &fakeConfig{
		rawThresh:        grid.SingleThresh{Op: grid.Gt, Value: 0},
		convThresh:       grid.SingleThresh{Op: grid.Gt, Value: 8},
		areaThresh:       grid.SingleThresh{Op: grid.Gt, Value: 0},
		mergeThresh:      grid.SingleThresh{Op: grid.Gt, Value: 3},
		intenPerc:        50,
		intenPercThresh:  grid.SingleThresh{Op: grid.Gt, Value: 0},
		convRadius:       0,
		mergeFlag:        config.MergeOff,
		matchFlag:        config.MatchMerge,
		zeroBorder:       0,
		badDataFrac:      0.5,
		maxCentroid:      1000,
		acceptThresh:     0.5,
		printThresh:      0.5,
		intensityPct:     50,
		curves:           curves,
	}
}

func square(nx, ny, x0, y0, side int, v float64) *grid.ValueGrid {
	g := grid.NewValueGrid(nx, ny)
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			g.Set(x, y, v)
		}
	}
	return g
}

func TestDisjointBlobsPerfectMatch(t *testing.T) {
	fcst := square(20, 20, 2, 2, 3, 10)
	obs := square(20, 20, 2, 2, 3, 10)
	addSquare(fcst, 12, 12, 3, 10)
	addSquare(obs, 12, 12, 3, 10)

	e := New(baseConfig(), 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 2 || e.NObs() != 2 {
		t.Fatalf("expected 2 objects per side, got fcst=%d obs=%d", e.NFcst(), e.NObs())
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	if e.NClus() != 2 {
		t.Fatalf("expected 2 clusters for two identical disjoint blobs, got %d", e.NClus())
	}
	for k := 1; k <= 2; k++ {
		if !e.MatchedFcst(k) {
			t.Errorf("fcst object %d should be matched", k)
		}
		if !e.MatchedObs(k) {
			t.Errorf("obs object %d should be matched", k)
		}
	}
}

func addSquare(g *grid.ValueGrid, x0, y0, side int, v float64) {
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			g.Set(x, y, v)
		}
	}
}

func TestCentroidDistanceVeto(t *testing.T) {
	fcst := square(40, 40, 2, 2, 3, 10)
	obs := square(40, 40, 30, 30, 3, 10)

	cfg := baseConfig()
	cfg.maxCentroid = 5 // far smaller than the ~39px separation
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	p := e.Pair(1, 1)
	if p == nil || !p.Bad {
		t.Fatalf("expected pair to be vetoed by max_centroid_dist, got %+v", p)
	}
	if e.MatchedFcst(1) {
		t.Error("fcst object should be unmatched when its only candidate pair is vetoed")
	}
	if e.NClus() != 0 {
		t.Errorf("a fully vetoed pairing should form no clusters, got %d", e.NClus())
	}
}

func TestMatchFlagNoneAssignsNoMatches(t *testing.T) {
	fcst := square(20, 20, 2, 2, 3, 10)
	obs := square(20, 20, 2, 2, 3, 10)

	cfg := baseConfig()
	cfg.matchFlag = config.MatchNone
	e := New(cfg, 10)
	e.SetPalette(solidPalette(4))
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	if e.NClus() != 0 {
		t.Fatalf("match_flag NONE should never form clusters, got %d", e.NClus())
	}
	if e.MatchedFcst(1) || e.MatchedObs(1) {
		t.Error("match_flag NONE should leave every object unmatched")
	}
	if p := e.Pair(1, 1); p != nil {
		t.Errorf("match_flag NONE should compute no pair features, got %+v", p)
	}
	if e.FcstColor(1) == (color.RGBA{}) {
		t.Error("do_no_match should still assign every object a colour")
	}
}

func TestAreaThresholdRemovesSmallObjects(t *testing.T) {
	fcst := square(20, 20, 2, 2, 2, 10) // area 4
	obs := square(20, 20, 2, 2, 2, 10)

	cfg := baseConfig()
	cfg.areaThresh = grid.SingleThresh{Op: grid.Gt, Value: 10}
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 0 || e.NObs() != 0 {
		t.Fatalf("area_thresh should have removed the only object, got fcst=%d obs=%d", e.NFcst(), e.NObs())
	}
}

func TestDoMatchingIsIdempotent(t *testing.T) {
	fcst := square(20, 20, 2, 2, 3, 10)
	obs := square(20, 20, 2, 2, 3, 10)

	e := New(baseConfig(), 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	firstClus := e.NClus()
	firstInterest := e.TotalInterest(1, 1)
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	if e.NClus() != firstClus {
		t.Fatalf("second DoMatching call changed n_clus from %d to %d", firstClus, e.NClus())
	}

	// Re-seeding with the same grids must reproduce identical results.
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	if e.NClus() != firstClus {
		t.Fatalf("re-running Set with identical inputs changed n_clus from %d to %d", firstClus, e.NClus())
	}
	if got := e.TotalInterest(1, 1); got != firstInterest {
		t.Fatalf("re-running Set with identical inputs changed pair interest from %v to %v", firstInterest, got)
	}
}

func TestThresholdOnlyMergeJoinsGappedBlobs(t *testing.T) {
	nx, ny := 20, 20
	fcst := grid.NewValueGrid(nx, ny)
	addSquare(fcst, 2, 2, 2, 10)
	fcst.Set(4, 2, 5) // gap pixel: below conv_thresh (8), above merge_thresh (3)
	fcst.Set(4, 3, 5)
	addSquare(fcst, 5, 2, 2, 10)

	obs := fcst.Clone()

	cfg := baseConfig()
	cfg.mergeFlag = config.MergeThreshOnly
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 2 {
		t.Fatalf("expected conv_thresh to initially split the blobs into 2 objects, got %d", e.NFcst())
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	// The merge pass groups the two simple objects into one set; it
	// must not rewrite the split grid or the object count.
	if e.NFcst() != 2 {
		t.Fatalf("merging must leave the simple objects intact, got n_fcst=%d", e.NFcst())
	}
	if e.NClus() != 1 {
		t.Fatalf("expected the merged fcst pair and the obs objects to share 1 cluster, got %d", e.NClus())
	}
	set := e.ClusterSet(0)
	if !set.HasFcst(1) || !set.HasFcst(2) {
		t.Errorf("expected the cluster to contain fcst objects 1 and 2, got %+v", set)
	}
}

func TestMatchOnlyRestrictsToOneToOne(t *testing.T) {
	nx, ny := 40, 40
	fcst := grid.NewValueGrid(nx, ny)
	addSquare(fcst, 17, 17, 2, 10) // fcst obj 2 (scan order): centroid 17.5, closer to obs
	addSquare(fcst, 13, 13, 2, 10) // fcst obj 1: centroid 13.5, farther from obs
	obs := grid.NewValueGrid(nx, ny)
	addSquare(obs, 21, 21, 2, 10) // centroid 21.5

	cfg := baseConfig()
	cfg.matchFlag = config.MatchOnly
	// Both candidate pairs must clear the acceptance threshold so the
	// 1:1 restriction, not the threshold, is what rejects the second.
	cfg.acceptThresh = 0.4
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 2 {
		t.Fatalf("expected 2 fcst objects, got %d", e.NFcst())
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	// match_flag ONLY is 1:1: only the closer fcst object (the one
	// with the higher total interest) may pair with the single obs
	// object, leaving the other an unmatched singleton.
	if !e.MatchedFcst(2) {
		t.Error("expected the closer fcst object to be matched")
	}
	if e.MatchedFcst(1) {
		t.Error("match_flag ONLY should leave the farther fcst object unmatched")
	}
	if e.NClus() != 1 {
		t.Fatalf("expected only the matched pair to form a set, got %d sets", e.NClus())
	}
}

func TestMatchFcstMergeAllowsSharedObs(t *testing.T) {
	nx, ny := 40, 40
	fcst := grid.NewValueGrid(nx, ny)
	addSquare(fcst, 17, 17, 2, 10) // fcst obj 2
	addSquare(fcst, 13, 13, 2, 10) // fcst obj 1
	obs := grid.NewValueGrid(nx, ny)
	addSquare(obs, 21, 21, 2, 10)

	cfg := baseConfig()
	cfg.matchFlag = config.MatchFcstMerge
	cfg.acceptThresh = 0.4 // accept both candidate pairs
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	// match_flag FCST_MERGE drops the obs-side uniqueness restriction:
	// both fcst objects may pair with the one obs object, merging them
	// into a single cluster instead of leaving one unmatched.
	if !e.MatchedFcst(1) || !e.MatchedFcst(2) {
		t.Error("match_flag FCST_MERGE should let both fcst objects match the shared obs object")
	}
	if e.NClus() != 1 {
		t.Fatalf("expected both fcst objects to merge with the obs object into 1 cluster, got %d", e.NClus())
	}
}

func TestEngineOnlyMergeJoinsNearbyBlobs(t *testing.T) {
	nx, ny := 20, 20
	fcst := grid.NewValueGrid(nx, ny)
	addSquare(fcst, 2, 2, 2, 10)
	addSquare(fcst, 6, 6, 2, 10) // centroid distance ~5.66px, within the centroid_decay curve's range

	obs := fcst.Clone()

	cfg := baseConfig()
	cfg.mergeFlag = config.MergeEngineOnly
	e := New(cfg, 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 2 {
		t.Fatalf("expected the two blobs to split into 2 objects before merging, got %d", e.NFcst())
	}
	if err := e.DoMatching(); err != nil {
		t.Fatal(err)
	}
	if e.NFcst() != 2 {
		t.Fatalf("merging must leave the simple objects intact, got n_fcst=%d", e.NFcst())
	}
	if e.NClus() != 1 {
		t.Fatalf("expected the fuzzy-engine merge pass to put the two nearby blobs in 1 cluster, got %d", e.NClus())
	}
	set := e.ClusterSet(0)
	if !set.HasFcst(1) || !set.HasFcst(2) || !set.HasObs(1) || !set.HasObs(2) {
		t.Errorf("expected the cluster to hold both objects on both sides, got %+v", set)
	}
}

func TestObjectCountExceededFailsSet(t *testing.T) {
	nx, ny := 30, 2
	fcst := grid.NewValueGrid(nx, ny)
	for x := 0; x < nx; x += 3 {
		fcst.Set(x, 0, 10)
	}
	obs := fcst.Clone()

	e := New(baseConfig(), 2)
	if err := e.Set(fcst, obs); err == nil {
		t.Fatal("expected object count to exceed max_singles")
	}
}

func TestObjectCountAtCapFailsSet(t *testing.T) {
	fcst := square(20, 20, 2, 2, 3, 10)
	obs := square(20, 20, 2, 2, 3, 10)
	addSquare(fcst, 12, 12, 3, 10)
	addSquare(obs, 12, 12, 3, 10)

	// Reaching max_singles exactly fails, not just going past it.
	e := New(baseConfig(), 2)
	if err := e.Set(fcst, obs); !errors.Is(err, modeerr.ErrObjectCountExceeded) {
		t.Fatalf("expected ErrObjectCountExceeded at n == max_singles, got %v", err)
	}

	e = New(baseConfig(), 3)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatalf("expected 2 objects to fit under max_singles=3, got %v", err)
	}
}

func TestMatchingBeforeSetFails(t *testing.T) {
	e := New(baseConfig(), 10)
	err := e.DoMatching()
	if !errors.Is(err, modeerr.ErrInternalState) {
		t.Fatalf("expected ErrInternalState for matching before Set, got %v", err)
	}
}

func TestIntermediateGridsExposedAfterSet(t *testing.T) {
	fcst := square(20, 20, 2, 2, 3, 10)
	obs := square(20, 20, 2, 2, 3, 10)

	e := New(baseConfig(), 10)
	if err := e.Set(fcst, obs); err != nil {
		t.Fatal(err)
	}
	if e.FcstRaw() == nil || e.FcstFilter() == nil || e.FcstConv() == nil ||
		e.FcstMask() == nil || e.FcstSplit() == nil {
		t.Fatal("every fcst intermediate grid should be populated after Set")
	}
	if e.ObsRaw() == nil || e.ObsFilter() == nil || e.ObsConv() == nil ||
		e.ObsMask() == nil || e.ObsSplit() == nil {
		t.Fatal("every obs intermediate grid should be populated after Set")
	}
	// conv_radius is 0, so the convolved grid must equal the filtered one.
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if e.FcstConv().Get(x, y) != e.FcstFilter().Get(x, y) {
				t.Fatalf("conv_radius=0 should copy the filtered grid, differs at (%d,%d)", x, y)
			}
		}
	}
}

func solidPalette(n int) []color.RGBA {
	palette := make([]color.RGBA, n)
	for i := range palette {
		palette[i] = color.RGBA{R: uint8(i * 40), G: 100, B: 200, A: 255}
	}
	return palette
}
