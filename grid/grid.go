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

// Package grid holds the primitive 2-D containers the verification
// engine operates on: ValueGrid for real-valued fields and LabelGrid
// for integer object/cluster labels, plus the scalar threshold type
// used throughout field preparation.
//
// Both grid types are thin, (x,y)-indexed wrappers around
// github.com/ctessum/sparse's DenseArray/DenseArrayInt.
package grid

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// BadData is the sentinel value used throughout this module to denote
// a missing or invalid sample. It propagates through filtering and
// convolution without polluting every signature with an option type.
const BadData = -9999.0

// Meta carries the non-numeric metadata a raw field reader attaches to
// a ValueGrid.
type Meta struct {
	ValidTime            int64  // unix seconds
	LeadTime             int64  // seconds
	AccumulationInterval int64  // seconds
	Projection           string // proj4-style projection descriptor
}

// ValueGrid is a dense Nx*Ny grid of real values, indexed (x,y) with x
// across and y up, plus a reserved BadData sentinel and metadata.
type ValueGrid struct {
	Nx, Ny int
	data   *sparse.DenseArray
	Meta   Meta
}

// NewValueGrid allocates an Nx by Ny grid of zeros.
func NewValueGrid(nx, ny int) *ValueGrid {
	return &ValueGrid{
		Nx:   nx,
		Ny:   ny,
		data: sparse.ZerosDense(ny, nx),
	}
}

// InBounds reports whether (x,y) is a valid pixel coordinate.
func (g *ValueGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Nx && y >= 0 && y < g.Ny
}

// Get returns the value at (x,y).
func (g *ValueGrid) Get(x, y int) float64 {
	return g.data.Get(y, x)
}

// Set stores v at (x,y).
func (g *ValueGrid) Set(x, y int, v float64) {
	g.data.Set(v, y, x)
}

// Clone returns a deep copy of g.
func (g *ValueGrid) Clone() *ValueGrid {
	o := &ValueGrid{Nx: g.Nx, Ny: g.Ny, data: g.data.Copy(), Meta: g.Meta}
	return o
}

// ZeroBorder sets to bad all pixels with x<k, x>=Nx-k, y<k, or y>=Ny-k.
func (g *ValueGrid) ZeroBorder(k int, bad float64) {
	if k <= 0 {
		return
	}
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			if x < k || x >= g.Nx-k || y < k || y >= g.Ny-k {
				g.Set(x, y, bad)
			}
		}
	}
}

// Filter replaces every pixel not satisfying th with BadData, leaving
// satisfying pixels unchanged. Pixels already holding BadData stay BadData.
func (g *ValueGrid) Filter(th SingleThresh) *ValueGrid {
	o := NewValueGrid(g.Nx, g.Ny)
	o.Meta = g.Meta
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			v := g.Get(x, y)
			if v != BadData && th.Check(v) {
				o.Set(x, y, v)
			} else {
				o.Set(x, y, BadData)
			}
		}
	}
	return o
}

// ThresholdDouble produces a binary LabelGrid with 1 where th is
// satisfied and 0 elsewhere, ignoring BadData pixels (treated as not
// satisfying th).
func (g *ValueGrid) ThresholdDouble(th SingleThresh) *LabelGrid {
	o := NewLabelGrid(g.Nx, g.Ny)
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			v := g.Get(x, y)
			if v != BadData && th.Check(v) {
				o.Set(x, y, 1)
			}
		}
	}
	return o
}

// LabelGrid is a dense Nx*Ny grid of non-negative integer labels.
// Label 0 is background; labels 1..N identify distinct objects. A
// LabelGrid with only 0/1 values is also used as a binary mask.
type LabelGrid struct {
	Nx, Ny int
	data   *sparse.DenseArrayInt
}

// NewLabelGrid allocates an Nx by Ny grid of zero labels.
func NewLabelGrid(nx, ny int) *LabelGrid {
	return &LabelGrid{Nx: nx, Ny: ny, data: sparse.ZerosDenseInt(ny, nx)}
}

// InBounds reports whether (x,y) is a valid pixel coordinate.
func (g *LabelGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Nx && y >= 0 && y < g.Ny
}

// Get returns the label at (x,y).
func (g *LabelGrid) Get(x, y int) int {
	return g.data.Get(y, x)
}

// Set stores v at (x,y).
func (g *LabelGrid) Set(x, y, v int) {
	g.data.Set(v, y, x)
}

// Clone returns a deep copy of g.
func (g *LabelGrid) Clone() *LabelGrid {
	o := NewLabelGrid(g.Nx, g.Ny)
	copy(o.data.Elements, g.data.Elements)
	return o
}

// ThreshOp is a scalar comparison operator.
type ThreshOp int

// The six comparison operators a SingleThresh can use.
const (
	Lt ThreshOp = iota
	Le
	Eq
	Ne
	Ge
	Gt
)

func (op ThreshOp) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Ge:
		return ">="
	case Gt:
		return ">"
	default:
		return fmt.Sprintf("ThreshOp(%d)", int(op))
	}
}

// SingleThresh is a scalar threshold comparison: {value, op}.
type SingleThresh struct {
	Value float64
	Op    ThreshOp
}

// Check evaluates the threshold against v.
func (t SingleThresh) Check(v float64) bool {
	switch t.Op {
	case Lt:
		return v < t.Value
	case Le:
		return v <= t.Value
	case Eq:
		return v == t.Value
	case Ne:
		return v != t.Value
	case Ge:
		return v >= t.Value
	case Gt:
		return v > t.Value
	default:
		return false
	}
}

func (t SingleThresh) String() string {
	return fmt.Sprintf("%s%g", t.Op, t.Value)
}
