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

package grid

import "fmt"

// PiecewiseLinear is an ordered set of (x,y) knots with linear
// interpolation between them, clamped at the endpoints. It is used for
// interest and confidence curves: knots are kept sorted by X as they
// are added, and evaluation below the first knot or above the last
// returns the nearest endpoint's Y rather than extrapolating.
type PiecewiseLinear struct {
	Name string
	X    []float64
	Y    []float64
}

// NewPiecewiseLinear builds a curve from parallel X/Y slices. Each knot
// is inserted with AddPoint, so X need not be sorted.
func NewPiecewiseLinear(name string, x, y []float64) (*PiecewiseLinear, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("grid: piecewise linear %q: len(x)=%d != len(y)=%d", name, len(x), len(y))
	}
	p := &PiecewiseLinear{Name: name}
	for i := range x {
		p.AddPoint(x[i], y[i])
	}
	return p, nil
}

// AddPoint inserts (x,y) into the curve in X order.
func (p *PiecewiseLinear) AddPoint(x, y float64) {
	i := 0
	for i < len(p.X) && p.X[i] <= x {
		i++
	}
	p.X = append(p.X, 0)
	copy(p.X[i+1:], p.X[i:])
	p.X[i] = x
	p.Y = append(p.Y, 0)
	copy(p.Y[i+1:], p.Y[i:])
	p.Y[i] = y
}

// NPoints returns the number of knots.
func (p *PiecewiseLinear) NPoints() int { return len(p.X) }

// Eval interpolates the curve at x, clamping to the endpoint values
// outside [X[0], X[N-1]].
func (p *PiecewiseLinear) Eval(x float64) float64 {
	n := len(p.X)
	if n == 0 {
		return BadData
	}
	if n == 1 || x <= p.X[0] {
		return p.Y[0]
	}
	if x >= p.X[n-1] {
		return p.Y[n-1]
	}
	for i := 1; i < n; i++ {
		if x <= p.X[i] {
			x0, x1 := p.X[i-1], p.X[i]
			y0, y1 := p.Y[i-1], p.Y[i]
			if x1 == x0 {
				return y1
			}
			frac := (x - x0) / (x1 - x0)
			return y0 + frac*(y1-y0)
		}
	}
	return p.Y[n-1]
}

// Valid reports whether the curve has at least two knots, the minimum
// every configured interest curve must have.
func (p *PiecewiseLinear) Valid() bool {
	return p != nil && len(p.X) >= 2
}
