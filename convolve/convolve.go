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

// Package convolve implements the circular-kernel mean-value smoothing
// filter that turns a raw-filtered field into the convolved field
// object thresholding operates on.
package convolve

import (
	"math"

	"github.com/spatialmodel/modeverify/grid"
)

// Convolver applies a circular mean filter to a ValueGrid.
type Convolver struct {
	// BadDataFrac is the minimum fraction of a pixel's disc
	// (|S| / (pi*r*r)) that must be valid for the pixel's convolved
	// value to be considered good; below it the output is BadData.
	BadDataFrac float64
}

// Smooth returns the circular mean filter of in with disc radius r
// (diameter 2r+1). r=0 is a no-op copy. Pixels outside the grid or
// holding BadData are excluded from the mean; a pixel whose valid
// neighbor fraction falls below c.BadDataFrac is emitted as BadData.
func (c Convolver) Smooth(in *grid.ValueGrid, r int) *grid.ValueGrid {
	out := grid.NewValueGrid(in.Nx, in.Ny)
	out.Meta = in.Meta
	if r == 0 {
		for y := 0; y < in.Ny; y++ {
			for x := 0; x < in.Nx; x++ {
				out.Set(x, y, in.Get(x, y))
			}
		}
		return out
	}

	r2 := float64(r * r)
	discArea := math.Pi * float64(r*r)

	// Precompute the disc's relative offsets once; it is the same
	// shape at every pixel.
	var offsets [][2]int
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= r2 {
				offsets = append(offsets, [2]int{dx, dy})
			}
		}
	}

	for y := 0; y < in.Ny; y++ {
		for x := 0; x < in.Nx; x++ {
			var sum float64
			var count int
			for _, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if !in.InBounds(nx, ny) {
					continue
				}
				v := in.Get(nx, ny)
				if v == grid.BadData {
					continue
				}
				sum += v
				count++
			}
			if float64(count)/discArea < c.BadDataFrac {
				out.Set(x, y, grid.BadData)
				continue
			}
			out.Set(x, y, sum/float64(count))
		}
	}
	return out
}
