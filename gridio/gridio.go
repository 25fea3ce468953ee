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

// Package gridio reads the engine's ancillary inputs: on-disk gridded
// fields into grid.ValueGrids, and colour tables for cluster
// painting. The engine itself never touches the on-disk formats;
// everything goes through the reader interfaces defined here.
package gridio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/modeerr"
)

// RawReader reads a single named field from path into a ValueGrid.
// The engine never prescribes the on-disk representation; it consumes
// fields exclusively through this interface.
type RawReader interface {
	Read(path, varName string) (*grid.ValueGrid, error)
}

// NetCDFReader reads fields stored in the NetCDF classic format via
// github.com/ctessum/cdf.
//
// The variable named by varName is expected to be two-dimensional
// (y outer, x inner) and may carry the per-variable attributes
// "valid_time", "lead_time", "accum_interval" (unix seconds),
// "bad_data_value" (the file's own missing-value sentinel), and
// "projection" (a proj4-style descriptor string).
type NetCDFReader struct{}

// Read opens path as a NetCDF file and reads varName into a ValueGrid.
func (NetCDFReader) Read(path, varName string) (*grid.ValueGrid, error) {
	rw, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", modeerr.ErrInputReadFailed, err)
	}
	defer rw.Close()

	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", modeerr.ErrInputReadFailed, path, err)
	}

	dims := f.Header.Lengths(varName)
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: variable %s in %s has %d dimensions, want 2", modeerr.ErrInputReadFailed, varName, path, len(dims))
	}
	ny, nx := dims[0], dims[1]

	r := f.Reader(varName, nil, nil)
	buf := make([]float32, nx*ny)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: reading %s from %s: %v", modeerr.ErrInputReadFailed, varName, path, err)
	}

	bad := grid.BadData
	if v, ok := attrFloat64(f, varName, "bad_data_value"); ok {
		bad = v
	}

	out := grid.NewValueGrid(nx, ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			v := float64(buf[y*nx+x])
			if v == bad {
				v = grid.BadData
			}
			out.Set(x, y, v)
		}
	}

	out.Meta = grid.Meta{
		ValidTime:            attrInt64(f, varName, "valid_time"),
		LeadTime:             attrInt64(f, varName, "lead_time"),
		AccumulationInterval: attrInt64(f, varName, "accum_interval"),
		Projection:           attrString(f, varName, "projection"),
	}
	return out, nil
}

func attrFloat64(f *cdf.File, varName, attr string) (float64, bool) {
	v := f.Header.GetAttribute(varName, attr)
	if v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case []float64:
		if len(t) > 0 {
			return t[0], true
		}
	}
	return 0, false
}

func attrInt64(f *cdf.File, varName, attr string) int64 {
	v := f.Header.GetAttribute(varName, attr)
	switch t := v.(type) {
	case int64:
		return t
	case []int64:
		if len(t) > 0 {
			return t[0]
		}
	case int32:
		return int64(t)
	case []int32:
		if len(t) > 0 {
			return int64(t[0])
		}
	}
	return 0
}

func attrString(f *cdf.File, varName, attr string) string {
	v := f.Header.GetAttribute(varName, attr)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
