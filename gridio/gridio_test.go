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

package gridio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/modeverify/grid"
)

// writeTempField writes a small NetCDF field with the per-variable
// attributes NetCDFReader expects.
func writeTempField(t *testing.T, nx, ny int, vals []float32, badVal float64) string {
	t.Helper()
	h := cdf.NewHeader([]string{"y", "x"}, []int{ny, nx})
	h.AddVariable("precip", []string{"y", "x"}, []float32{0})
	h.AddAttribute("precip", "bad_data_value", []float64{badVal})
	h.AddAttribute("precip", "valid_time", []int32{1500000000})
	h.AddAttribute("precip", "lead_time", []int32{21600})
	h.AddAttribute("precip", "accum_interval", []int32{3600})
	h.AddAttribute("precip", "projection", "+proj=longlat +datum=WGS84")
	h.Define()

	path := filepath.Join(t.TempDir(), "field.nc")
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	end := f.Header.Lengths("precip")
	start := make([]int, len(end))
	w := f.Writer("precip", start, end)
	if _, err := w.Write(vals); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNetCDFReaderRoundTrip(t *testing.T) {
	nx, ny := 3, 2
	vals := []float32{1, 2, 3, 4, -99, 6} // row-major, y outer
	path := writeTempField(t, nx, ny, vals, -99)

	g, err := NetCDFReader{}.Read(path, "precip")
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx != nx || g.Ny != ny {
		t.Fatalf("expected %dx%d grid, got %dx%d", nx, ny, g.Nx, g.Ny)
	}
	if got := g.Get(0, 0); got != 1 {
		t.Errorf("expected (0,0)=1, got %v", got)
	}
	if got := g.Get(2, 1); got != 6 {
		t.Errorf("expected (2,1)=6, got %v", got)
	}
	// The file's own bad_data_value must be mapped to the module sentinel.
	if got := g.Get(1, 1); got != grid.BadData {
		t.Errorf("expected the file's bad value to map to BadData, got %v", got)
	}
	if g.Meta.ValidTime != 1500000000 {
		t.Errorf("expected valid_time 1500000000, got %d", g.Meta.ValidTime)
	}
	if g.Meta.Projection != "+proj=longlat +datum=WGS84" {
		t.Errorf("unexpected projection descriptor %q", g.Meta.Projection)
	}
}

func TestNetCDFReaderMissingFile(t *testing.T) {
	if _, err := (NetCDFReader{}).Read(filepath.Join(t.TempDir(), "missing.nc"), "precip"); err == nil {
		t.Error("expected a missing file to return an error")
	}
}
