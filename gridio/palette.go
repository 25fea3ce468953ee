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
	"encoding/csv"
	"fmt"
	"image/color"
	"os"
	"strconv"

	"github.com/spatialmodel/modeverify/modeerr"
)

// PaletteReader supplies the ordered list of colours the engine
// paints cluster ids with.
type PaletteReader interface {
	Read(path string) ([]color.RGBA, error)
}

// CSVPaletteReader reads a colour table from a 3-column (r,g,b) CSV
// file, one colour per line, values 0-255.
type CSVPaletteReader struct{}

// Read implements PaletteReader.
func (CSVPaletteReader) Read(path string) ([]color.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", modeerr.ErrInputReadFailed, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing colour table %s: %v", modeerr.ErrInputReadFailed, path, err)
	}

	out := make([]color.RGBA, 0, len(records))
	for i, rec := range records {
		c, err := parseColor(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: colour table %s line %d: %v", modeerr.ErrInputReadFailed, path, i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseColor(rec []string) (color.RGBA, error) {
	var vals [3]uint8
	for i, s := range rec {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 255 {
			return color.RGBA{}, fmt.Errorf("invalid colour component %q", s)
		}
		vals[i] = uint8(n)
	}
	return color.RGBA{R: vals[0], G: vals[1], B: vals[2], A: 255}, nil
}
