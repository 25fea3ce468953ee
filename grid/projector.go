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

import (
	"fmt"

	"github.com/ctessum/geom/proj"
)

// Projector maps a ValueGrid's pixel (x,y) coordinates to geographic
// (lat,lon) and back, given the grid's origin, cell size, and
// projection descriptor, using github.com/ctessum/geom/proj's
// SR/NewTransform pair.
type Projector struct {
	X0, Y0   float64 // projected-coordinate origin of pixel (0,0)'s lower-left corner
	Dx, Dy   float64 // cell size in projected-coordinate units
	toLatLon proj.Transformer
	fromLL   proj.Transformer
}

// NewProjector builds a Projector for a grid whose lower-left pixel
// origin is (x0,y0) in gridProj's coordinate system with cell size
// (dx,dy). gridProj is a proj4-style string.
func NewProjector(gridProj string, x0, y0, dx, dy float64) (*Projector, error) {
	src, err := proj.Parse(gridProj)
	if err != nil {
		return nil, fmt.Errorf("grid: parsing projection %q: %w", gridProj, err)
	}
	dst, err := proj.Parse("+proj=longlat +datum=WGS84")
	if err != nil {
		return nil, fmt.Errorf("grid: parsing longlat projection: %w", err)
	}
	toLatLon, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("grid: building forward transform: %w", err)
	}
	fromLL, err := dst.NewTransform(src)
	if err != nil {
		return nil, fmt.Errorf("grid: building inverse transform: %w", err)
	}
	return &Projector{X0: x0, Y0: y0, Dx: dx, Dy: dy, toLatLon: toLatLon, fromLL: fromLL}, nil
}

// ToLatLon converts pixel-center coordinates (x,y) to (lat,lon).
func (p *Projector) ToLatLon(x, y float64) (lat, lon float64, err error) {
	px := p.X0 + (x+0.5)*p.Dx
	py := p.Y0 + (y+0.5)*p.Dy
	lon, lat, err = p.toLatLon(px, py)
	return lat, lon, err
}

// FromLatLon converts (lat,lon) to pixel coordinates (x,y).
func (p *Projector) FromLatLon(lat, lon float64) (x, y float64, err error) {
	px, py, err := p.fromLL(lon, lat)
	if err != nil {
		return 0, 0, err
	}
	x = (px-p.X0)/p.Dx - 0.5
	y = (py-p.Y0)/p.Dy - 0.5
	return x, y, nil
}
