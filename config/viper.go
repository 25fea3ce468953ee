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

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/spatialmodel/modeverify/fuzzy"
	"github.com/spatialmodel/modeverify/grid"
	"github.com/spatialmodel/modeverify/modeerr"
)

// Cfg is a Source backed by a github.com/lnashier/viper instance:
// settings are readable from a config file (TOML/YAML/JSON, whatever
// viper.SetConfigFile's extension implies) and from "MODEVERIFY_"-prefixed
// environment variables. No command-line flag is bound to a setting.
type Cfg struct {
	*viper.Viper
}

// New returns a Cfg with environment-variable binding configured.
func New() *Cfg {
	v := viper.New()
	v.SetEnvPrefix("MODEVERIFY")
	v.AutomaticEnv()
	return &Cfg{Viper: v}
}

// Load reads and parses the configuration file at path. An empty path
// leaves the Cfg with defaults, environment variables and flags only.
func (c *Cfg) Load(path string) error {
	if path == "" {
		return nil
	}
	c.SetConfigFile(path)
	if err := c.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %v", modeerr.ErrInputReadFailed, err)
	}
	return nil
}

func sideKey(name string, side Side) string {
	if side == Fcst {
		return "fcst_" + name
	}
	return "obs_" + name
}

// parseThresh parses a MET-style threshold string such as ">0.5",
// ">=10", "==0", or "!=1" into a grid.SingleThresh.
func parseThresh(s string) (grid.SingleThresh, error) {
	ops := []struct {
		sym string
		op  grid.ThreshOp
	}{
		{">=", grid.Ge}, {"<=", grid.Le}, {"==", grid.Eq}, {"!=", grid.Ne},
		{">", grid.Gt}, {"<", grid.Lt},
	}
	for _, o := range ops {
		if strings.HasPrefix(s, o.sym) {
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(s, o.sym)), 64)
			if err != nil {
				return grid.SingleThresh{}, fmt.Errorf("%w: invalid threshold %q: %v", modeerr.ErrConfigOutOfRange, s, err)
			}
			return grid.SingleThresh{Value: v, Op: o.op}, nil
		}
	}
	return grid.SingleThresh{}, fmt.Errorf("%w: threshold %q has no recognized operator", modeerr.ErrConfigOutOfRange, s)
}

func (c *Cfg) getThresh(key string) grid.SingleThresh {
	s := c.GetString(key)
	t, err := parseThresh(s)
	if err != nil {
		return grid.SingleThresh{}
	}
	return t
}

// RawThresh implements Source.
func (c *Cfg) RawThresh(side Side) grid.SingleThresh { return c.getThresh(sideKey("raw_thresh", side)) }

// ConvThresh implements Source.
func (c *Cfg) ConvThresh(side Side) grid.SingleThresh {
	return c.getThresh(sideKey("conv_thresh", side))
}

// AreaThresh implements Source.
func (c *Cfg) AreaThresh(side Side) grid.SingleThresh {
	return c.getThresh(sideKey("area_thresh", side))
}

// IntenPerc implements Source.
func (c *Cfg) IntenPerc(side Side) int { return cast.ToInt(c.Get(sideKey("inten_perc", side))) }

// IntenPercThresh implements Source.
func (c *Cfg) IntenPercThresh(side Side) grid.SingleThresh {
	return c.getThresh(sideKey("inten_perc_thresh", side))
}

// MergeThresh implements Source.
func (c *Cfg) MergeThresh(side Side) grid.SingleThresh {
	return c.getThresh(sideKey("merge_thresh", side))
}

// ConvRadius implements Source.
func (c *Cfg) ConvRadius(side Side) int { return cast.ToInt(c.Get(sideKey("conv_radius", side))) }

// MergeFlag implements Source.
func (c *Cfg) MergeFlag(side Side) MergeFlag {
	return MergeFlag(cast.ToInt(c.Get(sideKey("merge_flag", side))))
}

// ZeroBorderSize implements Source.
func (c *Cfg) ZeroBorderSize() int { return cast.ToInt(c.Get("zero_border_size")) }

// BadDataThresh implements Source.
func (c *Cfg) BadDataThresh() float64 { return cast.ToFloat64(c.Get("bad_data_thresh")) }

// IntensityPercentile implements Source.
func (c *Cfg) IntensityPercentile() int { return cast.ToInt(c.Get("intensity_percentile")) }

// MaxCentroidDist implements Source.
func (c *Cfg) MaxCentroidDist() float64 { return cast.ToFloat64(c.Get("max_centroid_dist")) }

// TotalInterestThresh implements Source.
func (c *Cfg) TotalInterestThresh() float64 { return cast.ToFloat64(c.Get("total_interest_thresh")) }

// PrintInterestThresh implements Source.
func (c *Cfg) PrintInterestThresh() float64 { return cast.ToFloat64(c.Get("print_interest_thresh")) }

// MatchFlag implements Source.
func (c *Cfg) MatchFlag() MatchFlag { return MatchFlag(cast.ToInt(c.Get("match_flag"))) }

// ModeColorTable implements Source.
func (c *Cfg) ModeColorTable() string { return cast.ToString(c.Get("mode_color_table")) }

func (c *Cfg) getWeight(name string) float64 { return cast.ToFloat64(c.Get(name + "_weight")) }

// toFloat64SliceE converts a viper-decoded value to a []float64,
// tolerating both a native []interface{} (the shape TOML/YAML array
// keys decode to) and a JSON-array string (the shape an
// environment-variable override arrives as).
func toFloat64SliceE(s interface{}) ([]float64, error) {
	if v, ok := s.([]interface{}); ok {
		o := make([]float64, len(v))
		for i, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[i] = f
		}
		return o, nil
	}
	str, ok := s.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected a number array, got %#v", modeerr.ErrConfigOutOfRange, s)
	}
	var o []float64
	if err := json.Unmarshal([]byte(str), &o); err != nil {
		return nil, err
	}
	return o, nil
}

// getCurve reads a curve configured as two parallel float slices under
// "<name>.x"/"<name>.y", the "array of numbers" shape viper naturally
// decodes TOML/YAML/JSON arrays into.
func (c *Cfg) getCurve(name string) *grid.PiecewiseLinear {
	x, errX := toFloat64SliceE(c.Get(name + ".x"))
	y, errY := toFloat64SliceE(c.Get(name + ".y"))
	if errX != nil || errY != nil {
		return &grid.PiecewiseLinear{Name: name}
	}
	p, err := grid.NewPiecewiseLinear(name, x, y)
	if err != nil {
		return &grid.PiecewiseLinear{Name: name}
	}
	return p
}

// FuzzyConfig implements Source, assembling the weights and curves
// under the "_if"/"_conf"/"_weight" keys into a fuzzy.Config ready
// for fuzzy.TotalInterest.
func (c *Cfg) FuzzyConfig() fuzzy.Config {
	return fuzzy.Config{
		Weights: fuzzy.Weights{
			CentroidDist:         c.getWeight("centroid_dist"),
			BoundaryDist:         c.getWeight("boundary_dist"),
			ConvexHullDist:       c.getWeight("convex_hull_dist"),
			AngleDiff:            c.getWeight("angle_diff"),
			AreaRatio:            c.getWeight("area_ratio"),
			IntersectionOverArea: c.getWeight("int_area_ratio"),
			ComplexityRatio:      c.getWeight("complexity_ratio"),
			IntensityRatio:       c.getWeight("intensity_ratio"),
		},
		Curves: fuzzy.Curves{
			CentroidDistIf:         c.getCurve("centroid_dist_if"),
			BoundaryDistIf:         c.getCurve("boundary_dist_if"),
			ConvexHullDistIf:       c.getCurve("convex_hull_dist_if"),
			AngleDiffIf:            c.getCurve("angle_diff_if"),
			AreaRatioIf:            c.getCurve("area_ratio_if"),
			IntersectionOverAreaIf: c.getCurve("int_area_ratio_if"),
			ComplexityRatioIf:      c.getCurve("complexity_ratio_if"),
			RatioIf:                c.getCurve("ratio_if"),
			IntensityRatioIf:       c.getCurve("intensity_ratio_if"),
			AreaRatioConf:          c.getCurve("area_ratio_conf"),
			AspectRatioConf:        c.getCurve("aspect_ratio_conf"),
		},
	}
}

// Validate checks every bounded setting, returning
// modeerr.ErrConfigOutOfRange on the first violation.
func (c *Cfg) Validate() error {
	if !c.MatchFlag().Valid() {
		return fmt.Errorf("%w: match_flag=%d not in {0..3}", modeerr.ErrConfigOutOfRange, c.MatchFlag())
	}
	for _, side := range []Side{Fcst, Obs} {
		if !c.MergeFlag(side).Valid() {
			return fmt.Errorf("%w: merge_flag=%d not in {0..3}", modeerr.ErrConfigOutOfRange, c.MergeFlag(side))
		}
		if c.ConvRadius(side) < 0 {
			return fmt.Errorf("%w: conv_radius must be >= 0", modeerr.ErrConfigOutOfRange)
		}
	}
	if c.ZeroBorderSize() < 0 {
		return fmt.Errorf("%w: zero_border_size must be >= 0", modeerr.ErrConfigOutOfRange)
	}
	if c.BadDataThresh() <= 0 || c.BadDataThresh() > 1 {
		return fmt.Errorf("%w: bad_data_thresh must be in (0,1]", modeerr.ErrConfigOutOfRange)
	}
	if c.MaxCentroidDist() <= 0 {
		return fmt.Errorf("%w: max_centroid_dist must be > 0", modeerr.ErrConfigOutOfRange)
	}
	if c.TotalInterestThresh() < 0 || c.TotalInterestThresh() > 1 {
		return fmt.Errorf("%w: total_interest_thresh must be in [0,1]", modeerr.ErrConfigOutOfRange)
	}
	return c.FuzzyConfig().Validate()
}
