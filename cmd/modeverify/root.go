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

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/modeverify/config"
	"github.com/spatialmodel/modeverify/engine"
	"github.com/spatialmodel/modeverify/gridio"
)

// Version is the modeverify release version, reported by the version
// subcommand.
const Version = "0.1.0"

// runOpts holds the run subcommand's own flags: input file paths are
// given on the command line rather than in the configuration file.
type runOpts struct {
	configFile string
	fcstFile   string
	fcstVar    string
	obsFile    string
	obsVar     string
	palette    string
	maxSingles int
	verbose    bool
}

// RootCmd builds the modeverify cobra command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modeverify",
		Short: "A spatially-aware, object-based forecast verification engine.",
		Long: `modeverify identifies coherent high-intensity objects in a forecast
and an observation field of the same quantity and decides which forecast
objects correspond to which observed objects using a fuzzy-logic total
interest score.

Configuration can be supplied with a config file (--config) or
environment variables prefixed MODEVERIFY_.`,
		DisableAutoGenTag: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("modeverify v%s\n", Version)
		},
		DisableAutoGenTag: true,
	}

	opts := &runOpts{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one forecast/observation comparison.",
		Long: `run reads a forecast field and an observation field, identifies
objects in each, matches/merges them, and reports the resulting clusters.`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts)
		},
	}
	runCmd.Flags().StringVar(&opts.configFile, "config", "", "path to a modeverify configuration file")
	runCmd.Flags().StringVar(&opts.fcstFile, "fcst-file", "", "path to the forecast gridded field")
	runCmd.Flags().StringVar(&opts.fcstVar, "fcst-var", "", "variable name to read from --fcst-file")
	runCmd.Flags().StringVar(&opts.obsFile, "obs-file", "", "path to the observation gridded field")
	runCmd.Flags().StringVar(&opts.obsVar, "obs-var", "", "variable name to read from --obs-file")
	runCmd.Flags().StringVar(&opts.palette, "palette", "", "path to a colour-table CSV for cluster colouring (defaults to mode_color_table from the config)")
	runCmd.Flags().IntVar(&opts.maxSingles, "max-singles", 1000, "object count per side at which the run fails")
	runCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(versionCmd, runCmd)
	return root
}

func runVerify(opts *runOpts) error {
	log := logrus.New()
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.New()
	if err := cfg.Load(opts.configFile); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reader := gridio.NetCDFReader{}
	fcstGrid, err := reader.Read(opts.fcstFile, opts.fcstVar)
	if err != nil {
		return err
	}
	obsGrid, err := reader.Read(opts.obsFile, opts.obsVar)
	if err != nil {
		return err
	}

	e := engine.New(cfg, opts.maxSingles)
	e.Log = log

	palettePath := opts.palette
	if palettePath == "" {
		palettePath = cfg.ModeColorTable()
	}
	if palettePath != "" {
		palette, err := gridio.CSVPaletteReader{}.Read(palettePath)
		if err != nil {
			return err
		}
		e.SetPalette(palette)
	}

	if err := e.Set(fcstGrid, obsGrid); err != nil {
		return err
	}
	if err := e.DoMatching(); err != nil {
		return err
	}

	fmt.Printf("n_fcst=%d n_obs=%d n_clus=%d\n", e.NFcst(), e.NObs(), e.NClus())

	// Report every pair whose total interest reaches
	// print_interest_thresh, grouped by obs object and in fcst order
	// within each.
	printThresh := cfg.PrintInterestThresh()
	for oi := 1; oi <= e.NObs(); oi++ {
		for fi := 1; fi <= e.NFcst(); fi++ {
			ti := e.TotalInterest(fi, oi)
			if ti < printThresh {
				continue
			}
			p := e.Pair(fi, oi)
			fmt.Printf("pair fcst=%d obs=%d interest=%.4f centroid_dist=%.2f area_ratio=%.3f\n",
				fi, oi, ti, p.CentroidDist, p.AreaRatio)
		}
	}
	for s := 0; s < e.NClus(); s++ {
		set := e.ClusterSet(s)
		fmt.Printf("cluster %d fcst=%v obs=%v\n", s+1, set.FcstIDs, set.ObsIDs)
	}
	return nil
}
