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

// Package modeerr defines the sentinel error kinds that a verification
// run can fail with. Core computations never panic; a failure is always
// one of these, optionally wrapped with fmt.Errorf's %w verb so the
// caller can recover the kind with errors.Is.
package modeerr

import "errors"

// Sentinel error kinds a verification run can fail with.
var (
	// ErrInputReadFailed means a raw grid or palette file could not be read.
	ErrInputReadFailed = errors.New("modeerr: input read failed")

	// ErrObjectCountExceeded means n_fcst or n_obs reached max_singles.
	ErrObjectCountExceeded = errors.New("modeerr: object count exceeded max_singles")

	// ErrInsufficientColors means fewer palette colours exist than clusters.
	ErrInsufficientColors = errors.New("modeerr: insufficient colors for cluster count")

	// ErrConfigOutOfRange means a configuration value violated its
	// documented domain (e.g. match_flag not in {0..3}, negative radius,
	// an interest curve with fewer than two knots).
	ErrConfigOutOfRange = errors.New("modeerr: configuration value out of range")

	// ErrInternalState means an engine invariant was violated: a stale
	// flag was encountered where none was allowed, or a sub-engine's
	// seeded field diverged from its parent's.
	ErrInternalState = errors.New("modeerr: internal state invariant violated")
)
