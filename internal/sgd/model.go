/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package sgd is the per-epoch SGD coordination engine: it iterates
// training blocks in permuted order, applies the fixed hinge-loss SVM
// update per example, calls the scheme's post-update hook, and runs
// barrier-synchronized distributed validation once per epoch.
package sgd

import (
	"github.com/launix-de/parasgd/internal/dataset"
	"github.com/launix-de/parasgd/internal/scheme"
)

// updatePoint applies one step of the hinge-loss SVM update (spec
// §4.6 "Model update") to w in place: a hinge gradient step when the
// margin is violated, followed by the per-feature L2 shrink scaled by
// that feature's degree.
func updatePoint(w []float64, p dataset.Point, step float64, args *scheme.ModelArgs, degrees []uint32) {
	var wxy float64
	for k, idx := range p.Indices {
		wxy += w[idx] * p.Values[k]
	}
	wxy *= p.Label
	if wxy < 1 {
		for k, idx := range p.Indices {
			w[idx] += step * p.Label * p.Values[k]
		}
	}
	for _, idx := range p.Indices {
		d := degrees[idx]
		if d == 0 {
			continue
		}
		w[idx] *= 1 - step*args.Mu/float64(d)
	}
}

// dot computes w . x for a sparse point.
func dot(w []float64, p dataset.Point) float64 {
	var s float64
	for k, idx := range p.Indices {
		s += w[idx] * p.Values[k]
	}
	return s
}
