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

package sgd

import (
	"sync/atomic"

	"github.com/launix-de/parasgd/internal/dataset"
)

// MetricSummary is the shared, atomically-updated confusion-matrix
// accumulator validation workers contribute to once per epoch.
type MetricSummary struct {
	tp, tn, fp, fn atomic.Int64
}

// Reset zeroes all four counters. Safe to call from multiple workers
// concurrently before the pre-validation barrier: writing zero is
// idempotent regardless of interleaving.
func (m *MetricSummary) Reset() {
	m.tp.Store(0)
	m.tn.Store(0)
	m.fp.Store(0)
	m.fn.Store(0)
}

// Add atomically accumulates a worker's local confusion-matrix slice.
func (m *MetricSummary) Add(tp, tn, fp, fn int64) {
	m.tp.Add(tp)
	m.tn.Add(tn)
	m.fp.Add(fp)
	m.fn.Add(fn)
}

// Score computes the F1 score: 2*precision*recall/(precision+recall).
// Returns 0 when either denominator is 0 rather than NaN, matching
// the testable property that Score lies in [0, 1].
func (m *MetricSummary) Score() float64 {
	tp := float64(m.tp.Load())
	fp := float64(m.fp.Load())
	fn := float64(m.fn.Load())
	if tp+fp == 0 || tp+fn == 0 {
		return 0
	}
	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// evaluateRange classifies points [start, end) of ld against w and
// returns local (tp, tn, fp, fn) counts without touching shared state
// -- the caller batches one atomic Add per worker per epoch.
func evaluateRange(ld *dataset.LocalDataset, w []float64, start, end int) (tp, tn, fp, fn int64) {
	for i := start; i < end; i++ {
		p := ld.Point(i)
		correct := dot(w, p)*p.Label > 0
		positive := p.Label > 0
		switch {
		case positive && correct:
			tp++
		case positive && !correct:
			fn++
		case !positive && correct:
			tn++
		default:
			fp++
		}
	}
	return
}
