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

package barrier

import (
	"runtime"
	"sync/atomic"
)

// Spin is a single-atomic-counter cyclic barrier. The arrival that
// crosses the next multiple of size returns immediately; every other
// arrival spins until the counter crosses that multiple. Cheaper than
// Blocking under low contention, at the cost of burning CPU while
// waiting -- appropriate for the validation barrier, which workers
// reach nearly simultaneously after near-equal-sized blocks.
type Spin struct {
	size    int64
	arrived atomic.Int64
}

// NewSpin returns a spin barrier sized for exactly `size` concurrent
// callers per epoch.
func NewSpin(size int) *Spin {
	return &Spin{size: int64(size)}
}

func (s *Spin) Wait() {
	n := s.arrived.Add(1)
	target := ((n + s.size - 1) / s.size) * s.size
	if n == target {
		return
	}
	for s.arrived.Load() < target {
		runtime.Gosched()
	}
}
