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

// Package barrier implements a reusable, epoch-aware cyclic barrier:
// Wait() admits exactly T arrivals per epoch before rolling forward to
// the next one. Unlike a sync.WaitGroup (which the teacher uses for
// one-shot shard fan-out/join in storage/partition.go), this barrier
// must survive being reused thousands of times across epochs without
// ever letting a straggler arrival leak through early.
package barrier

// Barrier is the common contract both implementations satisfy.
type Barrier interface {
	// Wait blocks the calling goroutine until T callers (T = the
	// barrier's configured size) have called Wait in the current
	// epoch, then releases all of them and rolls to the next epoch.
	Wait()
}
