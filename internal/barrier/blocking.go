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

import "sync"

// Blocking is a mutex+condition-variable cyclic barrier. Arrivals
// increment a counter; the arrival that completes the group (count
// reaches a multiple of size) broadcasts and advances the epoch.
type Blocking struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	count   int
	epoch   uint64
}

// NewBlocking returns a blocking barrier sized for exactly `size`
// concurrent callers per epoch.
func NewBlocking(size int) *Blocking {
	b := &Blocking{size: size}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Blocking) Wait() {
	b.mu.Lock()
	epoch := b.epoch
	b.count++
	if b.count == b.size {
		b.count = 0
		b.epoch++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for b.epoch == epoch {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
