//go:build linux

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

package topology

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinCurrentThread locks the calling goroutine to its OS thread and
// restricts that thread's scheduling affinity to the cores of the
// worker's NUMA node. Must be called from the worker goroutine itself
// (affinity is a per-thread OS property).
func (s *Service) PinCurrentThread(id int) error {
	runtime.LockOSThread()
	node := s.NodeOfWorker(id)
	cpus := cpusOfNode(node)
	if len(cpus) == 0 {
		// no topology info: pin to a single core by worker id modulo NumCPU,
		// still giving deterministic placement instead of floating freely.
		cpus = []int{id % runtime.NumCPU()}
	}
	var set unix.CPUSet
	set.Zero()
	for _, c := range cpus {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}
