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

// Package topology is the process-wide NUMA/core collaborator: node
// count, worker-to-node mapping and thread pinning. It is discovered
// once and shared; everyone that allocates per-node memory or binds a
// worker thread reads from the same Service instance.
package topology

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Service reports NUMA topology and pins worker threads to cores.
// Workers are laid out densely over [0, threads); the same cluster's
// workers land on the same NUMA node when the node/cluster sizes
// divide evenly, but nothing downstream may rely on that -- it is a
// locality hint, not a contract.
type Service struct {
	nodes   int
	workers int
}

// Global is the eagerly-constructed, process-wide topology instance.
// Everything that needs NUMA placement reads from it rather than
// probing the OS again.
var Global = discover()

func discover() *Service {
	return &Service{nodes: detectNodeCount(), workers: runtime.GOMAXPROCS(0)}
}

// New returns a Service scoped to a specific worker-pool size. Most
// callers should use Global; New exists for tests that need a
// deterministic node/worker ratio.
func New(workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{nodes: detectNodeCount(), workers: workers}
}

// NumaNodeCount returns the number of NUMA nodes visible to the process.
// Degrades to 1 when no topology information is available (containers,
// non-Linux hosts, single-socket machines).
func (s *Service) NumaNodeCount() int {
	if s.nodes < 1 {
		return 1
	}
	return s.nodes
}

// NodeOfWorker maps a dense worker id [0, T) to a NUMA node.
// Workers are striped contiguously across nodes so that a cluster of
// adjacent worker ids tends to share a node.
func (s *Service) NodeOfWorker(id int) int {
	n := s.NumaNodeCount()
	if n <= 1 {
		return 0
	}
	workers := s.workers
	if workers < n {
		workers = n
	}
	perNode := (workers + n - 1) / n
	node := id / perNode
	if node >= n {
		node = n - 1
	}
	return node
}

func detectNodeCount() int {
	entries, err := os.ReadDir("/sys/devices/system/node")
	if err != nil {
		return 1
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "node") {
			if _, err := strconv.Atoi(strings.TrimPrefix(name, "node")); err == nil {
				count++
			}
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

// cpusOfNode lists the logical CPU ids belonging to a NUMA node, used
// by PinCurrentThread as the affinity set for a worker on that node.
func cpusOfNode(node int) []int {
	path := filepath.Join("/sys/devices/system/node", "node"+strconv.Itoa(node), "cpulist")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cpus []int
	for _, part := range strings.Split(strings.TrimSpace(string(data)), ",") {
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err1 := strconv.Atoi(lo)
			b, err2 := strconv.Atoi(hi)
			if err1 == nil && err2 == nil {
				for c := a; c <= b; c++ {
					cpus = append(cpus, c)
				}
			}
		} else if c, err := strconv.Atoi(part); err == nil {
			cpus = append(cpus, c)
		}
	}
	sort.Ints(cpus)
	return cpus
}
