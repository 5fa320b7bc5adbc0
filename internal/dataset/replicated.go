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

package dataset

import (
	"github.com/launix-de/parasgd/internal/topology"
)

// ReplicatedDataset is one LocalDataset per NUMA node, all logically
// equal: replicated.Get(n).Point(i) returns the same tuple for every n.
type ReplicatedDataset struct {
	nodes []*LocalDataset
}

// NewReplicatedDataset builds one LocalDataset from points and copies
// the packed buffer onto every NUMA node the given topology reports.
// The copy itself is a plain Go allocation per node, allocated and
// filled by the calling goroutine; no NUMA placement hint is given, so
// where the pages land is left to the OS and the Go runtime.
func NewReplicatedDataset(points []Point, topo *topology.Service) (*ReplicatedDataset, error) {
	if err := validate(points); err != nil {
		return nil, err
	}
	f := featureWidth(points)
	base := pack(points, f)
	n := topo.NumaNodeCount()
	nodes := make([]*LocalDataset, n)
	nodes[0] = base
	for node := 1; node < n; node++ {
		bufCopy := make([]byte, len(base.buf))
		copy(bufCopy, base.buf)
		ptrCopy := make([]int, len(base.ptr))
		copy(ptrCopy, base.ptr)
		nodes[node] = &LocalDataset{n: base.n, f: base.f, buf: bufCopy, ptr: ptrCopy}
	}
	return &ReplicatedDataset{nodes: nodes}, nil
}

// NewReplicatedDatasetPermuted rebuilds node 0 from other's node 0 in
// the order other[inverse[i]], then replicates to the remaining nodes.
// This is how the SGD driver applies the offline permutation
// optimizer's output before training.
func NewReplicatedDatasetPermuted(other *ReplicatedDataset, inverse []uint32, topo *topology.Service) (*ReplicatedDataset, error) {
	src := other.Get(0)
	points := make([]Point, src.Len())
	for i := range points {
		points[i] = src.Point(int(inverse[i]))
	}
	return NewReplicatedDataset(points, topo)
}

// Get returns the node-local replica for NUMA node n.
func (r *ReplicatedDataset) Get(node int) *LocalDataset {
	if node < 0 || node >= len(r.nodes) {
		node = 0
	}
	return r.nodes[node]
}

// NodeCount reports how many replicas were built.
func (r *ReplicatedDataset) NodeCount() int { return len(r.nodes) }
