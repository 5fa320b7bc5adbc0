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

// Package scheme implements the three data schemes that decide how
// model replicas are assigned to workers and what happens after each
// example update: HogWild (one shared replica), HogWild++ (clustered
// replicas with ring sync) and MyWild (clustered replicas with plain
// averaging). All three satisfy the same small capability-set
// interface so the SGD engine can stay generic over the scheme --
// the same "one interface, a handful of concrete strategies chosen at
// construction time" shape as the teacher's ColumnStorage family
// (storage/storage.go: StorageInt/StorageString/StorageSparse/...).
package scheme

import "math"

// ModelVector is a dense weight array mutated concurrently and racily
// by every worker sharing it. Writes are intentionally unsynchronized;
// correctness is statistical, not linearizable (spec §5).
type ModelVector struct {
	W []float64
}

// Finite reports whether every weight is a finite float. A divergent
// model (NaN/Inf) is a fatal condition the SGD engine must abort on.
func (m *ModelVector) Finite() bool {
	for _, w := range m.W {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}
	return true
}

// ModelArgs carries the scalar hyperparameters the SVM update kernel
// needs beyond the weight vector itself.
type ModelArgs struct {
	Mu float64 // L2 regularization strength
}

// Scheme is the capability set every data scheme implements: where a
// worker's model lives, what hyperparameters it uses, what happens
// after each example update, and how to hand a worker its own handle
// onto shared state without changing ownership of that state.
type Scheme interface {
	ModelVector(workerID int) *ModelVector
	ModelArgs(workerID int) *ModelArgs
	PostUpdate(workerID int, step float64)
	Clone() Scheme
	// ReplicaCount reports how many independent model replicas this
	// scheme maintains (1 for HogWild, C for clustered schemes).
	ReplicaCount() int
	// ReplicaOf is needed by the engine to compute which cluster's
	// permutation entry a worker should use (spec §4.6 step 1).
	ReplicaOf(workerID int) int
	// Replica returns the raw weight slice for replica index r,
	// primarily so the driver can read replica 0's weights for the
	// final single-threaded train/validate/test metrics.
	Replica(r int) *ModelVector
	// ClusterSize reports how many workers share a replica (T for
	// HogWild, cluster_size for the clustered schemes).
	ClusterSize() int
	// InCluster reports a worker's position within its cluster,
	// [0, ClusterSize()).
	InCluster(workerID int) int
}
