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

package scheme

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ConfigError is raised at scheme construction for configuration bugs
// the spec marks fatal-at-construction (phy mod cluster_size != 0).
type ConfigError struct{ Msg string }

func (e ConfigError) Error() string { return e.Msg }

// RingInvariantError is raised when a worker's ring partner resolves
// to its own cluster -- a configuration bug that must abort the
// experiment rather than silently no-op the sync step.
type RingInvariantError struct{ WorkerID, Cluster int }

func (e RingInvariantError) Error() string {
	return fmt.Sprintf("ring sync invariant violated: worker %d's next cluster equals its own cluster %d", e.WorkerID, e.Cluster)
}

// clusterCore is the shared plumbing behind HogWild++ and MyWild:
// cluster partitioning, per-cluster replicas, the ring topology and
// the single-owner sync_thread/delay atomics. Only the per-feature
// update formula in PostUpdate differs between the two schemes, so it
// is factored out rather than duplicated (spec §4.5.2 vs §4.5.3
// describe "identical plumbing").
type clusterCore struct {
	threads     int
	clusterSize int
	phy         int
	numClusters int
	delayBase   int32

	w    [][]float64
	wOld [][]float64
	args []*ModelArgs

	nextWorker []int // ring: worker id -> next worker id, or -1

	delay      atomic.Int32
	syncThread atomic.Int32

	beta, lambda float64
}

// newClusterCore validates configuration and builds the ring topology
// and per-cluster replicas common to HogWild++ and MyWild.
func newClusterCore(threads, clusterSize, delayBase int, f int, template ModelArgs) (*clusterCore, error) {
	phy := threads
	if cores := physicalCores(); cores < phy {
		phy = cores
	}
	if clusterSize <= 0 || phy%clusterSize != 0 {
		return nil, ConfigError{Msg: fmt.Sprintf("phy_threads(%d) mod cluster_size(%d) != 0", phy, clusterSize)}
	}
	numClusters := phy / clusterSize

	c := &clusterCore{
		threads:     threads,
		clusterSize: clusterSize,
		phy:         phy,
		numClusters: numClusters,
		delayBase:   int32(delayBase),
	}
	c.beta, c.lambda = bisectBeta(numClusters)

	c.w = make([][]float64, numClusters)
	c.wOld = make([][]float64, numClusters)
	c.args = make([]*ModelArgs, numClusters)
	for i := 0; i < numClusters; i++ {
		c.w[i] = make([]float64, f)
		c.wOld[i] = make([]float64, f)
		argsCopy := template
		c.args[i] = &argsCopy
	}

	c.nextWorker = make([]int, threads)
	for w := 0; w < threads; w++ {
		if w < phy {
			c.nextWorker[w] = (w + clusterSize) % phy
		} else {
			c.nextWorker[w] = -1
		}
	}

	c.delay.Store(int32(delayBase))
	c.syncThread.Store(0)
	return c, nil
}

// clusterOf maps a worker id to its cluster index: workers [0, phy)
// partition contiguously; hyperthread-overflow workers [phy, threads)
// fold back onto the cluster of their modulo-phy counterpart.
func (c *clusterCore) clusterOf(workerID int) int {
	if workerID < c.phy {
		return workerID / c.clusterSize
	}
	return (workerID % c.phy) / c.clusterSize
}

func (c *clusterCore) modelVector(workerID int) *ModelVector {
	return &ModelVector{W: c.w[c.clusterOf(workerID)]}
}

func (c *clusterCore) modelArgs(workerID int) *ModelArgs {
	return c.args[c.clusterOf(workerID)]
}

func (c *clusterCore) replica(r int) *ModelVector { return &ModelVector{W: c.w[r]} }

// tryElect decrements the shared delay counter and reports whether
// the counter is now at or below zero and the caller is the elected
// sync_thread -- i.e. whether the caller should perform the ring step.
// Non-elected workers keep decrementing past zero until the elected
// one arrives and advance resets the counter.
// Returns the (own, partner) cluster indices when elected.
func (c *clusterCore) tryElect(workerID int) (own, partner int, elected bool) {
	if c.delay.Add(-1) > 0 {
		return 0, 0, false
	}
	if workerID != int(c.syncThread.Load()) {
		return 0, 0, false
	}
	next := c.nextWorker[workerID]
	if next < 0 {
		return 0, 0, false
	}
	own = c.clusterOf(workerID)
	partner = c.clusterOf(next)
	if own == partner {
		panic(RingInvariantError{WorkerID: workerID, Cluster: own})
	}
	return own, partner, true
}

// advance resets delay and hands election to the next worker in the
// ring, completing one ring step.
func (c *clusterCore) advance(workerID int) {
	c.delay.Store(c.delayBase)
	c.syncThread.Store(int32(c.nextWorker[workerID]))
}

func (c *clusterCore) clone() *clusterCore { return c }

// bisectBeta solves beta^C + beta - 1 = 0 for beta on [0.6, 1.0] by
// bisection to tolerance 1e-3, per spec §4.5.2. C < 2 is degenerate
// (no second cluster to sync against): beta=0 for C=0, beta=0.5 for
// C=1 (the bisection's own initial midpoint), matching spec's stated
// special cases.
func bisectBeta(numClusters int) (beta, lambda float64) {
	switch {
	case numClusters <= 0:
		beta = 0
	case numClusters == 1:
		beta = 0.5
	default:
		lo, hi := 0.6, 1.0
		f := func(b float64) float64 { return math.Pow(b, float64(numClusters)) + b - 1 }
		for hi-lo > 1e-3 {
			mid := (lo + hi) / 2
			if f(mid) < 0 {
				lo = mid
			} else {
				hi = mid
			}
		}
		beta = (lo + hi) / 2
	}
	if numClusters >= 1 {
		lambda = 1 - math.Pow(beta, float64(numClusters-1))
	} else {
		lambda = 0
	}
	return
}

// physicalCores is a hook for tests; production code has no portable
// way to distinguish physical from logical (hyperthread) cores
// without cgo, so it degrades to logical core count, matching the
// pattern the teacher follows elsewhere (storage/partition.go uses
// runtime.NumCPU() directly for its own throttling heuristics).
var physicalCoresFn = defaultPhysicalCores

func physicalCores() int { return physicalCoresFn() }
