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

// Package optimizer is the offline permutation optimizer (spec §4.7):
// given N sparse points cut into S splits, each split cut into G
// contiguous groups, it searches for a reordering that minimizes
// cross-group feature overlap, so a downstream SGD run sees less
// destructive interference between workers' concurrent updates.
//
// Phase A does randomized pairwise swaps with an incrementally
// maintained objective; Phase B does a greedy multi-group chain swap
// guided by a dynamic program; a final intra-group affinity sort fixes
// point order within each group. Splits are independent and are
// optimized concurrently, throttled to the host's core count.
package optimizer

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Config holds the optimizer's tunables (spec §4.7, §9 open question
// on Phase A's accept/revert discipline).
type Config struct {
	FailTriesThreshold int // Phase A: consecutive rejects before a failed epoch
	MaxFailedEpochs    int // Phase A: consecutive failed epochs before stopping
	MaxEpochsPhaseB    int // Phase B: greedy passes, early-stop if Obj stalls
	MaxScoreIncrease   int64
}

// DefaultConfig mirrors the reference tool's defaults.
func DefaultConfig() Config {
	return Config{
		FailTriesThreshold: 300,
		MaxFailedEpochs:    25,
		MaxEpochsPhaseB:    3,
		MaxScoreIncrease:   50,
	}
}

// SplitReport summarizes one split's optimization for the driver's
// verbose/console output.
type SplitReport struct {
	Size        int
	Initial     int64
	AfterPhaseA int64
	AfterPhaseB int64
}

// ImprovementPercent reports the percentage reduction in Obj from the
// identity permutation to the given stage, mirroring the reference
// tool's "X% less than initial score" console line.
func (r SplitReport) ImprovementPercent(obj int64) float64 {
	if r.Initial == 0 {
		return 0
	}
	return float64(int((1-float64(obj)/float64(r.Initial))*1000)) / 10.0
}

// Optimize runs Phase A, Phase B and the final intra-group sort on
// every split of featureLists (featureLists[i] is the sorted feature
// id list of training point i), returning the concatenated
// permutation (a bijection of [0,len(featureLists))) and one report
// per split.
func Optimize(featureLists [][]uint32, splits, groups int, cfg Config) ([]uint32, []SplitReport) {
	n := len(featureLists)
	if splits < 1 {
		splits = 1
	}
	if splits > n {
		splits = n
	}
	perSplit := n / splits

	type job struct {
		offset, size int
	}
	jobs := make([]job, 0, splits)
	offset := 0
	for s := 0; s < splits; s++ {
		size := perSplit
		if s == splits-1 {
			size = n - offset
		}
		jobs = append(jobs, job{offset: offset, size: size})
		offset += size
	}

	result := make([]uint32, n)
	reports := make([]SplitReport, len(jobs))

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	ctx := context.Background()
	done := make(chan struct{}, len(jobs))

	for idx, j := range jobs {
		idx, j := idx, j
		sem.Acquire(ctx, 1)
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()

			sp := newSplit(featureLists[j.offset:j.offset+j.size], groups)
			report := SplitReport{Size: j.size, Initial: sp.obj}
			sp.runPhaseA(cfg)
			report.AfterPhaseA = sp.obj
			sp.runPhaseB(cfg)
			sp.sortInGroups()
			report.AfterPhaseB = sp.obj
			reports[idx] = report
			for i, p := range sp.perm {
				result[j.offset+i] = uint32(int(p) + j.offset)
			}
		}()
	}
	for range jobs {
		<-done
	}

	return result, reports
}

// split holds one split's mutable optimization state: the current
// permutation (perm[pos] is the split-local point index occupying
// position pos) and, per feature, the per-group point counts that
// define Obj.
type split struct {
	n, g     int
	perSplit int
	points   [][]uint32
	perm     []uint32
	count    map[uint32][]int32
	obj      int64
}

func newSplit(points [][]uint32, groups int) *split {
	n := len(points)
	g := groups
	if g < 1 {
		g = 1
	}
	perSplit := n / g
	if perSplit < 1 {
		perSplit = 1
	}
	s := &split{
		n:        n,
		g:        g,
		perSplit: perSplit,
		points:   points,
		perm:     make([]uint32, n),
		count:    make(map[uint32][]int32),
	}
	for i := range s.perm {
		s.perm[i] = uint32(i)
	}
	for pos := 0; pos < n; pos++ {
		grp := s.groupOf(pos)
		for _, f := range points[pos] {
			s.obj += s.moveFeatureCount(f, grp, 1)
		}
	}
	return s
}

// groupOf returns the fixed group index for a position: groups are
// contiguous ranges of perSplit positions, the last absorbing the
// remainder (spec §4.7's "equal-size contiguous groups").
func (s *split) groupOf(pos int) int {
	g := pos / s.perSplit
	if g >= s.g {
		g = s.g - 1
	}
	return g
}

func (s *split) groupRange(g int) (start, end int) {
	start = g * s.perSplit
	if g == s.g-1 {
		end = s.n
	} else {
		end = start + s.perSplit
	}
	return
}

func (s *split) countRow(f uint32) []int32 {
	row, ok := s.count[f]
	if !ok {
		row = make([]int32, s.g)
		s.count[f] = row
	}
	return row
}

// moveFeatureCount changes count[group][f] by delta and returns the
// resulting change in Obj. Because Obj is a sum of pairwise mins over
// groups, changing one group's count for one feature only perturbs the
// pairs involving that group; this is the O(G) incremental update spec
// §4.7 requires, applied in sequence once per feature per swapped
// point. Each call returns the exact change for the counts as they
// stand at that moment, so the sum of the returned deltas over any
// sequence of calls is the exact total change, whatever the order.
func (s *split) moveFeatureCount(f uint32, group int, delta int32) int64 {
	row := s.countRow(f)
	var before, after int64
	for g2 := 0; g2 < s.g; g2++ {
		if g2 == group {
			continue
		}
		before += int64(minInt32(row[group], row[g2]))
	}
	row[group] += delta
	for g2 := 0; g2 < s.g; g2++ {
		if g2 == group {
			continue
		}
		after += int64(minInt32(row[group], row[g2]))
	}
	return after - before
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// swap exchanges the occupants of two positions and returns the
// resulting Obj delta, without committing it to s.obj. Calling swap
// twice on the same (i, j) is an involution: it restores both perm and
// count to their prior state, which is how Phase A implements
// "apply immediately and revert in place on rejection" (spec §9).
func (s *split) swap(i, j int) int64 {
	if i == j {
		return 0
	}
	gi, gj := s.groupOf(i), s.groupOf(j)
	pi, pj := s.perm[i], s.perm[j]
	var delta int64
	for _, f := range s.points[pi] {
		delta += s.moveFeatureCount(f, gi, -1)
		delta += s.moveFeatureCount(f, gj, 1)
	}
	for _, f := range s.points[pj] {
		delta += s.moveFeatureCount(f, gj, -1)
		delta += s.moveFeatureCount(f, gi, 1)
	}
	s.perm[i], s.perm[j] = pj, pi
	return delta
}
