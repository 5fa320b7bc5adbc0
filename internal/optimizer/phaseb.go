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

package optimizer

import (
	"github.com/google/btree"
	"github.com/launix-de/NonLockingReadMap"
)

// usedSet tracks positions already consumed by a committed chain this
// pass. Reused from the teacher's lock-free growable bitmap
// (internal/perm's chain imitates the same CAS shape with its own
// atomic.Pointer, without using this type);
// Phase B runs single-threaded per split, so the concurrency safety is
// unused here, but the type is a convenient sparse, auto-growing bitset.
type usedSet = NonLockingReadMap.NonBlockingBitMap

// candidate is one (score_diff, position) move proposal in spec
// §4.7's s[i][j] queue: moving the point at pos from its current group
// into the group keying this queue would change Obj by delta.
type candidate struct {
	delta int64
	pos   int
}

type pairKey struct {
	from, to int
}

func candidateLess(a, b candidate) bool {
	if a.delta != b.delta {
		return a.delta < b.delta
	}
	return a.pos < b.pos
}

// buildPreferences scores every position's move into every other group
// it isn't already in, keeping candidates below maxScoreIncrease (spec
// §4.7 default 50) in a btree per ordered group pair, ordered so Min()
// is the best (lowest-delta) move.
func (s *split) buildPreferences(maxScoreIncrease int64) map[pairKey]*btree.BTreeG[candidate] {
	// preferences ignore "used" (built fresh each epoch before any
	// position in this pass has been consumed).
	prefs := make(map[pairKey]*btree.BTreeG[candidate])
	for pos := 0; pos < s.n; pos++ {
		g0 := s.groupOf(pos)
		pt := s.perm[pos]
		for g1 := 0; g1 < s.g; g1++ {
			if g1 == g0 {
				continue
			}
			diff := s.probeMove(pt, g0, g1)
			if diff >= maxScoreIncrease {
				continue
			}
			key := pairKey{g0, g1}
			t, ok := prefs[key]
			if !ok {
				t = btree.NewG[candidate](8, candidateLess)
				prefs[key] = t
			}
			t.ReplaceOrInsert(candidate{delta: diff, pos: pos})
		}
	}
	return prefs
}

// probeMove returns the Obj delta of moving point pt from group from
// to group to, without committing it: it applies the move via
// moveFeatureCount and immediately applies the inverse, leaving counts
// unchanged but reporting the delta the forward move would have
// produced.
func (s *split) probeMove(pt uint32, from, to int) int64 {
	var delta int64
	for _, f := range s.points[pt] {
		delta += s.moveFeatureCount(f, from, -1)
		delta += s.moveFeatureCount(f, to, 1)
	}
	for _, f := range s.points[pt] {
		s.moveFeatureCount(f, to, -1)
		s.moveFeatureCount(f, from, 1)
	}
	return delta
}

// peekBest returns the best not-yet-used candidate in t, permanently
// dropping stale (already-used) entries it passes over — the "lazy
// removal" spec §4.7 calls for.
func peekBest(t *btree.BTreeG[candidate], used *usedSet) (candidate, bool) {
	if t == nil {
		return candidate{}, false
	}
	for {
		item, ok := t.Min()
		if !ok {
			return candidate{}, false
		}
		if used.Get(uint32(item.pos)) {
			t.DeleteMin()
			continue
		}
		return item, true
	}
}

// runPhaseB runs the greedy multi-group chain-swap pass (spec §4.7),
// up to MaxEpochsPhaseB times, rebuilding preferences fresh each
// epoch and stopping early once an epoch fails to improve Obj.
func (s *split) runPhaseB(cfg Config) {
	if s.g < 2 {
		return
	}
	prevObj := s.obj
	for epoch := 0; epoch < cfg.MaxEpochsPhaseB; epoch++ {
		prefs := s.buildPreferences(cfg.MaxScoreIncrease)
		used := NonLockingReadMap.NewBitMap()
		for s.commitBestChain(prefs, &used) {
		}
		if s.obj == prevObj {
			break
		}
		prevObj = s.obj
	}
}

// commitBestChain finds the best negative-total cyclic chain over all
// G groups via the dynamic program from spec §4.7 (D[r][i][j] = best
// delta of an (r+1)-edge path from i to j with no repeated
// intermediate group; full-cycle cost closes j back to i) and, if one
// exists, commits it. It reports whether it attempted a chain at all,
// not whether that chain improved Obj: a chain whose real (exactly
// recomputed) delta turns out non-negative is rolled back, mirroring
// the reference tool's post-hoc revert, but its positions stay marked
// used so the search makes forward progress.
func (s *split) commitBestChain(prefs map[pairKey]*btree.BTreeG[candidate], used *usedSet) bool {
	g := s.g
	if g < 2 {
		return false
	}
	maxR := g - 2

	ok := make([][][]bool, maxR+1)
	d := make([][][]int64, maxR+1)
	choice := make([][][]int, maxR+1)
	for r := 0; r <= maxR; r++ {
		ok[r] = make([][]bool, g)
		d[r] = make([][]int64, g)
		choice[r] = make([][]int, g)
		for i := 0; i < g; i++ {
			ok[r][i] = make([]bool, g)
			d[r][i] = make([]int64, g)
			choice[r][i] = make([]int, g)
		}
	}

	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			if i == j {
				continue
			}
			if cand, found := peekBest(prefs[pairKey{i, j}], used); found {
				d[0][i][j] = cand.delta
				ok[0][i][j] = true
			}
		}
	}
	for r := 1; r <= maxR; r++ {
		for i := 0; i < g; i++ {
			for j := 0; j < g; j++ {
				if i == j {
					continue
				}
				bestSet := false
				var bestTotal int64
				bestK := -1
				for k := 0; k < g; k++ {
					if k == i || k == j || !ok[r-1][i][k] {
						continue
					}
					cand, found := peekBest(prefs[pairKey{k, j}], used)
					if !found {
						continue
					}
					total := d[r-1][i][k] + cand.delta
					if !bestSet || total < bestTotal {
						bestSet, bestTotal, bestK = true, total, k
					}
				}
				if bestSet {
					ok[r][i][j] = true
					d[r][i][j] = bestTotal
					choice[r][i][j] = bestK
				}
			}
		}
	}

	bestI, bestJ := -1, -1
	var bestTotal int64
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			if i == j || !ok[maxR][i][j] {
				continue
			}
			closing, found := peekBest(prefs[pairKey{j, i}], used)
			if !found {
				continue
			}
			total := d[maxR][i][j] + closing.delta
			if bestI == -1 || total < bestTotal {
				bestI, bestJ, bestTotal = i, j, total
			}
		}
	}
	if bestI == -1 || bestTotal >= 0 {
		return false
	}

	chain := append(reconstructChain(maxR, bestI, bestJ, choice), bestI)

	positions := make([]int, g)
	for idx := 0; idx < g; idx++ {
		key := pairKey{chain[idx], chain[idx+1]}
		cand, found := peekBest(prefs[key], used)
		if !found {
			return false
		}
		positions[idx] = cand.pos
		used.Set(uint32(cand.pos), true)
		prefs[key].DeleteMin()
	}

	oldOccupants, delta := s.rotateForward(positions, chain[:g])
	if delta < 0 {
		s.obj += delta
	} else {
		s.undoRotation(positions, chain[:g], oldOccupants)
	}
	return true
}

func reconstructChain(r, i, j int, choice [][][]int) []int {
	if r == 0 {
		return []int{i, j}
	}
	k := choice[r][i][j]
	return append(reconstructChain(r-1, i, k, choice), j)
}

// rotateForward cycles the occupants of positions one step along
// groupsSeq: the point at positions[idx] (currently in groupsSeq[idx])
// moves into positions[idx+1 mod len] (in groupsSeq[idx+1 mod len]).
// It returns the displaced occupants (for a possible undo) and the
// exact resulting Obj delta.
func (s *split) rotateForward(positions []int, groupsSeq []int) (oldOccupants []uint32, delta int64) {
	n := len(positions)
	oldOccupants = make([]uint32, n)
	for idx, pos := range positions {
		oldOccupants[idx] = s.perm[pos]
	}
	for idx := 0; idx < n; idx++ {
		nextIdx := (idx + 1) % n
		occupant := oldOccupants[idx]
		oldGroup, newGroup := groupsSeq[idx], groupsSeq[nextIdx]
		for _, f := range s.points[occupant] {
			delta += s.moveFeatureCount(f, oldGroup, -1)
			delta += s.moveFeatureCount(f, newGroup, 1)
		}
		s.perm[positions[nextIdx]] = occupant
	}
	return
}

// undoRotation reverses a rotateForward call exactly, given the
// occupants it displaced.
func (s *split) undoRotation(positions []int, groupsSeq []int, oldOccupants []uint32) {
	n := len(positions)
	for idx := 0; idx < n; idx++ {
		nextIdx := (idx + 1) % n
		occupant := oldOccupants[idx]
		oldGroup, newGroup := groupsSeq[idx], groupsSeq[nextIdx]
		for _, f := range s.points[occupant] {
			s.moveFeatureCount(f, newGroup, -1)
			s.moveFeatureCount(f, oldGroup, 1)
		}
		s.perm[positions[idx]] = occupant
	}
}
