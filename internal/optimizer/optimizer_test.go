package optimizer

import (
	"os"
	"path/filepath"
	"testing"
)

// recomputeObjective recomputes Obj from scratch given the split's
// current permutation, independent of the incrementally maintained
// s.obj, for the "objective monotonicity" testable property.
func recomputeObjective(s *split) int64 {
	counts := make(map[uint32][]int32)
	for pos := 0; pos < s.n; pos++ {
		g := s.groupOf(pos)
		for _, f := range s.points[s.perm[pos]] {
			row, ok := counts[f]
			if !ok {
				row = make([]int32, s.g)
				counts[f] = row
			}
			row[g]++
		}
	}
	var total int64
	for _, row := range counts {
		for i := 0; i < s.g; i++ {
			for j := i + 1; j < s.g; j++ {
				total += int64(minInt32(row[i], row[j]))
			}
		}
	}
	return total
}

func TestNewSplitComputesInitialObjective(t *testing.T) {
	points := [][]uint32{
		{0}, {1}, // group 0
		{1}, {2}, // group 1
		{2}, {0}, // group 2
	}
	s := newSplit(points, 3)
	if got, want := s.obj, recomputeObjective(s); got != want {
		t.Fatalf("initial obj = %d, recompute = %d", got, want)
	}
	if s.obj != 3 {
		t.Fatalf("expected initial obj 3 for the cyclic-intruder dataset, got %d", s.obj)
	}
}

func TestPhaseANoOpWhenThresholdZero(t *testing.T) {
	points := make([][]uint32, 12)
	for i := range points {
		points[i] = []uint32{uint32(i % 3)}
	}
	s := newSplit(points, 4)
	before := append([]uint32(nil), s.perm...)
	s.runPhaseA(Config{FailTriesThreshold: 0, MaxFailedEpochs: 1})
	for i := range before {
		if s.perm[i] != before[i] {
			t.Fatalf("expected no-op permutation at position %d: got %d, want %d", i, s.perm[i], before[i])
		}
	}
}

func TestPhaseAObjectiveMonotonicAndConsistent(t *testing.T) {
	n := 40
	points := make([][]uint32, n)
	for i := range points {
		points[i] = []uint32{uint32(i % 5), uint32((i * 7) % 5)}
	}
	s := newSplit(points, 5)
	initial := s.obj
	s.runPhaseA(DefaultConfig())
	if s.obj > initial {
		t.Fatalf("Phase A must never increase Obj: initial=%d final=%d", initial, s.obj)
	}
	if got, want := s.obj, recomputeObjective(s); got != want {
		t.Fatalf("incrementally maintained obj %d does not match from-scratch recomputation %d", got, want)
	}
}

// TestChainSwapReducesCyclicIntruders is spec scenario 5's shape: a
// 3-group dataset where each group holds one "home" point and one
// "intruder" carrying the next group's home feature. No single
// pairwise move of a home point helps, but rotating the three
// intruders into their home groups drives Obj from 3 to 0.
func TestChainSwapReducesCyclicIntruders(t *testing.T) {
	points := [][]uint32{
		{0}, {1}, // group 0: home=feature 0, intruder carries feature 1
		{1}, {2}, // group 1: home=feature 1, intruder carries feature 2
		{2}, {0}, // group 2: home=feature 2, intruder carries feature 0
	}
	s := newSplit(points, 3)
	if s.obj != 3 {
		t.Fatalf("expected initial obj 3, got %d", s.obj)
	}
	s.runPhaseB(DefaultConfig())
	if s.obj >= 3 {
		t.Fatalf("expected Phase B's chain swap to strictly reduce obj below 3, got %d", s.obj)
	}
	if got, want := s.obj, recomputeObjective(s); got != want {
		t.Fatalf("incrementally maintained obj %d does not match recomputation %d", got, want)
	}
	if s.obj != 0 {
		t.Fatalf("expected the 3-cycle to fully segregate features (obj=0), got %d", s.obj)
	}
}

// TestOptimizerReducesOverlapHalfSplit is spec scenario 4: feature 0
// scattered evenly across both groups under identity yields Obj=K;
// Phase A must find at least the obvious partial consolidation.
func TestOptimizerReducesOverlapHalfSplit(t *testing.T) {
	points := make([][]uint32, 8)
	for i := range points {
		if i%2 == 0 {
			points[i] = []uint32{0}
		} else {
			points[i] = []uint32{uint32(10 + i)} // unique, never overlaps
		}
	}
	s := newSplit(points, 2)
	k := s.obj
	if k != 2 {
		t.Fatalf("expected initial obj (K) = 2 for the alternating layout, got %d", k)
	}
	s.runPhaseA(Config{FailTriesThreshold: 50, MaxFailedEpochs: 50})
	if s.obj > k/2 {
		t.Fatalf("expected obj <= K/2 = %d after Phase A, got %d", k/2, s.obj)
	}
}

func TestSortInGroupsNonDecreasingAffinity(t *testing.T) {
	points := [][]uint32{
		{0}, {1}, {0, 1}, {1}, {2}, {0},
	}
	s := newSplit(points, 2)
	s.runPhaseA(DefaultConfig())
	s.sortInGroups()
	for g := 0; g < s.g; g++ {
		start, end := s.groupRange(g)
		prev := int64(-1 << 62)
		for pos := start; pos < end; pos++ {
			score := s.affinityScore(g, s.perm[pos])
			if score < prev {
				t.Fatalf("group %d: affinity scores not ascending at position %d (%d < %d)", g, pos, score, prev)
			}
			prev = score
		}
	}
}

func TestOptimizeProducesBijectionOffsetBySplit(t *testing.T) {
	n := 24
	points := make([][]uint32, n)
	for i := range points {
		points[i] = []uint32{uint32(i % 6)}
	}
	perm, reports := Optimize(points, 3, 2, DefaultConfig())
	if len(reports) != 3 {
		t.Fatalf("expected 3 split reports, got %d", len(reports))
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p >= uint32(n) || seen[p] {
			t.Fatalf("permutation is not a bijection of [0,%d): duplicate or out-of-range value %d", n, p)
		}
		seen[p] = true
	}
	// each split's output values must stay within that split's offset range
	offset := 0
	for _, r := range reports {
		for i := offset; i < offset+r.Size; i++ {
			if perm[i] < uint32(offset) || perm[i] >= uint32(offset+r.Size) {
				t.Fatalf("split starting at %d produced out-of-range index %d at position %d", offset, perm[i], i)
			}
		}
		offset += r.Size
	}
}

func TestPermutationFileRoundTrip(t *testing.T) {
	perm := []uint32{3, 1, 4, 0, 2}
	for _, name := range []string{"perm.txt", "perm.txt.lz4"} {
		path := filepath.Join(t.TempDir(), name)
		if err := WritePermutation(path, perm); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		got, err := ReadPermutation(path)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(got) != len(perm) {
			t.Fatalf("%s: length mismatch: got %d want %d", name, len(got), len(perm))
		}
		for i := range perm {
			if got[i] != perm[i] {
				t.Fatalf("%s: round-trip mismatch at %d: got %d want %d", name, i, got[i], perm[i])
			}
		}
	}
}

func TestInvertPermutation(t *testing.T) {
	perm := []uint32{2, 0, 3, 1}
	inv := Invert(perm)
	for i, p := range perm {
		if inv[p] != uint32(i) {
			t.Fatalf("inverse[perm[%d]]=%d, want %d", i, inv[p], i)
		}
	}
}

func TestReadPermutationMissingFile(t *testing.T) {
	_, err := ReadPermutation(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err == nil || !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}
