package sgd

import (
	"testing"

	"github.com/launix-de/parasgd/internal/dataset"
	"github.com/launix-de/parasgd/internal/pool"
	"github.com/launix-de/parasgd/internal/scheme"
	"github.com/launix-de/parasgd/internal/topology"
)

// TestToySVMSingleThread is spec's scenario 1: 4 points in F=2,
// single thread, HogWild, must reach train F1 = 1.0 within 50 epochs.
func TestToySVMSingleThread(t *testing.T) {
	points := []dataset.Point{
		{Label: 1, Indices: []uint32{0}, Values: []float64{1}},
		{Label: 1, Indices: []uint32{0}, Values: []float64{1}},
		{Label: -1, Indices: []uint32{1}, Values: []float64{1}},
		{Label: -1, Indices: []uint32{1}, Values: []float64{1}},
	}
	topo := topology.New(1)
	rep, err := dataset.NewReplicatedDataset(points, topo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	degrees := rep.Get(0).FeatureDegrees()

	p := pool.New(1, topo)
	defer p.Shutdown()

	sch := scheme.NewHogWild(1, rep.Get(0).Features(), scheme.ModelArgs{Mu: 0})
	cfg := Config{MaxEpochs: 50, TargetScore: 1.0, Step: 0.5, StepDecay: 1.0, BlockSizeHint: 1}
	eng := NewEngine(p, topo, sch, rep, rep, degrees, cfg)

	result := eng.Run()
	if !result.Success {
		t.Fatalf("expected success within 50 epochs, per-worker epochs: %v", result.PerWorkerEpochs)
	}
	trainScore, _, _ := eng.FinalMetrics(rep)
	if trainScore != 1.0 {
		t.Fatalf("expected train F1 = 1.0, got %v", trainScore)
	}
}

func TestBlockBoundsLastBlockAbsorbsRemainder(t *testing.T) {
	start, end := blockBounds(2, 3, 3, 11)
	if start != 6 || end != 11 {
		t.Fatalf("expected last block [6,11), got [%d,%d)", start, end)
	}
	start, end = blockBounds(0, 3, 3, 11)
	if start != 0 || end != 3 {
		t.Fatalf("expected first block [0,3), got [%d,%d)", start, end)
	}
}

func TestValidRangeFloorDivisionLastAbsorbsRemainder(t *testing.T) {
	// 10 validation points over 3 threads: blockSize=3, worker 2 (last)
	// absorbs the remainder point, so no point is dropped.
	s0, e0 := validRange(0, 3, 10)
	s1, e1 := validRange(1, 3, 10)
	s2, e2 := validRange(2, 3, 10)
	if s0 != 0 || e0 != 3 || s1 != 3 || e1 != 6 || s2 != 6 || e2 != 10 {
		t.Fatalf("unexpected validation ranges: [%d,%d) [%d,%d) [%d,%d)", s0, e0, s1, e1, s2, e2)
	}
}
