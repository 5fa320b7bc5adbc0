package scheme

import (
	"math"
	"testing"
)

func TestHogWildSharesSingleReplica(t *testing.T) {
	h := NewHogWild(4, 1, ModelArgs{Mu: 0.1})
	v0 := h.ModelVector(0)
	v1 := h.ModelVector(1)
	v0.W[0] = 42
	if v1.W[0] != 42 {
		t.Fatal("all HogWild workers must share one ModelVector")
	}
	if h.ReplicaCount() != 1 {
		t.Fatalf("expected 1 replica, got %d", h.ReplicaCount())
	}
}

func TestHogWildCloneSharesState(t *testing.T) {
	h := NewHogWild(2, 1, ModelArgs{})
	clone := h.Clone()
	h.ModelVector(0).W[0] = 7
	if clone.ModelVector(0).W[0] != 7 {
		t.Fatal("Clone must share the underlying weights")
	}
}

func TestClusterCoreConfigError(t *testing.T) {
	physicalCoresFn = func() int { return 8 }
	defer func() { physicalCoresFn = defaultPhysicalCores }()

	_, err := NewHogWildPP(5, 2, 1, 1e-9, 4, ModelArgs{})
	if err == nil {
		t.Fatal("expected ConfigError when phy mod clusterSize != 0")
	}
	if _, ok := err.(ConfigError); !ok {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestHogWildPPClusterPartitioning(t *testing.T) {
	physicalCoresFn = func() int { return 4 }
	defer func() { physicalCoresFn = defaultPhysicalCores }()

	h, err := NewHogWildPP(4, 2, 1, 1e-9, 3, ModelArgs{Mu: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ReplicaCount() != 2 {
		t.Fatalf("expected 2 clusters, got %d", h.ReplicaCount())
	}
	if h.ReplicaOf(0) != 0 || h.ReplicaOf(1) != 0 || h.ReplicaOf(2) != 1 || h.ReplicaOf(3) != 1 {
		t.Fatal("workers not partitioned into contiguous clusters of size 2")
	}
}

func TestHogWildPPRingSyncConverges(t *testing.T) {
	physicalCoresFn = func() int { return 4 }
	defer func() { physicalCoresFn = defaultPhysicalCores }()

	h, err := NewHogWildPP(4, 2, 1, 1e-9, 1, ModelArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.core.w[0][0] = 10
	h.core.w[1][0] = 0
	h.core.wOld[0][0] = 10
	h.core.wOld[1][0] = 0

	// drive many post-update ticks through the ring so ownership
	// cycles through every worker and the two clusters mix repeatedly.
	step := 0.1
	for round := 0; round < 2000; round++ {
		for worker := 0; worker < 4; worker++ {
			h.PostUpdate(worker, step)
		}
	}
	avg := (10.0 + 0.0) / 2
	if math.Abs(h.core.w[0][0]-avg) > 1e-3 || math.Abs(h.core.w[1][0]-avg) > 1e-3 {
		t.Fatalf("expected convergence to average %.4f, got w0=%.4f w1=%.4f", avg, h.core.w[0][0], h.core.w[1][0])
	}
}

func TestMyWildAveragesToMidpoint(t *testing.T) {
	physicalCoresFn = func() int { return 2 }
	defer func() { physicalCoresFn = defaultPhysicalCores }()

	m, err := NewMyWild(2, 1, 1, 1, ModelArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.core.w[0][0] = 4
	m.core.w[1][0] = 10
	m.PostUpdate(0, 1.0)
	if m.core.w[0][0] != 7 || m.core.w[1][0] != 7 {
		t.Fatalf("expected midpoint 7, got w0=%v w1=%v", m.core.w[0][0], m.core.w[1][0])
	}
}

func TestBisectBetaDegenerateCases(t *testing.T) {
	if beta, _ := bisectBeta(0); beta != 0 {
		t.Fatalf("expected beta=0 for C=0, got %v", beta)
	}
	if beta, _ := bisectBeta(1); beta != 0.5 {
		t.Fatalf("expected beta=0.5 for C=1, got %v", beta)
	}
}

func TestBisectBetaSolvesEquation(t *testing.T) {
	beta, _ := bisectBeta(3)
	residual := math.Pow(beta, 3) + beta - 1
	if math.Abs(residual) > 1e-2 {
		t.Fatalf("beta=%v does not approximately solve beta^3+beta-1=0 (residual %v)", beta, residual)
	}
}

func TestModelVectorFinite(t *testing.T) {
	v := &ModelVector{W: []float64{1, 2, 3}}
	if !v.Finite() {
		t.Fatal("expected finite")
	}
	v.W[1] = math.NaN()
	if v.Finite() {
		t.Fatal("expected non-finite after NaN injection")
	}
}
