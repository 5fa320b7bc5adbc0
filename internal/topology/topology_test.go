package topology

import "testing"

func TestNodeOfWorkerDense(t *testing.T) {
	s := &Service{nodes: 2, workers: 8}
	seen := map[int]bool{}
	for id := 0; id < 8; id++ {
		n := s.NodeOfWorker(id)
		if n < 0 || n >= 2 {
			t.Fatalf("worker %d mapped to out-of-range node %d", id, n)
		}
		seen[n] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected workers spread across both nodes, got %v", seen)
	}
}

func TestNodeOfWorkerSingleNode(t *testing.T) {
	s := &Service{nodes: 1, workers: 4}
	for id := 0; id < 4; id++ {
		if n := s.NodeOfWorker(id); n != 0 {
			t.Fatalf("single-node topology must map everything to node 0, got %d", n)
		}
	}
}

func TestNumaNodeCountDegradesToOne(t *testing.T) {
	s := &Service{nodes: 0, workers: 1}
	if got := s.NumaNodeCount(); got != 1 {
		t.Fatalf("expected degrade to 1 node, got %d", got)
	}
}

func TestPinCurrentThreadDoesNotError(t *testing.T) {
	s := New(4)
	if err := s.PinCurrentThread(0); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
}
