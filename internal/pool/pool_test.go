package pool

import (
	"testing"

	"github.com/launix-de/parasgd/internal/topology"
)

func TestRunOnAllCollectsPerWorkerResults(t *testing.T) {
	p := New(4, topology.New(4))
	defer p.Shutdown()
	results := p.RunOnAll(func(id int) any { return id * 2 })
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for id, r := range results {
		if r.(int) != id*2 {
			t.Fatalf("worker %d returned %v, want %d", id, r, id*2)
		}
	}
}

func TestRunOnAllCanBeCalledRepeatedly(t *testing.T) {
	p := New(3, topology.New(3))
	defer p.Shutdown()
	for round := 0; round < 50; round++ {
		results := p.RunOnAll(func(id int) any { return round })
		for _, r := range results {
			if r.(int) != round {
				t.Fatalf("round %d: stale result %v", round, r)
			}
		}
	}
}

func TestRunOnAllPropagatesWorkerPanic(t *testing.T) {
	p := New(2, topology.New(2))
	defer p.Shutdown()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected RunOnAll to re-panic on worker failure")
		}
		if _, ok := r.(PanicResult); !ok {
			t.Fatalf("expected PanicResult, got %T", r)
		}
	}()
	p.RunOnAll(func(id int) any {
		if id == 0 {
			panic("boom")
		}
		return nil
	})
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := New(2, topology.New(2))
	p.Shutdown()
	p.Shutdown()
}
