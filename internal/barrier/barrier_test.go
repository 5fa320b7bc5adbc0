package barrier

import (
	"sync"
	"sync/atomic"
	"testing"
)

func testBarrierDiscipline(t *testing.T, b Barrier, workers int) {
	rounds := 200
	var roundCounter atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				b.Wait()
				roundCounter.Add(1)
				b.Wait()
			}
		}()
	}
	wg.Wait()
	want := int64(workers * rounds)
	if got := roundCounter.Load(); got != want {
		t.Fatalf("expected %d total increments, got %d", want, got)
	}
}

func TestBlockingBarrierDiscipline(t *testing.T) {
	testBarrierDiscipline(t, NewBlocking(8), 8)
}

func TestSpinBarrierDiscipline(t *testing.T) {
	testBarrierDiscipline(t, NewSpin(8), 8)
}

// TestBlockingBarrierNoEarlyRelease verifies that k*T + r arrivals
// (r < T) never unblock any caller: with T=4 and 3 arrivals parked,
// a 4th must be the one to release all of them simultaneously.
func TestBlockingBarrierNoEarlyRelease(t *testing.T) {
	b := NewBlocking(4)
	released := make(chan int, 4)
	for i := 0; i < 3; i++ {
		go func(id int) {
			b.Wait()
			released <- id
		}(i)
	}
	select {
	case <-released:
		t.Fatal("barrier released a caller before T arrivals")
	default:
	}
	go func() { b.Wait(); released <- 3 }()
	got := map[int]bool{}
	for i := 0; i < 4; i++ {
		got[<-released] = true
	}
	if len(got) != 4 {
		t.Fatalf("expected all 4 callers released, got %v", got)
	}
}
