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

// Package pool is the fixed pinned-worker pool: T goroutines, each
// locked to an OS thread and pinned via topology.PinCurrentThread,
// looping
// (wait for task -> run it -> publish result). RunOnAll publishes one
// task to every worker and blocks until all have published a result,
// the "run on all workers, collect per-worker results" contract spec
// §4.4 describes. Task dispatch/collection is modeled with channels
// (an idiomatic stand-in for the spec's ready/finished signal pair)
// rather than the teacher's one-shot sync.WaitGroup fan-out
// (storage/compute.go), because a WaitGroup cannot be reused safely
// for thousands of task dispatches the way a persistent worker needs.
package pool

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/dc0d/onexit"
	"github.com/jtolds/gls"
	"golang.org/x/sync/semaphore"

	"github.com/launix-de/parasgd/internal/topology"
)

// Task is a unit of work dispatched to every worker; it receives the
// dense worker id [0, T) and returns an opaque per-worker result.
type Task func(workerID int) any

// PanicResult wraps a recovered worker panic so RunOnAll's caller can
// distinguish a fatal worker failure from a legitimate nil result.
type PanicResult struct {
	Value any
	Stack string
}

type job struct {
	fn Task
}

// Pool is a fixed set of T pinned worker goroutines.
type Pool struct {
	topo    *topology.Service
	size    int
	taskCh  []chan job
	resCh   []chan any
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// New constructs a pool of `size` workers pinned via topo, and
// registers a shutdown hook so an interrupted process still joins its
// worker threads before exiting.
func New(size int, topo *topology.Service) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{topo: topo, size: size}
	p.taskCh = make([]chan job, size)
	p.resCh = make([]chan any, size)

	// pin calls at startup go through a semaphore, in the shape of the
	// teacher's shard fan-out throttle (storage/partition.go); its
	// weight equals the pool size, so no worker waits for another.
	sem := semaphore.NewWeighted(int64(size))

	for i := 0; i < size; i++ {
		p.taskCh[i] = make(chan job)
		p.resCh[i] = make(chan any, 1)
		id := i
		p.wg.Add(1)
		gls.Go(func() {
			defer p.wg.Done()
			sem.Acquire(context.Background(), 1)
			topo.PinCurrentThread(id)
			sem.Release(1)
			for j := range p.taskCh[id] {
				p.resCh[id] <- runGuarded(j.fn, id)
			}
		})
	}

	onexit.Register(func() { p.Shutdown() })
	return p
}

func runGuarded(fn Task, id int) (result any) {
	defer func() {
		if r := recover(); r != nil {
			result = PanicResult{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(id)
}

// Size reports the number of workers in the pool.
func (p *Pool) Size() int { return p.size }

// RunOnAll publishes fn to every worker and blocks until every worker
// has returned a result, then returns the per-worker results in
// worker-id order. If any worker panicked, RunOnAll re-panics with the
// first PanicResult observed -- worker-raised fatals propagate by
// terminating the caller, since other workers may still hold
// references to shared, now-corrupted state (spec §8).
func (p *Pool) RunOnAll(fn Task) []any {
	for i := 0; i < p.size; i++ {
		p.taskCh[i] <- job{fn: fn}
	}
	results := make([]any, p.size)
	var failure *PanicResult
	for i := 0; i < p.size; i++ {
		results[i] = <-p.resCh[i]
		if pr, ok := results[i].(PanicResult); ok && failure == nil {
			failure = &pr
		}
	}
	if failure != nil {
		panic(*failure)
	}
	return results
}

// Shutdown stops all workers and joins their goroutines. Safe to call
// more than once.
func (p *Pool) Shutdown() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for i := 0; i < p.size; i++ {
		close(p.taskCh[i])
	}
	p.wg.Wait()
}
