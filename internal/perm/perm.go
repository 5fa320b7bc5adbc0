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

// Package perm implements the block-permutation source: a lock-free,
// append-only linked list of shuffled permutations shared by all
// workers. Its CAS-install-and-follow-the-winner shape is grounded on
// the teacher's NonLockingReadMap bitmap (atomic.Pointer, grown by a
// compare-and-swap retry loop with no locks on the read path).
package perm

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// Node is a frozen permutation of length n plus an atomic, append-only
// link to the next node in the chain. Once set, next is never
// reassigned -- losers of the CAS race simply follow the winner.
type Node struct {
	values []int
	next   atomic.Pointer[Node]
}

func newNode(n int) *Node {
	values := make([]int, n)
	for i := range values {
		values[i] = i
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(n, func(i, j int) { values[i], values[j] = values[j], values[i] })
	return &Node{values: values}
}

// At returns the permuted value at position i: a bijection of [0, n).
func (p *Node) At(i int) int { return p.values[i] }

// Len reports the permutation length.
func (p *Node) Len() int { return len(p.values) }

// GenNext returns the chain's next node, lazily constructing and
// CAS-installing one if it does not exist yet. Exactly one caller's
// candidate wins the install; every other concurrent caller observes
// and returns the winner, so each chain position is uniquely installed
// even though any number of workers may race to extend it.
func (p *Node) GenNext() *Node {
	if existing := p.next.Load(); existing != nil {
		return existing
	}
	candidate := newNode(len(p.values))
	if p.next.CompareAndSwap(nil, candidate) {
		return candidate
	}
	return p.next.Load()
}

// Source owns the anchor node of a permutation chain of length k (the
// number of model replicas/clusters for the cluster-permutation use,
// or the block count for a per-worker block-order chain).
type Source struct {
	anchor *Node
}

// NewSource builds a fresh chain anchored at a random permutation of
// length k.
func NewSource(k int) *Source {
	return &Source{anchor: newNode(k)}
}

// Anchor returns the first node in the chain (epoch 0's permutation).
func (s *Source) Anchor() *Node { return s.anchor }
