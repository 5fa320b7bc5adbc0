package perm

import "testing"

func isBijection(values []int) bool {
	n := len(values)
	seen := make([]bool, n)
	for _, v := range values {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func TestNodeIsBijection(t *testing.T) {
	n := newNode(50)
	vals := make([]int, 50)
	for i := range vals {
		vals[i] = n.At(i)
	}
	if !isBijection(vals) {
		t.Fatalf("permutation is not a bijection: %v", vals)
	}
}

func TestGenNextIsStableAcrossCallers(t *testing.T) {
	src := NewSource(20)
	a := src.Anchor()
	n1 := a.GenNext()
	n2 := a.GenNext()
	if n1 != n2 {
		t.Fatal("GenNext must return the same installed node on repeated calls")
	}
}

func TestGenNextRaceInstallsExactlyOneWinner(t *testing.T) {
	src := NewSource(30)
	a := src.Anchor()
	results := make(chan *Node, 16)
	for i := 0; i < 16; i++ {
		go func() { results <- a.GenNext() }()
	}
	first := <-results
	for i := 1; i < 16; i++ {
		if got := <-results; got != first {
			t.Fatal("concurrent GenNext callers must all observe the single installed winner")
		}
	}
}

func TestChainNodesAreIndependentBijections(t *testing.T) {
	src := NewSource(40)
	a := src.Anchor()
	b := a.GenNext()
	c := b.GenNext()
	for _, node := range []*Node{a, b, c} {
		vals := make([]int, node.Len())
		for i := range vals {
			vals[i] = node.At(i)
		}
		if !isBijection(vals) {
			t.Fatalf("chain node is not a bijection: %v", vals)
		}
	}
}
