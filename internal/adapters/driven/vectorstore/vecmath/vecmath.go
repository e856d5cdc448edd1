// Package vecmath holds the similarity arithmetic shared by the vector
// index backends.
package vecmath

import (
	"container/heap"
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Zero vectors and vectors of different length score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK keeps the k best scored chunks seen so far.
type TopK struct {
	k     int
	items scoredHeap
}

// NewTopK creates a collector for the k best chunks.
func NewTopK(k int) *TopK {
	return &TopK{k: k}
}

// Push offers a candidate.
func (t *TopK) Push(c domain.ScoredChunk) {
	if t.k <= 0 {
		return
	}
	if len(t.items) < t.k {
		heap.Push(&t.items, c)
		return
	}
	if better(c, t.items[0]) {
		t.items[0] = c
		heap.Fix(&t.items, 0)
	}
}

// Results returns the collected chunks, best first. Ties are broken by key
// so the order is deterministic.
func (t *TopK) Results() []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

func better(a, b domain.ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Chunk.Key() < b.Chunk.Key()
}

// scoredHeap is a min-heap on score: the root is the weakest kept chunk.
type scoredHeap []domain.ScoredChunk

func (h scoredHeap) Len() int           { return len(h) }
func (h scoredHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)        { *h = append(*h, x.(domain.ScoredChunk)) }

func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
