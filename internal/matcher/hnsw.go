package matcher

import (
	"math"
	"math/rand"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

// HNSW graph parameters for face embeddings (128-512 dims).
const (
	hnswMaxNeighbors = 16
	hnswEfSearch     = 64
	hnswSeed         = 42

	// DefaultCandidates is how many graph neighbors are re-ranked exactly.
	DefaultCandidates = 8

	// ExactScanLimit is the index size below which HNSW scans every record.
	ExactScanLimit = 1024
)

// HNSW is a nearest-neighbor matcher backed by a navigable small world graph.
//
// Indexes smaller than ExactScanLimit are scanned exhaustively. Larger indexes
// re-rank graph candidates with exact distances, and a query whose candidates
// all fall outside the threshold is rescanned exhaustively, so an Unknown from
// HNSW is always the same Unknown that Linear would return. The graph itself
// is built over Go maps and its traversal order is not reproducible, so a
// Known result is only guaranteed to equal Linear's when at most one record
// lies within the threshold of the query.
type HNSW struct {
	index      *enrollment.Index
	exact      *Linear
	graph      *hnsw.Graph[int]
	candidates int
	exactBelow int
}

// NewHNSW builds the graph from index. Node keys are insertion positions.
func NewHNSW(index *enrollment.Index, threshold float64, candidates int) *HNSW {
	return newHNSW(index, threshold, candidates, ExactScanLimit)
}

func newHNSW(index *enrollment.Index, threshold float64, candidates, exactBelow int) *HNSW {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}

	m := &HNSW{
		index:      index,
		exact:      NewLinear(index, threshold),
		candidates: candidates,
		exactBelow: exactBelow,
	}
	if index == nil || index.Len() == 0 || index.Len() < exactBelow {
		return m
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.EfSearch = max(hnswEfSearch, 4*candidates)
	g.Distance = hnsw.EuclideanDistance
	g.Rng = rand.New(rand.NewSource(hnswSeed)) //nolint:gosec // level sampling, not security

	for i := 0; i < index.Len(); i++ {
		g.Add(hnsw.MakeNode(i, toFloat32(index.At(i).Embedding)))
	}
	m.graph = g
	return m
}

// Match searches the graph and applies the same acceptance rule as Linear.
func (m *HNSW) Match(embedding []float64) Result {
	if m.graph == nil {
		return m.exact.Match(embedding)
	}
	if len(embedding) != m.index.Dim() {
		return Result{Distance: math.Inf(1)}
	}

	k := min(m.candidates, m.index.Len())
	neighbors := m.graph.Search(toFloat32(embedding), k)

	best := -1
	bestDist := math.Inf(1)
	for _, n := range neighbors {
		d := Distance(embedding, m.index.At(n.Key).Embedding)
		if d < bestDist || (d == bestDist && n.Key < best) {
			best, bestDist = n.Key, d
		}
	}

	if best < 0 || bestDist > m.exact.Threshold() {
		return m.exact.Match(embedding)
	}
	return Result{Label: m.index.At(best).Label, Distance: bestDist}
}

// Len returns the number of nodes in the graph. It is zero when the index is
// scanned exhaustively.
func (m *HNSW) Len() int {
	if m.graph == nil {
		return 0
	}
	return m.graph.Len()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
