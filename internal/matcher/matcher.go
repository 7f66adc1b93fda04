// Package matcher resolves a face embedding to an enrolled identity label.
package matcher

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

// DefaultThreshold is the maximum Euclidean distance accepted as a match.
const DefaultThreshold = 0.45

// Result is the outcome of one match. An empty Label means Unknown.
type Result struct {
	Label    string
	Distance float64
}

// Known reports whether the face was identified.
func (r Result) Known() bool {
	return r.Label != ""
}

// Matcher classifies a query embedding. Implementations must be deterministic for
// identical inputs and index contents, and must return Unknown (never an error)
// for an empty index.
type Matcher interface {
	Match(embedding []float64) Result
}

// Distance returns the Euclidean distance between a and b, or +Inf when the
// dimensions differ.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// Linear is an exhaustive nearest-neighbor matcher, O(N·D) per query.
type Linear struct {
	index     *enrollment.Index
	threshold float64
}

// NewLinear creates a Linear matcher. A nil index behaves as empty.
// A non-positive threshold falls back to DefaultThreshold.
func NewLinear(index *enrollment.Index, threshold float64) *Linear {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Linear{index: index, threshold: threshold}
}

// Match scans every record in insertion order. The first record with the
// smallest distance wins; it is accepted when its distance is within threshold.
func (m *Linear) Match(embedding []float64) Result {
	best := -1
	bestDist := math.Inf(1)

	if m.index != nil {
		for i := 0; i < m.index.Len(); i++ {
			d := Distance(embedding, m.index.At(i).Embedding)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
	}

	if best < 0 || bestDist > m.threshold {
		return Result{Distance: bestDist}
	}
	return Result{Label: m.index.At(best).Label, Distance: bestDist}
}

// Threshold returns the acceptance threshold in use.
func (m *Linear) Threshold() float64 {
	return m.threshold
}
