package matcher

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

// clusteredRecords builds labels whose samples sit in well separated clusters.
func clusteredRecords(rng *rand.Rand, labels, perLabel, dim int) []enrollment.Record {
	var records []enrollment.Record
	for l := range labels {
		center := make([]float64, dim)
		center[l%dim] = float64(l/dim+1) * 5
		for range perLabel {
			emb := make([]float64, dim)
			for j := range emb {
				emb[j] = center[j] + (rng.Float64()-0.5)*0.1
			}
			records = append(records, enrollment.Record{Label: string(rune('a' + l)), Embedding: emb})
		}
	}
	return records
}

func TestHNSW_EmptyIndex(t *testing.T) {
	m := NewHNSW(mustIndex(t, nil), 0.45, 4)
	if res := m.Match([]float64{1, 2, 3}); res.Known() {
		t.Errorf("expected Unknown from empty index, got %q", res.Label)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty graph, got %d nodes", m.Len())
	}

	if res := NewHNSW(nil, 0.45, 4).Match([]float64{1}); res.Known() {
		t.Errorf("expected Unknown from nil index, got %q", res.Label)
	}
}

func TestHNSW_AgreesWithLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	records := clusteredRecords(rng, 12, 5, 16)
	idx := mustIndex(t, records)

	linear := NewLinear(idx, 0.45)
	approx := NewHNSW(idx, 0.45, 8)

	if approx.Len() != len(records) {
		t.Fatalf("graph has %d nodes, want %d", approx.Len(), len(records))
	}

	for i, rec := range records {
		q := make([]float64, len(rec.Embedding))
		for j := range q {
			q[j] = rec.Embedding[j] + 0.001
		}

		want := linear.Match(q)
		got := approx.Match(q)
		if got.Label != want.Label {
			t.Errorf("record %d: HNSW matched %q, linear matched %q", i, got.Label, want.Label)
		}
		if math.Abs(got.Distance-want.Distance) > 1e-9 {
			t.Errorf("record %d: HNSW distance %v, linear %v", i, got.Distance, want.Distance)
		}
	}
}

func TestHNSW_SmallIndexScansExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	idx := mustIndex(t, clusteredRecords(rng, 4, 5, 8))
	m := NewHNSW(idx, 0.45, 2)
	if m.Len() != 0 {
		t.Errorf("index below %d records built a graph of %d nodes", ExactScanLimit, m.Len())
	}
}

func TestHNSW_GraphAgreesWithLinear(t *testing.T) {
	tests := []struct {
		name       string
		seed       int64
		labels     int
		candidates int
	}{
		{name: "few candidates", seed: 7, labels: 200, candidates: 1},
		{name: "default candidates", seed: 11, labels: 300, candidates: DefaultCandidates},
		{name: "candidates above size", seed: 13, labels: 20, candidates: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(tt.seed))
			records := clusteredRecords(rng, tt.labels, 1, 16)
			idx := mustIndex(t, records)

			linear := NewLinear(idx, 0.45)
			approx := newHNSW(idx, 0.45, tt.candidates, 0)
			if approx.Len() != len(records) {
				t.Fatalf("graph has %d nodes, want %d", approx.Len(), len(records))
			}

			for i, rec := range records {
				q := make([]float64, len(rec.Embedding))
				for j := range q {
					q[j] = rec.Embedding[j] + 0.001
				}

				want := linear.Match(q)
				got := approx.Match(q)
				if got != want {
					t.Errorf("record %d: HNSW %+v, linear %+v", i, got, want)
				}
			}
		})
	}
}

func TestHNSW_RepeatedMatchesAreIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	records := clusteredRecords(rng, 150, 1, 16)
	idx := mustIndex(t, records)

	first := newHNSW(idx, 0.45, 4, 0)
	second := newHNSW(idx, 0.45, 4, 0)

	queries := [][]float64{records[0].Embedding, records[75].Embedding, make([]float64, 16)}
	for i, q := range queries {
		want := first.Match(q)
		for range 5 {
			if got := first.Match(q); got != want {
				t.Errorf("query %d: repeated match %+v, first %+v", i, got, want)
			}
			if got := second.Match(q); got != want {
				t.Errorf("query %d: rebuilt graph matched %+v, first %+v", i, got, want)
			}
		}
	}
}

func TestHNSW_GraphMissFallsBackToScan(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	idx := mustIndex(t, clusteredRecords(rng, 40, 1, 8))
	linear := NewLinear(idx, 0.45)
	m := newHNSW(idx, 0.45, 2, 0)

	q := make([]float64, 8)
	for j := range q {
		q[j] = -100
	}
	got, want := m.Match(q), linear.Match(q)
	if got.Known() {
		t.Errorf("far query matched %q, want Unknown", got.Label)
	}
	if got.Distance != want.Distance {
		t.Errorf("far query distance %v, want exact nearest %v", got.Distance, want.Distance)
	}

	if res := m.Match([]float64{0, 0, 0}); res.Known() || !math.IsInf(res.Distance, 1) {
		t.Errorf("expected Unknown with +Inf distance on graph path, got %+v", res)
	}
}

func TestHNSW_FarQueryIsUnknown(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	idx := mustIndex(t, clusteredRecords(rng, 4, 3, 8))
	m := NewHNSW(idx, 0.45, 8)

	q := make([]float64, 8)
	for j := range q {
		q[j] = -100
	}
	if res := m.Match(q); res.Known() {
		t.Errorf("far query matched %q, want Unknown", res.Label)
	}
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	idx := mustIndex(t, []enrollment.Record{{Label: "S01", Embedding: []float64{0, 0}}})
	res := NewHNSW(idx, 0.45, 4).Match([]float64{0, 0, 0})
	if res.Known() || !math.IsInf(res.Distance, 1) {
		t.Errorf("expected Unknown with +Inf distance, got %+v", res)
	}
}

func TestHNSW_ImplementsMatcher(t *testing.T) {
	var _ Matcher = (*HNSW)(nil)
	var _ Matcher = (*Linear)(nil)
}
