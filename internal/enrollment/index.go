// Package enrollment holds the read-only set of enrolled face embeddings.
package enrollment

import (
	"errors"
	"fmt"
)

// ErrIndexNotBuilt is returned when the persisted enrollment store is missing or malformed.
// The training tool has not been run (or its output is unusable) and the pipeline must not start.
var ErrIndexNotBuilt = errors.New("enrollment index not built")

// Record is a single training sample: one embedding for one identity label.
type Record struct {
	Label     string
	Embedding []float64
}

// Index is an ordered, read-only collection of records. Insertion order is stable
// and is the tie-break order for matching.
type Index struct {
	records []Record
	dim     int
}

// NewIndex validates records and builds an Index. All embeddings must share one
// non-zero dimension and every record needs a label.
func NewIndex(records []Record) (*Index, error) {
	idx := &Index{records: make([]Record, 0, len(records))}
	for i, rec := range records {
		if rec.Label == "" {
			return nil, fmt.Errorf("%w: record %d has no label", ErrIndexNotBuilt, i)
		}
		if len(rec.Embedding) == 0 {
			return nil, fmt.Errorf("%w: record %d (%s) has an empty embedding", ErrIndexNotBuilt, i, rec.Label)
		}
		if idx.dim == 0 {
			idx.dim = len(rec.Embedding)
		} else if len(rec.Embedding) != idx.dim {
			return nil, fmt.Errorf("%w: record %d (%s) has dimension %d, expected %d",
				ErrIndexNotBuilt, i, rec.Label, len(rec.Embedding), idx.dim)
		}
		emb := make([]float64, len(rec.Embedding))
		copy(emb, rec.Embedding)
		idx.records = append(idx.records, Record{Label: rec.Label, Embedding: emb})
	}
	return idx, nil
}

// Len returns the number of records.
func (i *Index) Len() int {
	return len(i.records)
}

// Dim returns the embedding dimension, or 0 for an empty index.
func (i *Index) Dim() int {
	return i.dim
}

// At returns the record at position n in insertion order.
// The returned embedding must not be modified.
func (i *Index) At(n int) Record {
	return i.records[n]
}

// Labels returns the distinct labels in first-seen order.
func (i *Index) Labels() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, rec := range i.records {
		if _, ok := seen[rec.Label]; ok {
			continue
		}
		seen[rec.Label] = struct{}{}
		labels = append(labels, rec.Label)
	}
	return labels
}

// SamplesPerLabel counts records per label.
func (i *Index) SamplesPerLabel() map[string]int {
	counts := make(map[string]int)
	for _, rec := range i.records {
		counts[rec.Label]++
	}
	return counts
}
