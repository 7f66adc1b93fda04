package enrollment

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// storeFile is the on-disk layout produced by the training tool: two parallel
// sequences, one label per embedding.
type storeFile struct {
	Labels    []string
	Encodings [][]float64
}

// LoadFile reads a gob-encoded enrollment store. Any problem with the file is
// reported as ErrIndexNotBuilt.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist, run training first", ErrIndexNotBuilt, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIndexNotBuilt, path, err)
	}

	var sf storeFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrIndexNotBuilt, path, err)
	}

	if len(sf.Labels) != len(sf.Encodings) {
		return nil, fmt.Errorf("%w: %s has %d labels but %d encodings",
			ErrIndexNotBuilt, path, len(sf.Labels), len(sf.Encodings))
	}

	records := make([]Record, len(sf.Labels))
	for i := range sf.Labels {
		records[i] = Record{Label: sf.Labels[i], Embedding: sf.Encodings[i]}
	}
	return NewIndex(records)
}

// SaveFile writes records in the same layout LoadFile reads.
func SaveFile(path string, records []Record) error {
	sf := storeFile{
		Labels:    make([]string, len(records)),
		Encodings: make([][]float64, len(records)),
	}
	for i, rec := range records {
		sf.Labels[i] = rec.Label
		sf.Encodings[i] = rec.Embedding
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sf); err != nil {
		return fmt.Errorf("failed to encode enrollment store: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write enrollment store: %w", err)
	}
	return nil
}

// Records returns a copy of every record in insertion order.
func (i *Index) Records() []Record {
	out := make([]Record, len(i.records))
	copy(out, i.records)
	return out
}
