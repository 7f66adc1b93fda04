package postgres

import (
	"math"
	"testing"
)

func TestVectorConversion(t *testing.T) {
	tests := []struct {
		name  string
		in    []float64
		exact bool
	}{
		{name: "representable", in: []float64{0.5, 0.25, -1, 0.125}, exact: true},
		{name: "rounded", in: []float64{0.1, 0.3, 1.0 / 3, -0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := toFloat64(toFloat32(tt.in))
			if len(out) != len(tt.in) {
				t.Fatalf("expected %d components, got %d", len(tt.in), len(out))
			}
			for i, x := range tt.in {
				if tt.exact && out[i] != x {
					t.Errorf("component %d: expected %v, got %v", i, x, out[i])
				}
				if diff := math.Abs(out[i] - x); diff > 1e-7 {
					t.Errorf("component %d: %v came back as %v, off by %g", i, x, out[i], diff)
				}
			}
		})
	}
}
