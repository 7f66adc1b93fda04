package facematch

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := map[string]string{
		"S01":         "S01",
		"Jiří Novák":  "Jiri Novak",
		"José Muñoz":  "Jose Munoz",
		"Łukasz":      "Łukasz", // stroke is not a combining mark
		"":            "",
	}

	for in, want := range tests {
		if got := RemoveDiacritics(in); got != want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOverlayText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ascii roll", "S01", "S01"},
		{"accented label", "Zoë-22", "Zoe-22"},
		{"tab becomes space", "A\tB", "A B"},
		{"non latin", "学生", "??"},
		{"surviving non ascii", "Łukasz", "?ukasz"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlayText(tt.input); got != tt.want {
				t.Errorf("OverlayText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
