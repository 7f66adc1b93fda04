package config

import (
	"os"
	"testing"
)

func TestDefaults_Embedded(t *testing.T) {
	d := Defaults()

	if d.Matcher.Threshold != 0.45 {
		t.Errorf("expected default threshold 0.45, got %v", d.Matcher.Threshold)
	}
	if d.Pipeline.Scale != 0.25 {
		t.Errorf("expected default scale 0.25, got %v", d.Pipeline.Scale)
	}
	if d.Pipeline.ProcessEvery != 2 {
		t.Errorf("expected default process_every 2, got %d", d.Pipeline.ProcessEvery)
	}
	if d.Pipeline.MaxReadRetries != 0 {
		t.Errorf("expected default max_read_retries 0, got %d", d.Pipeline.MaxReadRetries)
	}
	if d.Enrollment.Path != "encodings.gob" {
		t.Errorf("expected default enrollment path 'encodings.gob', got '%s'", d.Enrollment.Path)
	}
}

func TestLoad_EmptyEnvVars(t *testing.T) {
	for _, key := range []string{"MATCH_THRESHOLD", "DETECT_SCALE", "PROCESS_EVERY", "DATABASE_BACKEND", "MQTT_BROKER"} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Matcher.Threshold != 0.45 {
		t.Errorf("expected threshold 0.45, got %v", cfg.Matcher.Threshold)
	}
	if cfg.Database.Backend != "postgres" {
		t.Errorf("expected backend 'postgres', got '%s'", cfg.Database.Backend)
	}
	if cfg.Alert.MQTTBroker != "" {
		t.Errorf("expected MQTT disabled by default, got '%s'", cfg.Alert.MQTTBroker)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.6")
	t.Setenv("DETECT_SCALE", "0.5")
	t.Setenv("PROCESS_EVERY", "1")
	t.Setenv("DATABASE_BACKEND", "mariadb")
	t.Setenv("DATABASE_URL", "att:att@tcp(localhost:3306)/attendance")
	t.Setenv("MQTT_BROKER", "localhost:1883")

	cfg := Load()

	if cfg.Matcher.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", cfg.Matcher.Threshold)
	}
	if cfg.Pipeline.Scale != 0.5 {
		t.Errorf("expected scale 0.5, got %v", cfg.Pipeline.Scale)
	}
	if cfg.Pipeline.ProcessEvery != 1 {
		t.Errorf("expected process_every 1, got %d", cfg.Pipeline.ProcessEvery)
	}
	if cfg.Database.Backend != "mariadb" {
		t.Errorf("expected backend 'mariadb', got '%s'", cfg.Database.Backend)
	}
	if cfg.Database.URL != "att:att@tcp(localhost:3306)/attendance" {
		t.Errorf("unexpected database URL '%s'", cfg.Database.URL)
	}
	if cfg.Alert.MQTTBroker != "localhost:1883" {
		t.Errorf("expected broker 'localhost:1883', got '%s'", cfg.Alert.MQTTBroker)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric threshold", "MATCH_THRESHOLD", "strict"},
		{"negative threshold", "MATCH_THRESHOLD", "-0.1"},
		{"zero scale", "DETECT_SCALE", "0"},
		{"negative process every", "PROCESS_EVERY", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := Load()

			if cfg.Matcher.Threshold != 0.45 {
				t.Errorf("expected threshold fallback 0.45, got %v", cfg.Matcher.Threshold)
			}
			if cfg.Pipeline.Scale != 0.25 {
				t.Errorf("expected scale fallback 0.25, got %v", cfg.Pipeline.Scale)
			}
			if cfg.Pipeline.ProcessEvery != 2 {
				t.Errorf("expected process_every fallback 2, got %d", cfg.Pipeline.ProcessEvery)
			}
		})
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"unset", "", nil},
		{"single", "https://attendance.example.com", []string{"https://attendance.example.com"}},
		{"trimmed with blanks", " https://a.example.com , ,https://b.example.com", []string{"https://a.example.com", "https://b.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEB_ALLOWED_ORIGINS", tt.value)

			got := Load().Web.AllowedOrigins

			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("origin %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
