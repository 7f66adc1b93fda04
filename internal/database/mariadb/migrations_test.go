package mariadb

import "testing"

func TestStatements(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"single without trailing newline", "CREATE TABLE a (id INT);", 1},
		{"two statements", "CREATE TABLE a (id INT);\n\nCREATE TABLE b (id INT);\n", 2},
		{"whitespace only", "  \n\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statements(tt.content)
			if len(got) != tt.want {
				t.Errorf("statements(%q) returned %d statements, want %d: %q", tt.content, len(got), tt.want, got)
			}
			for _, stmt := range got {
				if stmt[len(stmt)-1] == ';' {
					t.Errorf("statement %q still ends with a semicolon", stmt)
				}
			}
		})
	}
}

func TestEmbeddedMigrationsSplit(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/001_students_attendance.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	if got := statements(string(content)); len(got) != 2 {
		t.Errorf("expected 2 statements in 001 migration, got %d", len(got))
	}
}
