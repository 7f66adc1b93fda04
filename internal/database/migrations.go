package database

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migration is one embedded SQL file. Version is the file name.
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations reads every .sql file in dir, ordered by name.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: e.Name(), SQL: string(content)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending drops migrations whose version is in applied.
func Pending(all []Migration, applied []string) []Migration {
	done := make(map[string]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var out []Migration
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}
