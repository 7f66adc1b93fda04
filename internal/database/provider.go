package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Opener connects to a backend and applies its migrations.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Opener)
)

// RegisterBackend registers a storage backend under name.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database not configured: DATABASE_URL is required")
	}

	backendsMu.RLock()
	open, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database backend %q (available: %v)", cfg.Backend, Backends())
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return store, nil
}
