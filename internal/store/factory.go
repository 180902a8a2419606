// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package store

import (
	"fmt"
	"sync"
)

// Config selects and parameterizes a graph backend.
type Config struct {
	Backend  string `mapstructure:"backend"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Factory creates a Graph for a named backend.
type Factory func(cfg *Config) (Graph, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named backend. Backend packages
// call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// resolveBackend returns the effective backend name, defaulting to "neo4j".
func resolveBackend(cfg *Config) string {
	if cfg == nil || cfg.Backend == "" {
		return "neo4j"
	}
	return cfg.Backend
}

// New creates the configured graph backend.
func New(cfg *Config) (Graph, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported graph backend: %q", backend)
	}

	return factory(cfg)
}
