// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package neo4j implements the graph store on a Neo4j server using the
// official v5 driver. Every store call opens one session and runs inside a
// single managed transaction.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/archigraph/archigraph/internal/store"
)

var _ store.Graph = (*Backend)(nil)

func init() {
	store.RegisterBackend("neo4j", func(cfg *store.Config) (store.Graph, error) {
		return New(cfg)
	})
}

// Backend holds a connected Neo4j driver. The driver is goroutine-safe and
// shared across all sessions.
type Backend struct {
	driver   neo4j.DriverWithContext
	database string
}

// New connects to the server described by cfg. The connection is verified
// lazily via Ping, not here, so the service can start before the database.
func New(cfg *store.Config) (*Backend, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Backend{driver: driver, database: database}, nil
}

func (b *Backend) Nodes() store.NodeStore         { return (*nodeStore)(b) }
func (b *Backend) Edges() store.EdgeStore         { return (*edgeStore)(b) }
func (b *Backend) Snapshots() store.SnapshotStore { return (*snapshotStore)(b) }
func (b *Backend) Closure() store.ClosureStore    { return (*closureStore)(b) }

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.driver.Close(context.Background())
}

type txWork func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error)

func (b *Backend) read(ctx context.Context, work txWork) (any, error) {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: b.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(ctx, tx)
	})
}

func (b *Backend) write(ctx context.Context, work txWork) (any, error) {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: b.database,
	})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(ctx, tx)
	})
}

func nodeOf(n neo4j.Node) *store.Node {
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	return &store.Node{ID: n.Id, Label: label, Props: n.Props}
}

func edgeOf(r neo4j.Relationship) *store.Edge {
	return &store.Edge{
		ID:       r.Id,
		Type:     r.Type,
		SourceID: r.StartId,
		DestID:   r.EndId,
		Props:    r.Props,
	}
}

// collectStrings drains a result column of string values, skipping nulls.
func collectStrings(ctx context.Context, result neo4j.ResultWithContext, column string) ([]string, error) {
	var out []string
	for result.Next(ctx) {
		v, _ := result.Record().Get(column)
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, result.Err()
}
