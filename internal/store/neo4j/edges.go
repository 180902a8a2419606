// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/archigraph/archigraph/internal/store"
)

type edgeStore Backend

func (s *edgeStore) Create(ctx context.Context, srcID, dstID int64, typ string, props map[string]any) (*store.Edge, error) {
	query := fmt.Sprintf(`
		MATCH (a), (b)
		WHERE id(a) = $src AND id(b) = $dst
		CREATE (a)-[r:%s]->(b)
		SET r = $props
		RETURN r`, typ)
	result, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"src": srcID, "dst": dstID, "props": props})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, store.ErrNotFound
		}
		v, _ := res.Record().Get("r")
		return edgeOf(v.(neo4j.Relationship)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Edge), nil
}

func (s *edgeStore) Find(ctx context.Context, srcID, dstID int64, typ, description, sourceWorkspace string) (*store.Edge, error) {
	query := fmt.Sprintf(`
		MATCH (a)-[r:%s]->(b)
		WHERE id(a) = $src AND id(b) = $dst
		  AND coalesce(r.description, '') = $description
		  AND coalesce(r.sourceWorkspace, '') = $sourceWorkspace
		RETURN r LIMIT 1`, typ)
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"src":             srcID,
			"dst":             dstID,
			"description":     description,
			"sourceWorkspace": sourceWorkspace,
		})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, store.ErrNotFound
		}
		v, _ := res.Record().Get("r")
		return edgeOf(v.(neo4j.Relationship)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Edge), nil
}

func (s *edgeStore) SetProps(ctx context.Context, id int64, props map[string]any) error {
	_, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH ()-[r]->() WHERE id(r) = $id
			SET r += $props
			RETURN count(r) AS updated`, map[string]any{"id": id, "props": props})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if updated, _ := res.Record().Get("updated"); updated == int64(0) {
				return nil, store.ErrNotFound
			}
		}
		return nil, res.Err()
	})
	return err
}

func (s *edgeStore) From(ctx context.Context, srcID int64, typ string) ([]*store.Edge, error) {
	query := fmt.Sprintf(`MATCH (a)-[r%s]->() WHERE id(a) = $id RETURN r`, typePattern(typ))
	return s.list(ctx, query, srcID)
}

func (s *edgeStore) To(ctx context.Context, dstID int64, typ string) ([]*store.Edge, error) {
	query := fmt.Sprintf(`MATCH ()-[r%s]->(b) WHERE id(b) = $id RETURN r`, typePattern(typ))
	return s.list(ctx, query, dstID)
}

// typePattern renders the relationship-type part of a pattern; an empty
// type matches edges of every type.
func typePattern(typ string) string {
	if typ == "" {
		return ""
	}
	return ":" + typ
}

func (s *edgeStore) list(ctx context.Context, query string, id int64) ([]*store.Edge, error) {
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		var out []*store.Edge
		for res.Next(ctx) {
			v, _ := res.Record().Get("r")
			out = append(out, edgeOf(v.(neo4j.Relationship)))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*store.Edge), nil
}
