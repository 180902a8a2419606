// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/archigraph/archigraph/internal/store"
)

type nodeStore Backend

func (s *nodeStore) Find(ctx context.Context, tag, label, key, value string) (*store.Node, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {graphTag: $tag})
		WHERE n[$key] = $value
		RETURN n LIMIT 1`, label)
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"tag": tag, "key": key, "value": value})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, store.ErrNotFound
		}
		v, _ := res.Record().Get("n")
		return nodeOf(v.(neo4j.Node)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Node), nil
}

func (s *nodeStore) FindByID(ctx context.Context, id int64) (*store.Node, error) {
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n) WHERE id(n) = $id RETURN n`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, store.ErrNotFound
		}
		v, _ := res.Record().Get("n")
		return nodeOf(v.(neo4j.Node)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Node), nil
}

func (s *nodeStore) Create(ctx context.Context, tag, label string, props map[string]any) (*store.Node, error) {
	full := make(map[string]any, len(props)+1)
	for k, v := range props {
		full[k] = v
	}
	full[store.PropGraphTag] = tag

	query := fmt.Sprintf(`CREATE (n:%s) SET n = $props RETURN n`, label)
	result, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"props": full})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, fmt.Errorf("%w: create returned no node", store.ErrStore)
		}
		v, _ := res.Record().Get("n")
		return nodeOf(v.(neo4j.Node)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Node), nil
}

func (s *nodeStore) SetProps(ctx context.Context, id int64, props map[string]any) error {
	// Null values in the map parameter remove the property, which carries
	// the store contract's nil-removes semantics through unchanged.
	_, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n) WHERE id(n) = $id
			SET n += $props
			RETURN count(n) AS updated`, map[string]any{"id": id, "props": props})
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

func (s *nodeStore) Children(ctx context.Context, parentID int64, childLabel string) ([]*store.Node, error) {
	query := fmt.Sprintf(`
		MATCH (p)-[:Child]->(c:%s)
		WHERE id(p) = $id
		RETURN c`, childLabel)
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": parentID})
		if err != nil {
			return nil, err
		}
		var out []*store.Node
		for res.Next(ctx) {
			v, _ := res.Record().Get("c")
			out = append(out, nodeOf(v.(neo4j.Node)))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*store.Node), nil
}

func (s *nodeStore) FanCount(ctx context.Context, id int64) (int64, error) {
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n)-[r]-()
			WHERE id(n) = $id
			RETURN count(r) AS fan`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return int64(0), res.Err()
		}
		v, _ := res.Record().Get("fan")
		return v, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *nodeStore) Search(ctx context.Context, tag, label, query string) ([]*store.Node, error) {
	cypher := fmt.Sprintf(`
		MATCH (n:%s {graphTag: $tag})
		WHERE toLower(coalesce(n.cmdb, '')) CONTAINS $q
		   OR toLower(coalesce(n.name, '')) CONTAINS $q
		RETURN n`, label)
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"tag": tag, "q": strings.ToLower(query)})
		if err != nil {
			return nil, err
		}
		var out []*store.Node
		for res.Next(ctx) {
			v, _ := res.Record().Get("n")
			out = append(out, nodeOf(v.(neo4j.Node)))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*store.Node), nil
}
