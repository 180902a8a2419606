// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/store"
)

type closureStore Backend

// relArrow renders the Relationship hop of a path shape so that the arrow
// points away from the subject for Outgoing and into it for Incoming.
func relArrow(dir store.Direction) string {
	if dir == store.Incoming {
		return "<-[:Relationship]-"
	}
	return "-[:Relationship]->"
}

func (s *closureStore) systems(ctx context.Context, query string, params map[string]any) ([]string, error) {
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return collectStrings(ctx, res, "cmdb")
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (s *closureStore) NeighborSystems(ctx context.Context, systemID int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (p)%s(m:SoftwareSystem {graphTag: $tag})
		WHERE id(p) = $id
		RETURN m.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"id": systemID, "tag": store.TagGlobal})
}

func (s *closureStore) ContainerLinkedSystems(ctx context.Context, systemID int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (p)-[:Child]->(:Container)%s(m)
		WHERE id(p) = $id
		MATCH (owner:SoftwareSystem)-[:Child*0..]->(m)
		RETURN owner.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"id": systemID})
}

func (s *closureStore) ComponentLinkedSystems(ctx context.Context, systemID int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (p)-[:Child]->(:Container)-[:Child]->(:Component)%s(m)
		WHERE id(p) = $id
		MATCH (owner:SoftwareSystem)-[:Child*0..]->(m)
		RETURN owner.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"id": systemID})
}

func (s *closureStore) DeploymentNodesByNameEnv(ctx context.Context, cmdb, name, environment string) ([]*store.Node, error) {
	// Stored names are qualified with the parent chain, so the unqualified
	// name matches either exactly or as a separator-delimited prefix.
	query := `
		MATCH (s:SoftwareSystem {graphTag: $tag, cmdb: $cmdb})-[:Child*1..]->(n:DeploymentNode)
		WHERE (n.name = $name OR n.name STARTS WITH $prefix)
		  AND n.environment = $environment
		RETURN n`
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"tag":         store.TagGlobal,
			"cmdb":        cmdb,
			"name":        name,
			"prefix":      name + identity.Separator,
			"environment": environment,
		})
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

func (s *closureStore) DeploymentChildIDs(ctx context.Context, id int64) ([]int64, error) {
	result, err := (*Backend)(s).read(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (p)-[:Child*1..]->(n:DeploymentNode)
			WHERE id(p) = $id
			RETURN id(n) AS id`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		var out []int64
		for res.Next(ctx) {
			v, _ := res.Record().Get("id")
			if n, ok := v.(int64); ok {
				out = append(out, n)
			}
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (s *closureStore) DeploymentDirectSystems(ctx context.Context, ids []int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (d)%s(m:SoftwareSystem)
		WHERE id(d) IN $ids
		RETURN m.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"ids": ids})
}

func (s *closureStore) DeploymentPeerSystems(ctx context.Context, ids []int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (d)%s(peer:DeploymentNode)
		WHERE id(d) IN $ids
		MATCH (owner:SoftwareSystem)-[:Child*0..]->(peer)
		RETURN owner.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"ids": ids})
}

func (s *closureStore) DeploymentInstanceSystems(ctx context.Context, ids []int64, dir store.Direction) ([]string, error) {
	// The deployed container and its components both carry relationships
	// that count toward the deployment scope.
	query := fmt.Sprintf(`
		MATCH (d)-[:Child]->(:ContainerInstance)<-[:Deploy]-(c:Container)
		WHERE id(d) IN $ids
		MATCH (c)-[:Child*0..1]->(src)
		MATCH (src)%s(m)
		MATCH (owner:SoftwareSystem)-[:Child*0..]->(m)
		RETURN owner.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"ids": ids})
}

func (s *closureStore) DeploymentInfraSystems(ctx context.Context, ids []int64, dir store.Direction) ([]string, error) {
	query := fmt.Sprintf(`
		MATCH (d)-[:Child]->(i:InfrastructureNode)
		WHERE id(d) IN $ids
		MATCH (i)%s(m)
		MATCH (owner:SoftwareSystem)-[:Child*0..]->(m)
		RETURN owner.cmdb AS cmdb`, relArrow(dir))
	return s.systems(ctx, query, map[string]any{"ids": ids})
}
