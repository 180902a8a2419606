// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type snapshotStore Backend

// closeNodesQuery stamps endVersion on every open node in the containment
// subtree under the system. Environments are shared across systems and stay
// open. Closed Child edges still define the subtree, so the traversal does
// not filter on edge windows.
const closeNodesQuery = `
	MATCH (s:SoftwareSystem {graphTag: $tag, cmdb: $cmdb})-[:Child*1..]->(n)
	WHERE n.endVersion IS NULL AND NOT n:Environment
	SET n.endVersion = $end`

// closeEdgesQuery stamps endVersion on every open edge this cmdb submitted,
// whatever its type or where it points.
const closeEdgesQuery = `
	MATCH ()-[r {graphTag: $tag, sourceWorkspace: $cmdb}]->()
	WHERE r.endVersion IS NULL
	SET r.endVersion = $end`

func (s *snapshotStore) CloseSnapshot(ctx context.Context, tag, cmdb string, endVersion int64) error {
	params := map[string]any{"tag": tag, "cmdb": cmdb, "end": endVersion}
	_, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		for _, query := range []string{closeNodesQuery, closeEdgesQuery} {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *snapshotStore) DeleteAll(ctx context.Context, tag string) error {
	_, err := (*Backend)(s).write(ctx, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n {graphTag: $tag}) DETACH DELETE n`, map[string]any{"tag": tag})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		res, err = tx.Run(ctx, `MATCH ()-[r {graphTag: $tag}]->() DELETE r`, map[string]any{"tag": tag})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}
