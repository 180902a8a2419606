// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package store defines the abstract graph-store contract the engines are
// written against. Every operation is a single bounded pattern match (or a
// fixed, named set of them); there is no ad-hoc query scripting and no
// transaction spanning multiple calls.
package store

import "context"

// Graph is the full store surface, grouped by concern.
type Graph interface {
	Nodes() NodeStore
	Edges() EdgeStore
	Snapshots() SnapshotStore
	Closure() ClosureStore

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error
	Close() error
}

// NodeStore manages labeled property-bearing nodes.
type NodeStore interface {
	// Find matches a single node by graph tag, label, and one key property.
	// Returns ErrNotFound when no node matches.
	Find(ctx context.Context, tag, label, key, value string) (*Node, error)
	FindByID(ctx context.Context, id int64) (*Node, error)
	Create(ctx context.Context, tag, label string, props map[string]any) (*Node, error)

	// SetProps writes the given properties on the node. A nil value removes
	// the property (used to reopen a version window or clear external_name).
	SetProps(ctx context.Context, id int64, props map[string]any) error

	// Children returns nodes reachable from parent over one Child edge,
	// filtered to the given label, including closed ones.
	Children(ctx context.Context, parentID int64, childLabel string) ([]*Node, error)

	// FanCount counts edges of any type touching the node in either
	// direction, open or closed. Used by the stub replace decision.
	FanCount(ctx context.Context, id int64) (int64, error)

	// Search matches nodes of the label whose cmdb or name contains the
	// query, case-insensitively, within one graph tag.
	Search(ctx context.Context, tag, label, query string) ([]*Node, error)
}

// EdgeStore manages typed edges. Edge identity is the tuple (source,
// destination, type, description, sourceWorkspace): the same pair of nodes
// may carry distinct edges per description and per submitting system.
type EdgeStore interface {
	Create(ctx context.Context, srcID, dstID int64, typ string, props map[string]any) (*Edge, error)

	// Find matches the edge by its identity tuple. Returns ErrNotFound
	// when absent.
	Find(ctx context.Context, srcID, dstID int64, typ, description, sourceWorkspace string) (*Edge, error)
	SetProps(ctx context.Context, id int64, props map[string]any) error

	// From and To list edges by endpoint and type, including closed ones.
	From(ctx context.Context, srcID int64, typ string) ([]*Edge, error)
	To(ctx context.Context, dstID int64, typ string) ([]*Edge, error)
}

// SnapshotStore covers the bulk close and bulk delete operations of the
// merge engine. Backends implement each as a fixed set of bounded pattern
// updates; there is no rollback if one of them fails partway.
type SnapshotStore interface {
	// CloseSnapshot stamps endVersion on every currently-open node and edge
	// owned by cmdb within the tag: the containment subtree under the
	// system node, its Child/Deploy edges, Environment Child edges into the
	// subtree, and every Relationship edge with sourceWorkspace = cmdb.
	CloseSnapshot(ctx context.Context, tag, cmdb string, endVersion int64) error

	// DeleteAll removes every node and edge carrying the tag. Used to
	// rebuild Local scratch graphs.
	DeleteAll(ctx context.Context, tag string) error
}

// ClosureStore exposes the fixed path-shape queries the closure engine
// unions. Each returns cmdb identifiers of Global systems on the far end of
// open paths, in the given direction relative to the subject.
type ClosureStore interface {
	// NeighborSystems: direct system-to-system Relationship edges.
	NeighborSystems(ctx context.Context, systemID int64, dir Direction) ([]string, error)

	// ContainerLinkedSystems: system -Child-> container -Relationship->
	// target (or reverse), resolving the target to its owning system.
	ContainerLinkedSystems(ctx context.Context, systemID int64, dir Direction) ([]string, error)

	// ComponentLinkedSystems: system -Child-> container -Child-> component
	// -Relationship-> target (or reverse).
	ComponentLinkedSystems(ctx context.Context, systemID int64, dir Direction) ([]string, error)

	// DeploymentNodesByNameEnv matches Global deployment nodes under the
	// system by node name and environment. More than one result means the
	// lookup is ambiguous; the engine surfaces that as a conflict.
	DeploymentNodesByNameEnv(ctx context.Context, cmdb, name, environment string) ([]*Node, error)

	// DeploymentChildIDs returns ids of the deployment-node subtree under
	// the given node, excluding the node itself.
	DeploymentChildIDs(ctx context.Context, id int64) ([]int64, error)

	// DeploymentDirectSystems: deployment node <-> system Relationship
	// edges for any node in ids.
	DeploymentDirectSystems(ctx context.Context, ids []int64, dir Direction) ([]string, error)

	// DeploymentPeerSystems: deployment node <-> deployment node edges,
	// resolving the peer to the system owning its subtree.
	DeploymentPeerSystems(ctx context.Context, ids []int64, dir Direction) ([]string, error)

	// DeploymentInstanceSystems: node -Child-> containerInstance <-Deploy-
	// container chains, resolving relationships of the container and its
	// components to their owning systems.
	DeploymentInstanceSystems(ctx context.Context, ids []int64, dir Direction) ([]string, error)

	// DeploymentInfraSystems: node -Child-> infrastructureNode
	// relationship endpoints resolved to owning systems.
	DeploymentInfraSystems(ctx context.Context, ids []int64, dir Direction) ([]string, error)
}
