// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package memory provides an in-memory graph backend. It backs the engine
// test suites and local development; production deployments use the neo4j
// backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/store"
)

// Compile-time interface check.
var _ store.Graph = (*Store)(nil)

func init() {
	store.RegisterBackend("memory", func(*store.Config) (store.Graph, error) {
		return New(), nil
	})
}

// Store is a goroutine-safe in-memory property graph.
type Store struct {
	mu        sync.RWMutex
	nextNodeID int64
	nextEdgeID int64
	nodes     map[int64]*store.Node
	edges     map[int64]*store.Edge
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[int64]*store.Node),
		edges: make(map[int64]*store.Edge),
	}
}

func (s *Store) Nodes() store.NodeStore       { return (*nodeStore)(s) }
func (s *Store) Edges() store.EdgeStore       { return (*edgeStore)(s) }
func (s *Store) Snapshots() store.SnapshotStore { return (*snapshotStore)(s) }
func (s *Store) Closure() store.ClosureStore  { return (*closureStore)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func cloneNode(n *store.Node) *store.Node {
	return &store.Node{ID: n.ID, Label: n.Label, Props: cloneProps(n.Props)}
}

func cloneEdge(e *store.Edge) *store.Edge {
	return &store.Edge{ID: e.ID, Type: e.Type, SourceID: e.SourceID, DestID: e.DestID, Props: cloneProps(e.Props)}
}

func tagOf(props map[string]any) string { return store.StringProp(props, store.PropGraphTag) }

// edgesOrderedLocked returns edges in creation order. Listing operations use
// it so results are stable across calls.
func (s *Store) edgesOrderedLocked() []*store.Edge {
	out := make([]*store.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---------------------------------------------------------------------------
// NodeStore
// ---------------------------------------------------------------------------

type nodeStore Store

func (s *nodeStore) Find(_ context.Context, tag, label, key, value string) (*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.Label == label && tagOf(n.Props) == tag && store.StringProp(n.Props, key) == value {
			return cloneNode(n), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *nodeStore) FindByID(_ context.Context, id int64) (*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneNode(n), nil
}

func (s *nodeStore) Create(_ context.Context, tag, label string, props map[string]any) (*store.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNodeID++
	p := cloneProps(props)
	p[store.PropGraphTag] = tag
	n := &store.Node{ID: s.nextNodeID, Label: label, Props: p}
	s.nodes[n.ID] = n
	return cloneNode(n), nil
}

func (s *nodeStore) SetProps(_ context.Context, id int64, props map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	applyProps(n.Props, props)
	return nil
}

func applyProps(dst, updates map[string]any) {
	for k, v := range updates {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

func (s *nodeStore) Children(_ context.Context, parentID int64, childLabel string) ([]*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Node
	for _, e := range (*Store)(s).edgesOrderedLocked() {
		if e.Type != store.EdgeChild || e.SourceID != parentID {
			continue
		}
		child, ok := s.nodes[e.DestID]
		if !ok || child.Label != childLabel {
			continue
		}
		out = append(out, cloneNode(child))
	}
	return out, nil
}

func (s *nodeStore) FanCount(_ context.Context, id int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.edges {
		if e.SourceID == id || e.DestID == id {
			count++
		}
	}
	return count, nil
}

func (s *nodeStore) Search(_ context.Context, tag, label, query string) ([]*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []*store.Node
	for _, n := range s.nodes {
		if n.Label != label || tagOf(n.Props) != tag {
			continue
		}
		cmdb := strings.ToLower(store.StringProp(n.Props, store.PropCMDB))
		name := strings.ToLower(store.StringProp(n.Props, store.PropName))
		if strings.Contains(cmdb, q) || strings.Contains(name, q) {
			out = append(out, cloneNode(n))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// EdgeStore
// ---------------------------------------------------------------------------

type edgeStore Store

func (s *edgeStore) Create(_ context.Context, srcID, dstID int64, typ string, props map[string]any) (*store.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[srcID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.nodes[dstID]; !ok {
		return nil, store.ErrNotFound
	}
	s.nextEdgeID++
	e := &store.Edge{ID: s.nextEdgeID, Type: typ, SourceID: srcID, DestID: dstID, Props: cloneProps(props)}
	s.edges[e.ID] = e
	return cloneEdge(e), nil
}

func (s *edgeStore) Find(_ context.Context, srcID, dstID int64, typ, description, sourceWorkspace string) (*store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.edges {
		if e.SourceID == srcID && e.DestID == dstID && e.Type == typ &&
			store.StringProp(e.Props, store.PropDescription) == description &&
			store.StringProp(e.Props, store.PropSourceWorkspace) == sourceWorkspace {
			return cloneEdge(e), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *edgeStore) SetProps(_ context.Context, id int64, props map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return store.ErrNotFound
	}
	applyProps(e.Props, props)
	return nil
}

func (s *edgeStore) From(_ context.Context, srcID int64, typ string) ([]*store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Edge
	for _, e := range (*Store)(s).edgesOrderedLocked() {
		if e.SourceID == srcID && (typ == "" || e.Type == typ) {
			out = append(out, cloneEdge(e))
		}
	}
	return out, nil
}

func (s *edgeStore) To(_ context.Context, dstID int64, typ string) ([]*store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Edge
	for _, e := range (*Store)(s).edgesOrderedLocked() {
		if e.DestID == dstID && (typ == "" || e.Type == typ) {
			out = append(out, cloneEdge(e))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// SnapshotStore
// ---------------------------------------------------------------------------

type snapshotStore Store

func (s *snapshotStore) CloseSnapshot(_ context.Context, tag, cmdb string, endVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var systemID int64 = -1
	for _, n := range s.nodes {
		if n.Label == store.LabelSoftwareSystem && tagOf(n.Props) == tag &&
			store.StringProp(n.Props, store.PropCMDB) == cmdb {
			systemID = n.ID
			break
		}
	}
	if systemID < 0 {
		// Nothing to close on first ingestion.
		return nil
	}

	// Close every open node in the containment subtree under the system.
	for _, id := range (*Store)(s).subtreeLocked(systemID) {
		n := s.nodes[id]
		if n.Label == store.LabelEnvironment {
			continue
		}
		if _, open := n.Props[store.PropEndVersion]; !open {
			n.Props[store.PropEndVersion] = endVersion
		}
	}

	// Close every open edge this cmdb submitted, whatever its type.
	for _, e := range s.edges {
		if tagOf(e.Props) != tag || store.StringProp(e.Props, store.PropSourceWorkspace) != cmdb {
			continue
		}
		if _, closed := e.Props[store.PropEndVersion]; !closed {
			e.Props[store.PropEndVersion] = endVersion
		}
	}
	return nil
}

// subtreeLocked returns ids reachable from root over Child edges, excluding
// the root. Closed edges still define structure, so windows are ignored.
func (s *Store) subtreeLocked(root int64) []int64 {
	seen := map[int64]bool{root: true}
	queue := []int64{root}
	var out []int64
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.edges {
			if e.Type != store.EdgeChild || e.SourceID != cur || seen[e.DestID] {
				continue
			}
			seen[e.DestID] = true
			out = append(out, e.DestID)
			queue = append(queue, e.DestID)
		}
	}
	return out
}

func (s *snapshotStore) DeleteAll(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.nodes {
		if tagOf(n.Props) == tag {
			delete(s.nodes, id)
		}
	}
	for id, e := range s.edges {
		if tagOf(e.Props) == tag {
			delete(s.edges, id)
			continue
		}
		if _, ok := s.nodes[e.SourceID]; !ok {
			delete(s.edges, id)
			continue
		}
		if _, ok := s.nodes[e.DestID]; !ok {
			delete(s.edges, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// ClosureStore
// ---------------------------------------------------------------------------

type closureStore Store

func (s *closureStore) NeighborSystems(_ context.Context, systemID int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, e := range s.edges {
		if e.Type != store.EdgeRelationship {
			continue
		}
		other, ok := s.otherEnd(e, systemID, dir)
		if !ok {
			continue
		}
		n := s.nodes[other]
		if n != nil && n.Label == store.LabelSoftwareSystem && tagOf(n.Props) == store.TagGlobal {
			out = append(out, store.StringProp(n.Props, store.PropCMDB))
		}
	}
	return out, nil
}

// otherEnd returns the far endpoint of e relative to subject in the given
// direction, or false when e does not touch subject that way.
func (s *closureStore) otherEnd(e *store.Edge, subject int64, dir store.Direction) (int64, bool) {
	if dir == store.Outgoing && e.SourceID == subject {
		return e.DestID, true
	}
	if dir == store.Incoming && e.DestID == subject {
		return e.SourceID, true
	}
	return 0, false
}

func (s *closureStore) ContainerLinkedSystems(_ context.Context, systemID int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkedSystemsLocked(systemID, dir, false), nil
}

func (s *closureStore) ComponentLinkedSystems(_ context.Context, systemID int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkedSystemsLocked(systemID, dir, true), nil
}

func (s *closureStore) linkedSystemsLocked(systemID int64, dir store.Direction, throughComponents bool) []string {
	var subjects []int64
	for _, e := range s.edges {
		if e.Type == store.EdgeChild && e.SourceID == systemID {
			c := s.nodes[e.DestID]
			if c == nil || c.Label != store.LabelContainer {
				continue
			}
			if !throughComponents {
				subjects = append(subjects, c.ID)
				continue
			}
			for _, ce := range s.edges {
				if ce.Type == store.EdgeChild && ce.SourceID == c.ID {
					if comp := s.nodes[ce.DestID]; comp != nil && comp.Label == store.LabelComponent {
						subjects = append(subjects, comp.ID)
					}
				}
			}
		}
	}
	return s.relatedOwnersLocked(subjects, dir)
}

// relatedOwnersLocked resolves Relationship endpoints of the subject nodes
// to the cmdb of the system owning each endpoint.
func (s *closureStore) relatedOwnersLocked(subjects []int64, dir store.Direction) []string {
	inSubject := make(map[int64]bool, len(subjects))
	for _, id := range subjects {
		inSubject[id] = true
	}
	var out []string
	for _, e := range s.edges {
		if e.Type != store.EdgeRelationship {
			continue
		}
		var other int64
		switch {
		case dir == store.Outgoing && inSubject[e.SourceID]:
			other = e.DestID
		case dir == store.Incoming && inSubject[e.DestID]:
			other = e.SourceID
		default:
			continue
		}
		if cmdb, ok := s.owningSystemLocked(other); ok {
			out = append(out, cmdb)
		}
	}
	return out
}

// owningSystemLocked walks inbound Child edges up to the owning system.
func (s *closureStore) owningSystemLocked(id int64) (string, bool) {
	cur := id
	for hops := 0; hops < 16; hops++ {
		n := s.nodes[cur]
		if n == nil {
			return "", false
		}
		if n.Label == store.LabelSoftwareSystem {
			return store.StringProp(n.Props, store.PropCMDB), true
		}
		parent := int64(-1)
		for _, e := range s.edges {
			if e.Type == store.EdgeChild && e.DestID == cur {
				p := s.nodes[e.SourceID]
				if p != nil && p.Label != store.LabelEnvironment {
					parent = e.SourceID
					break
				}
			}
		}
		if parent < 0 {
			return "", false
		}
		cur = parent
	}
	return "", false
}

func (s *closureStore) DeploymentNodesByNameEnv(_ context.Context, cmdb, name, environment string) ([]*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Node
	for _, n := range s.nodes {
		if n.Label != store.LabelDeploymentNode || tagOf(n.Props) != store.TagGlobal {
			continue
		}
		if identity.LocalName(store.StringProp(n.Props, store.PropName)) != name {
			continue
		}
		if store.StringProp(n.Props, store.PropEnvironment) != environment {
			continue
		}
		if owner, ok := s.owningSystemLocked(n.ID); !ok || owner != cmdb {
			continue
		}
		out = append(out, cloneNode(n))
	}
	return out, nil
}

func (s *closureStore) DeploymentChildIDs(_ context.Context, id int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for _, child := range (*Store)(s).subtreeLocked(id) {
		if n := s.nodes[child]; n != nil && n.Label == store.LabelDeploymentNode {
			out = append(out, child)
		}
	}
	return out, nil
}

func (s *closureStore) DeploymentDirectSystems(_ context.Context, ids []int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, e := range s.edges {
		if e.Type != store.EdgeRelationship {
			continue
		}
		for _, id := range ids {
			other, ok := s.otherEnd(e, id, dir)
			if !ok {
				continue
			}
			if n := s.nodes[other]; n != nil && n.Label == store.LabelSoftwareSystem {
				out = append(out, store.StringProp(n.Props, store.PropCMDB))
			}
		}
	}
	return out, nil
}

func (s *closureStore) DeploymentPeerSystems(_ context.Context, ids []int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, e := range s.edges {
		if e.Type != store.EdgeRelationship {
			continue
		}
		for _, id := range ids {
			other, ok := s.otherEnd(e, id, dir)
			if !ok {
				continue
			}
			if n := s.nodes[other]; n != nil && n.Label == store.LabelDeploymentNode {
				if cmdb, found := s.owningSystemLocked(other); found {
					out = append(out, cmdb)
				}
			}
		}
	}
	return out, nil
}

func (s *closureStore) DeploymentInstanceSystems(_ context.Context, ids []int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subjects []int64
	for _, id := range ids {
		for _, e := range s.edges {
			if e.Type != store.EdgeChild || e.SourceID != id {
				continue
			}
			inst := s.nodes[e.DestID]
			if inst == nil || inst.Label != store.LabelContainerInstance {
				continue
			}
			// The deployed container is the Deploy edge's source.
			for _, de := range s.edges {
				if de.Type != store.EdgeDeploy || de.DestID != inst.ID {
					continue
				}
				subjects = append(subjects, de.SourceID)
				for _, ce := range s.edges {
					if ce.Type == store.EdgeChild && ce.SourceID == de.SourceID {
						if comp := s.nodes[ce.DestID]; comp != nil && comp.Label == store.LabelComponent {
							subjects = append(subjects, comp.ID)
						}
					}
				}
			}
		}
	}
	return s.relatedOwnersLocked(subjects, dir), nil
}

func (s *closureStore) DeploymentInfraSystems(_ context.Context, ids []int64, dir store.Direction) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subjects []int64
	for _, id := range ids {
		for _, e := range s.edges {
			if e.Type == store.EdgeChild && e.SourceID == id {
				if n := s.nodes[e.DestID]; n != nil && n.Label == store.LabelInfrastructureNode {
					subjects = append(subjects, n.ID)
				}
			}
		}
	}
	return s.relatedOwnersLocked(subjects, dir), nil
}
