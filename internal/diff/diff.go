// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package diff compares two versions of a system's snapshot in the Global
// graph. It is a pure read side: everything it reports is derived from the
// startVersion/endVersion windows the merge engine maintains. Because the
// merge engine closes and reopens the whole snapshot on every ingestion, an
// entity unchanged between the two versions is open throughout the interval
// and matches neither predicate.
package diff

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Endpoint identifies one side of a reported relationship by its store key:
// cmdb for software systems, the qualified name for everything else.
type Endpoint struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// Change is one entry of the diff report. Element entries carry Name and
// Type; relation entries carry Type "Relation" plus the remaining fields.
type Change struct {
	Type         string    `json:"type"`
	Name         string    `json:"name,omitempty"`
	RelationType string    `json:"relation_type,omitempty"`
	Description  string    `json:"description,omitempty"`
	From         *Endpoint `json:"from,omitempty"`
	To           *Endpoint `json:"to,omitempty"`
}

// Report lists what appeared and what disappeared between the two compared
// versions.
type Report struct {
	AddElements    []Change `json:"addElements"`
	RemoveElements []Change `json:"removeElements"`
}

// Service runs version comparisons against the Global graph.
type Service struct {
	graph store.Graph
	log   *slog.Logger
}

func NewService(g store.Graph, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{graph: g, log: log}
}

// Compare diffs versions v1 and v2 of the named system. v2 may be 0, meaning
// "the current version". The order of v1 and v2 does not matter.
func (s *Service) Compare(ctx context.Context, cmdb string, v1, v2 int64) (*Report, error) {
	sys, err := s.graph.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, cmdb)
	if errors.Is(err, store.ErrNotFound) {
		return nil, agerr.Errorf(agerr.CodeDiffSystemNotFound, "system %q not found", cmdb)
	}
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeDiffTraverseFailure, "looking up system",
			agerr.FieldCMDB(cmdb))
	}
	cur, ok := store.IntProp(sys.Props, store.PropVersion)
	if !ok {
		return nil, agerr.Errorf(agerr.CodeDiffHistoryMissing, "system %q has no version history", cmdb)
	}
	if v2 == 0 {
		v2 = cur
	}
	if v1 == v2 {
		return nil, agerr.Errorf(agerr.CodeDiffVersionInvalid, "versions must differ, got %d and %d", v1, v2)
	}
	if min(v1, v2) < 1 || max(v1, v2) > cur {
		return nil, agerr.Errorf(agerr.CodeDiffVersionInvalid,
			"versions must lie in [1, %d], got %d and %d", cur, v1, v2)
	}
	if v1 > v2 {
		v1, v2 = v2, v1
	}

	w := &walk{
		graph:   s.graph,
		cmdb:    cmdb,
		v1:      v1,
		v2:      v2,
		cur:     cur,
		added:   make(map[change]struct{}),
		removed: make(map[change]struct{}),
	}
	if err := w.run(ctx, sys); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeDiffTraverseFailure, "traversing snapshot",
			agerr.FieldCMDB(cmdb))
	}

	s.log.DebugContext(ctx, "compared versions",
		"cmdb", cmdb, "v1", v1, "v2", v2,
		"added", len(w.added), "removed", len(w.removed))
	return &Report{
		AddElements:    assemble(w.added),
		RemoveElements: assemble(w.removed),
	}, nil
}

// change is the comparable form of a Change, used to deduplicate entries
// reached through more than one traversal path.
type change struct {
	typ, name         string
	relType, desc     string
	fromKey, fromType string
	toKey, toType     string
}

func (c change) export() Change {
	out := Change{Type: c.typ, Name: c.name}
	if c.typ == "Relation" {
		out.RelationType = c.relType
		out.Description = c.desc
		out.From = &Endpoint{Key: c.fromKey, Type: c.fromType}
		out.To = &Endpoint{Key: c.toKey, Type: c.toType}
	}
	return out
}

func assemble(set map[change]struct{}) []Change {
	keys := make([]change, 0, len(set))
	for c := range set {
		keys = append(keys, c)
	}
	// Deterministic output order; sets have none.
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.typ != b.typ {
			return a.typ < b.typ
		}
		if a.name != b.name {
			return a.name < b.name
		}
		if a.relType != b.relType {
			return a.relType < b.relType
		}
		if a.fromKey != b.fromKey {
			return a.fromKey < b.fromKey
		}
		if a.toKey != b.toKey {
			return a.toKey < b.toKey
		}
		return a.desc < b.desc
	})
	out := make([]Change, len(keys))
	for i, c := range keys {
		out[i] = c.export()
	}
	return out
}

// walk traverses everything the subject system transitively owns, testing
// every record's version window against both predicates in one pass. The
// traversal itself ignores windows: closed records still anchor structure.
type walk struct {
	graph   store.Graph
	cmdb    string
	v1, v2  int64
	cur     int64
	added   map[change]struct{}
	removed map[change]struct{}
}

func (w *walk) run(ctx context.Context, sys *store.Node) error {
	if err := w.relationships(ctx, sys, true); err != nil {
		return err
	}
	if err := w.systemDeploys(ctx, sys); err != nil {
		return err
	}
	containers, err := w.graph.Nodes().Children(ctx, sys.ID, store.LabelContainer)
	if err != nil {
		return err
	}
	for _, c := range containers {
		w.classifyChild(sys, c)
		if err := w.relationships(ctx, c, true); err != nil {
			return err
		}
		components, err := w.graph.Nodes().Children(ctx, c.ID, store.LabelComponent)
		if err != nil {
			return err
		}
		for _, comp := range components {
			w.classifyChild(c, comp)
			if err := w.relationships(ctx, comp, true); err != nil {
				return err
			}
		}
	}
	nodes, err := w.graph.Nodes().Children(ctx, sys.ID, store.LabelDeploymentNode)
	if err != nil {
		return err
	}
	for _, dn := range nodes {
		w.classifyChild(sys, dn)
		if err := w.deploymentSubtree(ctx, dn); err != nil {
			return err
		}
	}
	return nil
}

// deploymentSubtree applies the predicates level by level: the node's own
// relationships, then its child deployment nodes (recursively), then its
// infrastructure nodes and container instances with theirs.
func (w *walk) deploymentSubtree(ctx context.Context, dn *store.Node) error {
	if err := w.relationships(ctx, dn, false); err != nil {
		return err
	}
	children, err := w.graph.Nodes().Children(ctx, dn.ID, store.LabelDeploymentNode)
	if err != nil {
		return err
	}
	for _, child := range children {
		w.classifyChild(dn, child)
		if err := w.deploymentSubtree(ctx, child); err != nil {
			return err
		}
	}
	for _, label := range []string{store.LabelInfrastructureNode, store.LabelContainerInstance} {
		leaves, err := w.graph.Nodes().Children(ctx, dn.ID, label)
		if err != nil {
			return err
		}
		for _, leaf := range leaves {
			w.classifyChild(dn, leaf)
			if err := w.relationships(ctx, leaf, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// relationships classifies the node's Relationship edges submitted by the
// subject. Model-level elements see both directions; the deployment subtree
// only reports outbound edges.
func (w *walk) relationships(ctx context.Context, n *store.Node, inbound bool) error {
	out, err := w.graph.Edges().From(ctx, n.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	if err := w.classifyEdges(ctx, out); err != nil {
		return err
	}
	if !inbound {
		return nil
	}
	in, err := w.graph.Edges().To(ctx, n.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	return w.classifyEdges(ctx, in)
}

// systemDeploys reports Deploy edges sourced directly at the system node.
// The merge engine never writes these (the document schema has no
// system-level instances), but graphs populated by earlier ingesters carry
// them and the comparison must not lose those rows.
func (w *walk) systemDeploys(ctx context.Context, sys *store.Node) error {
	edges, err := w.graph.Edges().From(ctx, sys.ID, store.EdgeDeploy)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if store.StringProp(e.Props, store.PropSourceWorkspace) != w.cmdb {
			continue
		}
		add, remove := w.classify(store.WindowOf(e.Props))
		if !add && !remove {
			continue
		}
		c, err := w.relation(ctx, e, "SoftwareSystemInstance", "Deploy")
		if err != nil {
			return err
		}
		w.put(c, add, remove)
	}
	return nil
}

func (w *walk) classifyEdges(ctx context.Context, edges []*store.Edge) error {
	for _, e := range edges {
		if store.StringProp(e.Props, store.PropSourceWorkspace) != w.cmdb {
			continue
		}
		add, remove := w.classify(store.WindowOf(e.Props))
		if !add && !remove {
			continue
		}
		desc := store.StringProp(e.Props, store.PropDescription)
		c, err := w.relation(ctx, e, "Relationship", desc)
		if err != nil {
			return err
		}
		w.put(c, add, remove)
	}
	return nil
}

// classifyChild reports a changed child element together with the Child
// relation that anchors it, judged by the child node's own window.
func (w *walk) classifyChild(parent, child *store.Node) {
	add, remove := w.classify(store.WindowOf(child.Props))
	if !add && !remove {
		return
	}
	w.put(change{
		typ:  child.Label,
		name: store.StringProp(child.Props, store.PropName),
	}, add, remove)
	from := endpointOf(parent)
	to := endpointOf(child)
	w.put(change{
		typ: "Relation", relType: "Child", desc: "Child",
		fromKey: from.Key, fromType: from.Type,
		toKey: to.Key, toType: to.Type,
	}, add, remove)
}

// classify evaluates one window. A record was removed when it existed at v1
// and closed before v2; added when it appeared after v1 and survives to v2.
// Open windows extend to the current version.
func (w *walk) classify(win store.Window) (added, removed bool) {
	start := win.Start
	end := w.cur
	if !win.Open() {
		end = *win.End
	}
	removed = start <= w.v1 && w.v1 <= end && end < w.v2
	added = w.v1 < start && start <= w.v2 && w.v2 <= end
	return added, removed
}

func (w *walk) relation(ctx context.Context, e *store.Edge, relType, desc string) (change, error) {
	src, err := w.graph.Nodes().FindByID(ctx, e.SourceID)
	if err != nil {
		return change{}, err
	}
	dst, err := w.graph.Nodes().FindByID(ctx, e.DestID)
	if err != nil {
		return change{}, err
	}
	from := endpointOf(src)
	to := endpointOf(dst)
	return change{
		typ: "Relation", relType: relType, desc: desc,
		fromKey: from.Key, fromType: from.Type,
		toKey: to.Key, toType: to.Type,
	}, nil
}

func (w *walk) put(c change, added, removed bool) {
	if added {
		w.added[c] = struct{}{}
	}
	if removed {
		w.removed[c] = struct{}{}
	}
}

// endpointOf identifies a node by the key it is stored under.
func endpointOf(n *store.Node) Endpoint {
	key := store.PropName
	if n.Label == store.LabelSoftwareSystem {
		key = store.PropCMDB
	}
	return Endpoint{Key: store.StringProp(n.Props, key), Type: n.Label}
}
