// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package view

import (
	"context"
	"fmt"
	"strconv"

	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// relKey identifies an already-materialized relationship. The same store
// edge can be discovered forward from its source and again in reverse from
// its destination; it must appear in the document once.
type relKey struct {
	src, dst, desc string
}

// session holds the per-build state: the id allocator (the workspace itself
// is id 1, elements and relationships count up from 2), the store-id to
// document-id map, parent links, and the dedup sets.
type session struct {
	graph   store.Graph
	subject int64

	next        int64
	ids         map[int64]string
	parents     map[int64]int64
	ownChildren map[string]struct{}

	systems     map[int64]*SoftwareSystem
	systemOrder []int64
	containers  map[int64]*Container
	components  map[int64]*Component

	seenRels map[relKey]struct{}
}

func newSession(g store.Graph) *session {
	return &session{
		graph:       g,
		next:        2,
		ids:         make(map[int64]string),
		parents:     make(map[int64]int64),
		ownChildren: make(map[string]struct{}),
		systems:     make(map[int64]*SoftwareSystem),
		containers:  make(map[int64]*Container),
		components:  make(map[int64]*Component),
		seenRels:    make(map[relKey]struct{}),
	}
}

func (s *session) allocate(storeID int64) string {
	id := strconv.FormatInt(s.next, 10)
	s.next++
	s.ids[storeID] = id
	return id
}

// housekeeping props never surface on documents.
var internalProps = map[string]struct{}{
	store.PropGraphTag:         {},
	store.PropStartVersion:     {},
	store.PropEndVersion:       {},
	store.PropVersion:          {},
	store.PropLevel:            {},
	store.PropNumberOfConnects: {},
	store.PropSourceWorkspace:  {},
	store.PropExternalName:     {},
	store.PropSource:           {},
}

// bag stringifies every node property not consumed by a struct field.
func bag(props map[string]any, handled ...string) map[string]string {
	skip := make(map[string]struct{}, len(handled))
	for _, k := range handled {
		skip[k] = struct{}{}
	}
	out := make(map[string]string)
	for k, v := range props {
		if _, ok := skip[k]; ok {
			continue
		}
		if _, ok := internalProps[k]; ok {
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *session) system(n *store.Node) *SoftwareSystem {
	if sys, ok := s.systems[n.ID]; ok {
		return sys
	}
	sys := &SoftwareSystem{
		ID:          s.allocate(n.ID),
		Name:        store.StringProp(n.Props, store.PropName),
		Description: store.StringProp(n.Props, store.PropDescription),
		Tags:        store.StringProp(n.Props, store.PropTags),
		URL:         store.StringProp(n.Props, store.PropURL),
		Group:       store.StringProp(n.Props, store.PropGroup),
		Properties: bag(n.Props, store.PropName, store.PropDescription,
			store.PropTags, store.PropURL, store.PropGroup),
	}
	s.systems[n.ID] = sys
	s.systemOrder = append(s.systemOrder, n.ID)
	return sys
}

// container materializes the node and hooks it under its owning system,
// materializing the system too when it is first reached through one of its
// children.
func (s *session) container(ctx context.Context, n *store.Node) (*Container, error) {
	if c, ok := s.containers[n.ID]; ok {
		return c, nil
	}
	c := &Container{
		ID:          s.allocate(n.ID),
		Name:        store.StringProp(n.Props, store.PropName),
		Description: store.StringProp(n.Props, store.PropDescription),
		Technology:  store.StringProp(n.Props, store.PropTechnology),
		Tags:        store.StringProp(n.Props, store.PropTags),
		URL:         store.StringProp(n.Props, store.PropURL),
		Group:       store.StringProp(n.Props, store.PropGroup),
		Properties: bag(n.Props, store.PropName, store.PropDescription,
			store.PropTechnology, store.PropTags, store.PropURL, store.PropGroup),
	}
	s.containers[n.ID] = c

	parent, err := s.parentOf(ctx, n.ID, store.LabelSoftwareSystem)
	if err != nil {
		return nil, err
	}
	owner := s.system(parent)
	owner.Containers = append(owner.Containers, c)
	s.parents[n.ID] = parent.ID
	return c, nil
}

func (s *session) component(ctx context.Context, n *store.Node) (*Component, error) {
	if c, ok := s.components[n.ID]; ok {
		return c, nil
	}
	c := &Component{
		ID:          s.allocate(n.ID),
		Name:        store.StringProp(n.Props, store.PropName),
		Description: store.StringProp(n.Props, store.PropDescription),
		Technology:  store.StringProp(n.Props, store.PropTechnology),
		Tags:        store.StringProp(n.Props, store.PropTags),
		URL:         store.StringProp(n.Props, store.PropURL),
		Group:       store.StringProp(n.Props, store.PropGroup),
		Properties: bag(n.Props, store.PropName, store.PropDescription,
			store.PropTechnology, store.PropTags, store.PropURL, store.PropGroup),
	}
	s.components[n.ID] = c

	parent, err := s.parentOf(ctx, n.ID, store.LabelContainer)
	if err != nil {
		return nil, err
	}
	owner, err := s.container(ctx, parent)
	if err != nil {
		return nil, err
	}
	owner.Components = append(owner.Components, c)
	s.parents[n.ID] = parent.ID
	return c, nil
}

// parentOf resolves the Child-edge parent carrying the wanted label.
// Environment nodes parent deployment elements too and must not win here.
func (s *session) parentOf(ctx context.Context, storeID int64, label string) (*store.Node, error) {
	edges, err := s.graph.Edges().To(ctx, storeID, store.EdgeChild)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		n, err := s.graph.Nodes().FindByID(ctx, e.SourceID)
		if err != nil {
			return nil, err
		}
		if n.Label == label {
			return n, nil
		}
	}
	return nil, agerr.Errorf(agerr.CodeViewAssembleFailure, "element %d has no %s parent", storeID, label)
}

// externalSystemOf resolves the foreign endpoint of a relationship to its
// owning system, materializing just enough ancestry to give it an id.
// Deployment-scoped endpoints return nil; they never join a model view.
func (s *session) externalSystemOf(ctx context.Context, n *store.Node) (*SoftwareSystem, error) {
	switch n.Label {
	case store.LabelSoftwareSystem:
		return s.system(n), nil
	case store.LabelContainer:
		if _, err := s.container(ctx, n); err != nil {
			return nil, err
		}
		return s.systems[s.parents[n.ID]], nil
	case store.LabelComponent:
		if _, err := s.component(ctx, n); err != nil {
			return nil, err
		}
		return s.systems[s.parents[s.parents[n.ID]]], nil
	default:
		return nil, nil
	}
}

// relationship materializes one document relationship, or returns nil when
// the same (source, destination, description) was already emitted.
func (s *session) relationship(e *store.Edge, srcID, dstID string) *Relationship {
	desc := store.StringProp(e.Props, store.PropDescription)
	key := relKey{src: srcID, dst: dstID, desc: desc}
	if _, ok := s.seenRels[key]; ok {
		return nil
	}
	s.seenRels[key] = struct{}{}
	id := strconv.FormatInt(s.next, 10)
	s.next++
	return &Relationship{
		ID:               id,
		SourceID:         srcID,
		DestinationID:    dstID,
		Description:      desc,
		Technology:       store.StringProp(e.Props, store.PropTechnology),
		InteractionStyle: store.StringProp(e.Props, store.PropInteractionStyle),
		Tags:             store.StringProp(e.Props, store.PropTags),
	}
}

// isOwnChild reports whether the node was materialized as part of the
// subject system's own tree. Reverse scans skip those sources: their edges
// were already collected walking forward.
func (s *session) isOwnChild(storeID int64) bool {
	id, ok := s.ids[storeID]
	if !ok {
		return false
	}
	_, own := s.ownChildren[id]
	return own
}

func (s *session) markOwn(docID string) {
	s.ownChildren[docID] = struct{}{}
}

// modelSystems returns every materialized system in materialization order.
func (s *session) modelSystems() []*SoftwareSystem {
	out := make([]*SoftwareSystem, 0, len(s.systemOrder))
	for _, id := range s.systemOrder {
		out = append(out, s.systems[id])
	}
	return out
}
