// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package graph

import (
	"context"
	"errors"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// dslIdentifierKey is the modeling-tool property preserved on stubs so a
// later authoritative submission can be traced back to the DSL element.
const dslIdentifierKey = "structurizr.dsl.identifier"

// resolve maps a submission-local id to its store node. Ids the walk has
// already visited come from the object map; anything else is an external
// reference, answered by materializing a stub. A nil node (with nil error)
// means the id does not resolve to any element owned by a cmdb-bearing
// system, and whatever referenced it is silently dropped.
func (m *merge) resolve(ctx context.Context, id string) (*store.Node, error) {
	if node, ok := m.object[id]; ok {
		return node, nil
	}
	return m.materialize(ctx, id)
}

// materialize searches the document tree for the element with the given id
// and upserts a stub for it, keyed by cmdb for systems and by external name
// for containers and components. Elements inside deployment topology never
// materialize: deployment scope is owned by its submitter alone.
func (m *merge) materialize(ctx context.Context, id string) (*store.Node, error) {
	for _, sys := range m.model.SoftwareSystems {
		cmdb := sys.CMDB()
		if cmdb == "" {
			continue
		}
		if sys.ID == id {
			return m.materializeSystem(ctx, sys, cmdb)
		}
		for _, c := range sys.Containers {
			containerExt := identity.ExternalName(c.ExternalName(), cmdb)
			if c.ID == id {
				return m.materializeContainer(ctx, sys, c, containerExt)
			}
			for _, comp := range c.Components {
				if comp.ID == id {
					componentExt := identity.ExternalName(comp.ExternalName(), containerExt)
					return m.materializeComponent(ctx, c, comp, componentExt)
				}
			}
		}
	}
	return nil, nil
}

func (m *merge) materializeSystem(ctx context.Context, sys *model.SoftwareSystem, cmdb string) (*store.Node, error) {
	node, err := m.graph.Nodes().Find(ctx, m.tag, store.LabelSoftwareSystem, store.PropCMDB, cmdb)
	if errors.Is(err, store.ErrNotFound) {
		props := map[string]any{
			store.PropCMDB: cmdb,
			store.PropName: sys.Name,
		}
		addDSLIdentifier(props, sys.Properties)
		node, err = m.graph.Nodes().Create(ctx, m.tag, store.LabelSoftwareSystem, props)
	}
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "materializing system stub",
			agerr.FieldNode(cmdb))
	}
	m.object[sys.ID] = node
	return node, nil
}

func (m *merge) materializeContainer(ctx context.Context, sys *model.SoftwareSystem, c *model.Container, extName string) (*store.Node, error) {
	node, err := m.graph.Nodes().Find(ctx, m.tag, store.LabelContainer, store.PropExternalName, extName)
	if errors.Is(err, store.ErrNotFound) {
		props := map[string]any{
			store.PropExternalName: extName,
			store.PropName:         c.Name,
		}
		addDSLIdentifier(props, c.Properties)
		node, err = m.graph.Nodes().Create(ctx, m.tag, store.LabelContainer, props)
	}
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "materializing container stub",
			agerr.FieldNode(extName))
	}
	m.object[c.ID] = node
	// Anchor the stub under its owning system so closure and snapshot
	// traversals can reach it.
	if err := m.upsertChild(ctx, sys.ID, c.ID); err != nil {
		return nil, err
	}
	return node, nil
}

func (m *merge) materializeComponent(ctx context.Context, c *model.Container, comp *model.Component, extName string) (*store.Node, error) {
	node, err := m.graph.Nodes().Find(ctx, m.tag, store.LabelComponent, store.PropExternalName, extName)
	if errors.Is(err, store.ErrNotFound) {
		props := map[string]any{
			store.PropExternalName: extName,
			store.PropName:         comp.Name,
		}
		addDSLIdentifier(props, comp.Properties)
		node, err = m.graph.Nodes().Create(ctx, m.tag, store.LabelComponent, props)
	}
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "materializing component stub",
			agerr.FieldNode(extName))
	}
	m.object[comp.ID] = node
	if err := m.upsertChild(ctx, c.ID, comp.ID); err != nil {
		return nil, err
	}
	return node, nil
}

func addDSLIdentifier(props map[string]any, bag map[string]string) {
	if bag == nil {
		return
	}
	if v, ok := bag[dslIdentifierKey]; ok && v != "" {
		props[sanitizeKey(dslIdentifierKey)] = v
	}
}
