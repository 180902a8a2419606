// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package graph

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// merge holds the state of one document walk. The object map carries every
// node the walk has touched so far, keyed by submission-local id (and by
// environment name for Environment nodes), so relationship endpoints resolve
// without re-querying the store.
type merge struct {
	graph   store.Graph
	log     *slog.Logger
	tag     string
	cmdb    string
	version int64
	global  bool
	model   *model.Model

	object        map[string]*store.Node
	relationships int
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitizeKey(key string) string {
	return nonAlnum.ReplaceAllString(key, "_")
}

// nilIfEmpty maps absent string fields to property removal, so a field a
// submitter stops sending disappears instead of lingering as "".
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// run walks the document after the system node and version are in place:
// containers with their components, every relationship in the model, then
// the deployment topology and its relationships.
func (m *merge) run(ctx context.Context, subject *model.SoftwareSystem) error {
	if err := m.updateContainers(ctx, subject); err != nil {
		return err
	}
	if err := m.updateModelRelationships(ctx); err != nil {
		return err
	}
	if err := m.updateDeploymentNodes(ctx, subject); err != nil {
		return err
	}
	for _, dn := range m.model.DeploymentNodes {
		if err := m.updateDeploymentRelationships(ctx, dn); err != nil {
			return err
		}
	}
	return nil
}

// updateSystem upserts the subject system node and, in Global mode, advances
// its version counter. The returned version is 0 for Local graphs.
func (m *merge) updateSystem(ctx context.Context, sys *model.SoftwareSystem) (int64, error) {
	node, err := m.findOrCreate(ctx, store.LabelSoftwareSystem, store.PropCMDB, m.cmdb)
	if err != nil {
		return 0, err
	}
	m.object[sys.ID] = node

	updates := map[string]any{
		store.PropName:        nilIfEmpty(sys.Name),
		store.PropDescription: nilIfEmpty(sys.Description),
		store.PropTags:        nilIfEmpty(sys.Tags),
		store.PropURL:         nilIfEmpty(sys.URL),
		store.PropGroup:       nilIfEmpty(sys.Group),
	}
	var version int64
	if m.global {
		prev, _ := store.IntProp(node.Props, store.PropVersion)
		version = prev + 1
		updates[store.PropVersion] = version
	}
	for k, v := range sys.Properties {
		updates[sanitizeKey(k)] = v
	}
	if err := m.graph.Nodes().SetProps(ctx, node.ID, updates); err != nil {
		return 0, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "updating system node",
			agerr.FieldNode(m.cmdb))
	}
	return version, nil
}

func (m *merge) updateContainers(ctx context.Context, subject *model.SoftwareSystem) error {
	for _, c := range subject.Containers {
		key := identity.ContainerKey(c.Name, m.cmdb)

		// The external name under which stubs for this container were
		// created. Components inherit it as their qualification root.
		componentRoot := m.cmdb
		extName := ""
		if local := c.ExternalName(); local != "" {
			extName = local + "." + m.cmdb
			componentRoot = extName
		}

		node, err := m.upsertContainer(ctx, c, key, extName)
		if err != nil {
			return err
		}
		m.object[c.ID] = node
		if err := m.upsertChild(ctx, subject.ID, c.ID); err != nil {
			return err
		}
		if err := m.updateComponents(ctx, c, key, componentRoot); err != nil {
			return err
		}
	}
	return nil
}

func (m *merge) upsertContainer(ctx context.Context, c *model.Container, key, extName string) (*store.Node, error) {
	writeExt := extName
	if extName != "" {
		stub, err := m.graph.Nodes().Find(ctx, m.tag, store.LabelContainer, store.PropExternalName, extName)
		switch {
		case err == nil:
			submitted := len(c.Relationships) + len(c.Components)
			replace, derr := m.replaceStub(ctx, stub, key, submitted)
			if derr != nil {
				return nil, derr
			}
			if replace {
				if err := m.graph.Nodes().SetProps(ctx, stub.ID, map[string]any{store.PropExternalName: nil}); err != nil {
					return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "retiring container stub",
						agerr.FieldNode(extName))
				}
			} else {
				// The stub carries more knowledge than this document;
				// it keeps the external name.
				writeExt = ""
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "looking up container stub",
				agerr.FieldNode(extName))
		}
	}

	node, err := m.findOrCreate(ctx, store.LabelContainer, store.PropName, key)
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		store.PropDescription: nilIfEmpty(c.Description),
		store.PropTechnology:  nilIfEmpty(c.Technology),
		store.PropTags:        nilIfEmpty(c.Tags),
		store.PropURL:         nilIfEmpty(c.URL),
		store.PropGroup:       nilIfEmpty(c.Group),
	}
	overrides := map[string]any{store.PropExternalName: nilIfEmpty(writeExt)}
	return node, m.applyNodeParams(ctx, node, params, c.Properties, overrides)
}

func (m *merge) updateComponents(ctx context.Context, c *model.Container, containerKey, componentRoot string) error {
	for _, comp := range c.Components {
		key := identity.ComponentKey(comp.Name, containerKey)
		extName := ""
		if local := comp.ExternalName(); local != "" {
			extName = local + "." + componentRoot
		}
		node, err := m.upsertComponent(ctx, comp, key, extName)
		if err != nil {
			return err
		}
		m.object[comp.ID] = node
		if err := m.upsertChild(ctx, c.ID, comp.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *merge) upsertComponent(ctx context.Context, comp *model.Component, key, extName string) (*store.Node, error) {
	writeExt := extName
	if extName != "" {
		stub, err := m.graph.Nodes().Find(ctx, m.tag, store.LabelComponent, store.PropExternalName, extName)
		switch {
		case err == nil:
			replace, derr := m.replaceStub(ctx, stub, key, len(comp.Relationships))
			if derr != nil {
				return nil, derr
			}
			if replace {
				if err := m.graph.Nodes().SetProps(ctx, stub.ID, map[string]any{store.PropExternalName: nil}); err != nil {
					return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "retiring component stub",
						agerr.FieldNode(extName))
				}
			} else {
				writeExt = ""
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "looking up component stub",
				agerr.FieldNode(extName))
		}
	}

	node, err := m.findOrCreate(ctx, store.LabelComponent, store.PropName, key)
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		store.PropDescription: nilIfEmpty(comp.Description),
		store.PropTechnology:  nilIfEmpty(comp.Technology),
		store.PropTags:        nilIfEmpty(comp.Tags),
		store.PropURL:         nilIfEmpty(comp.URL),
		store.PropGroup:       nilIfEmpty(comp.Group),
	}
	overrides := map[string]any{store.PropExternalName: nilIfEmpty(writeExt)}
	return node, m.applyNodeParams(ctx, node, params, comp.Properties, overrides)
}

// replaceStub decides whether the submitted entity supersedes an existing
// stub carrying its external name. A stub that was never versioned is
// adopted outright: it is renamed to the entity's key so the main upsert
// finds and promotes it. An open, versioned stub survives when it has
// accumulated at least as many connections as this document submits, or when
// a landscape submission created it.
func (m *merge) replaceStub(ctx context.Context, stub *store.Node, key string, submitted int) (bool, error) {
	if _, versioned := store.IntProp(stub.Props, store.PropStartVersion); !versioned {
		if err := m.graph.Nodes().SetProps(ctx, stub.ID, map[string]any{store.PropName: key}); err != nil {
			return false, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "promoting stub",
				agerr.FieldNode(key))
		}
		return true, nil
	}
	if !store.WindowOf(stub.Props).Open() {
		return true, nil
	}
	fan, err := m.graph.Nodes().FanCount(ctx, stub.ID)
	if err != nil {
		return false, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "counting stub connections")
	}
	if int(fan) >= submitted || store.StringProp(stub.Props, store.PropSource) == "landscape" {
		return false, nil
	}
	return true, nil
}

// updateModelRelationships walks every system in the document, not just the
// subject: the subject's document may describe connections between third
// parties. Tool-derived entries (linkedRelationshipId) are skipped; the
// underlying relationship appears on its own element.
func (m *merge) updateModelRelationships(ctx context.Context) error {
	for _, sys := range m.model.SoftwareSystems {
		for _, rel := range sys.Relationships {
			if rel.LinkedRelationshipID != "" {
				continue
			}
			if err := m.upsertRelationship(ctx, rel, "C1"); err != nil {
				return err
			}
		}
		for _, c := range sys.Containers {
			for _, rel := range c.Relationships {
				if rel.LinkedRelationshipID != "" {
					continue
				}
				if err := m.upsertRelationship(ctx, rel, "C2"); err != nil {
					return err
				}
			}
			for _, comp := range c.Components {
				for _, rel := range comp.Relationships {
					if rel.LinkedRelationshipID != "" {
						continue
					}
					if err := m.upsertRelationship(ctx, rel, "C3"); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (m *merge) updateDeploymentNodes(ctx context.Context, subject *model.SoftwareSystem) error {
	for _, dn := range m.model.DeploymentNodes {
		key := identity.Qualify(dn.Name, m.cmdb)
		if err := m.updateDeploymentNode(ctx, dn, key); err != nil {
			return err
		}
		if err := m.upsertChild(ctx, subject.ID, dn.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *merge) updateDeploymentNode(ctx context.Context, dn *model.DeploymentNode, key string) error {
	node, err := m.findOrCreate(ctx, store.LabelDeploymentNode, store.PropName, key)
	if err != nil {
		return err
	}
	m.object[dn.ID] = node
	params := map[string]any{
		store.PropDescription: nilIfEmpty(dn.Description),
		store.PropTechnology:  nilIfEmpty(dn.Technology),
		"instances":           nilIfEmpty(dn.Instances),
		store.PropTags:        nilIfEmpty(dn.Tags),
		store.PropURL:         nilIfEmpty(dn.URL),
		store.PropEnvironment: nilIfEmpty(dn.Environment),
	}
	if err := m.applyNodeParams(ctx, node, params, dn.Properties, nil); err != nil {
		return err
	}
	if err := m.linkEnvironment(ctx, dn.Environment, dn.ID); err != nil {
		return err
	}

	for _, inf := range dn.InfrastructureNodes {
		if err := m.updateInfrastructureNode(ctx, inf, key); err != nil {
			return err
		}
		if err := m.upsertChild(ctx, dn.ID, inf.ID); err != nil {
			return err
		}
		if err := m.linkEnvironment(ctx, inf.Environment, inf.ID); err != nil {
			return err
		}
	}
	for _, ci := range dn.ContainerInstances {
		if err := m.updateContainerInstance(ctx, dn, key, ci); err != nil {
			return err
		}
	}
	for _, child := range dn.Children {
		childKey := identity.Qualify(child.Name, key)
		if err := m.updateDeploymentNode(ctx, child, childKey); err != nil {
			return err
		}
		if err := m.upsertChild(ctx, dn.ID, child.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *merge) updateInfrastructureNode(ctx context.Context, inf *model.InfrastructureNode, dnKey string) error {
	key := identity.Qualify(inf.Name, dnKey)
	node, err := m.findOrCreate(ctx, store.LabelInfrastructureNode, store.PropName, key)
	if err != nil {
		return err
	}
	m.object[inf.ID] = node
	params := map[string]any{
		store.PropDescription: nilIfEmpty(inf.Description),
		store.PropTechnology:  nilIfEmpty(inf.Technology),
		store.PropTags:        nilIfEmpty(inf.Tags),
		store.PropEnvironment: nilIfEmpty(inf.Environment),
	}
	return m.applyNodeParams(ctx, node, params, inf.Properties, nil)
}

// updateContainerInstance names the instance after the deployed container.
// The container id must resolve within the document; instances of unknown
// containers are dropped, matching how unresolvable endpoints are handled.
func (m *merge) updateContainerInstance(ctx context.Context, dn *model.DeploymentNode, dnKey string, ci *model.ContainerInstance) error {
	cont, owner := m.findModelContainer(ci.ContainerID)
	if cont == nil {
		m.log.DebugContext(ctx, "skipping container instance with unknown container",
			"containerId", ci.ContainerID)
		return nil
	}
	containerName := cont.Name
	if owner.CMDB() == m.cmdb {
		containerName = identity.ContainerKey(cont.Name, m.cmdb)
	}
	key := identity.ContainerInstanceKey(containerName, dnKey)

	node, err := m.findOrCreate(ctx, store.LabelContainerInstance, store.PropName, key)
	if err != nil {
		return err
	}
	m.object[ci.ID] = node
	params := map[string]any{
		"instanceId":          int64(ci.InstanceID),
		store.PropTags:        nilIfEmpty(ci.Tags),
		store.PropEnvironment: nilIfEmpty(ci.Environment),
	}
	if err := m.applyNodeParams(ctx, node, params, ci.Properties, nil); err != nil {
		return err
	}
	if err := m.upsertDeploy(ctx, ci.ContainerID, ci.ID); err != nil {
		return err
	}
	if err := m.upsertChild(ctx, dn.ID, ci.ID); err != nil {
		return err
	}
	return m.linkEnvironment(ctx, ci.Environment, ci.ID)
}

func (m *merge) findModelContainer(id string) (*model.Container, *model.SoftwareSystem) {
	for _, sys := range m.model.SoftwareSystems {
		for _, c := range sys.Containers {
			if c.ID == id {
				return c, sys
			}
		}
	}
	return nil, nil
}

// linkEnvironment upserts the shared Environment node and a Child edge from
// it to the element. Environment nodes are keyed by plain name and carry no
// version window.
func (m *merge) linkEnvironment(ctx context.Context, environment, elementID string) error {
	if environment == "" {
		return nil
	}
	if _, ok := m.object[environment]; !ok {
		node, err := m.findOrCreate(ctx, store.LabelEnvironment, store.PropName, environment)
		if err != nil {
			return err
		}
		m.object[environment] = node
	}
	return m.upsertChild(ctx, environment, elementID)
}

func (m *merge) updateDeploymentRelationships(ctx context.Context, dn *model.DeploymentNode) error {
	for _, rel := range dn.Relationships {
		if err := m.upsertRelationship(ctx, rel, ""); err != nil {
			return err
		}
	}
	for _, inf := range dn.InfrastructureNodes {
		for _, rel := range inf.Relationships {
			if err := m.upsertRelationship(ctx, rel, ""); err != nil {
				return err
			}
		}
	}
	for _, ci := range dn.ContainerInstances {
		for _, rel := range ci.Relationships {
			if err := m.upsertRelationship(ctx, rel, ""); err != nil {
				return err
			}
		}
	}
	for _, child := range dn.Children {
		if err := m.updateDeploymentRelationships(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Node and edge upsert primitives
// ---------------------------------------------------------------------------

func (m *merge) findOrCreate(ctx context.Context, label, key, value string) (*store.Node, error) {
	node, err := m.graph.Nodes().Find(ctx, m.tag, label, key, value)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "looking up node",
			agerr.Field("label", label), agerr.FieldNode(value))
	}
	node, err = m.graph.Nodes().Create(ctx, m.tag, label, map[string]any{key: value})
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "creating node",
			agerr.Field("label", label), agerr.FieldNode(value))
	}
	return node, nil
}

// applyNodeParams writes the element's fields onto the node, reopening its
// version window. startVersion is written exactly once per node, with the
// version of the ingestion that first described it.
func (m *merge) applyNodeParams(ctx context.Context, node *store.Node, params map[string]any, bag map[string]string, overrides map[string]any) error {
	updates := make(map[string]any, len(params)+len(bag)+len(overrides)+2)
	for k, v := range params {
		updates[k] = v
	}
	if m.global {
		if _, versioned := store.IntProp(node.Props, store.PropStartVersion); !versioned {
			updates[store.PropStartVersion] = m.version
		}
	}
	updates[store.PropEndVersion] = nil
	for k, v := range bag {
		updates[sanitizeKey(k)] = v
	}
	for k, v := range overrides {
		updates[k] = v
	}
	if err := m.graph.Nodes().SetProps(ctx, node.ID, updates); err != nil {
		return agerr.Wrap(err, agerr.CodeGraphIngestFailure, "updating node",
			agerr.Field("label", node.Label), agerr.Field("id", node.ID))
	}
	return nil
}

func (m *merge) upsertRelationship(ctx context.Context, rel *model.Relationship, level string) error {
	src, err := m.resolve(ctx, rel.SourceID)
	if err != nil {
		return err
	}
	dst, err := m.resolve(ctx, rel.DestinationID)
	if err != nil {
		return err
	}
	if src == nil || dst == nil {
		m.log.DebugContext(ctx, "skipping relationship with unresolvable endpoint",
			"sourceId", rel.SourceID, "destinationId", rel.DestinationID)
		return nil
	}
	description := rel.Description
	if description == "" {
		description = "None"
	}
	params := map[string]any{
		store.PropTags:             nilIfEmpty(rel.Tags),
		store.PropURL:              nilIfEmpty(rel.URL),
		store.PropTechnology:       nilIfEmpty(rel.Technology),
		store.PropInteractionStyle: nilIfEmpty(rel.InteractionStyle),
		store.PropLevel:            level,
	}
	return m.writeEdge(ctx, src, dst, store.EdgeRelationship, description, params, rel.Properties)
}

// containmentParams clears the relationship-only fields on Child and Deploy
// edges.
func containmentParams() map[string]any {
	return map[string]any{
		store.PropTags:             nil,
		store.PropURL:              nil,
		store.PropTechnology:       nil,
		store.PropInteractionStyle: nil,
		store.PropLevel:            nil,
	}
}

func (m *merge) upsertChild(ctx context.Context, srcID, dstID string) error {
	return m.upsertContainment(ctx, srcID, dstID, store.EdgeChild)
}

func (m *merge) upsertDeploy(ctx context.Context, srcID, dstID string) error {
	return m.upsertContainment(ctx, srcID, dstID, store.EdgeDeploy)
}

func (m *merge) upsertContainment(ctx context.Context, srcID, dstID, typ string) error {
	src, err := m.resolve(ctx, srcID)
	if err != nil {
		return err
	}
	dst, err := m.resolve(ctx, dstID)
	if err != nil {
		return err
	}
	if src == nil || dst == nil {
		return nil
	}
	return m.writeEdge(ctx, src, dst, typ, typ, containmentParams(), nil)
}

// writeEdge upserts the edge identified by (src, dst, type, description,
// submitter) and reopens its window. For description-less dependencies the
// numberOfConnects counter tracks how many raw connections collapsed into
// the edge; it restarts after a snapshot close. The counter is derived from
// the edge's state before this write, so duplicates within one document
// accumulate.
func (m *merge) writeEdge(ctx context.Context, src, dst *store.Node, typ, description string, params map[string]any, extra map[string]string) error {
	e, err := m.graph.Edges().Find(ctx, src.ID, dst.ID, typ, description, m.cmdb)
	if errors.Is(err, store.ErrNotFound) {
		e, err = m.graph.Edges().Create(ctx, src.ID, dst.ID, typ, map[string]any{
			store.PropGraphTag:        m.tag,
			store.PropSourceWorkspace: m.cmdb,
			store.PropDescription:     description,
		})
	}
	if err != nil {
		return agerr.Wrap(err, agerr.CodeGraphIngestFailure, "upserting edge",
			agerr.Field("type", typ), agerr.Field("description", description))
	}

	updates := make(map[string]any, len(params)+len(extra)+3)
	for k, v := range params {
		updates[k] = v
	}
	if m.global {
		if _, versioned := store.IntProp(e.Props, store.PropStartVersion); !versioned {
			updates[store.PropStartVersion] = m.version
		}
	}
	if description == "None" {
		var base int64
		if c, ok := store.IntProp(e.Props, store.PropNumberOfConnects); ok && store.WindowOf(e.Props).Open() {
			base = c
		}
		updates[store.PropNumberOfConnects] = base + 1
	}
	updates[store.PropEndVersion] = nil
	for k, v := range extra {
		updates[sanitizeKey(k)] = v
	}
	if err := m.graph.Edges().SetProps(ctx, e.ID, updates); err != nil {
		return agerr.Wrap(err, agerr.CodeGraphIngestFailure, "updating edge",
			agerr.Field("type", typ), agerr.Field("description", description))
	}
	if typ == store.EdgeRelationship {
		m.relationships++
	}
	return nil
}
