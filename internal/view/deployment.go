// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package view

import (
	"context"

	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// treeEntry remembers a materialized deployment-tree node so the second
// pass can attach its relationships to the right document.
type treeEntry struct {
	node *store.Node
	rels *[]*Relationship
}

// DeploymentView builds the deployment topology of one system in one
// environment. A deployment node whose environment does not match hides its
// whole subtree. Container instances resolve their ContainerID through the
// inbound Deploy edge; instances of containers outside the model are
// dropped.
func (s *Service) DeploymentView(ctx context.Context, cmdb, environment, rank string) (*Document, error) {
	rank, err := normalizeRank(rank)
	if err != nil {
		return nil, err
	}
	sysNode, err := s.rootSystem(ctx, cmdb)
	if err != nil {
		return nil, err
	}
	b := &builder{session: newSession(s.graph), sysNode: sysNode}
	b.subject = sysNode.ID
	b.sys = b.system(sysNode)

	// Containers are materialized up front so instances can point at them,
	// but they are not elements of this view.
	containers, err := s.graph.Nodes().Children(ctx, sysNode.ID, store.LabelContainer)
	if err != nil {
		return nil, err
	}
	for _, cn := range containers {
		if _, err := b.container(ctx, cn); err != nil {
			return nil, err
		}
	}

	tops, err := s.graph.Nodes().Children(ctx, sysNode.ID, store.LabelDeploymentNode)
	if err != nil {
		return nil, err
	}
	d := &deploymentBuild{builder: b, environment: environment}
	var topDocs []*DeploymentNode
	for _, n := range tops {
		dn, err := d.deploymentNode(ctx, n)
		if err != nil {
			return nil, err
		}
		if dn != nil {
			topDocs = append(topDocs, dn)
		}
	}
	if len(topDocs) == 0 {
		return nil, agerr.Errorf(agerr.CodeViewEnvironmentNotFound,
			"system %q has no deployment nodes in environment %q", cmdb, environment)
	}
	if err := d.attachRelationships(ctx); err != nil {
		return nil, err
	}

	doc := b.document()
	doc.Model.DeploymentNodes = topDocs
	doc.Views.DeploymentViews = []*DeploymentView{d.view(topDocs, rank)}
	return doc, nil
}

type deploymentBuild struct {
	*builder
	environment string
	tree        []treeEntry
}

func (d *deploymentBuild) matches(n *store.Node) bool {
	return store.StringProp(n.Props, store.PropEnvironment) == d.environment
}

func (d *deploymentBuild) deploymentNode(ctx context.Context, n *store.Node) (*DeploymentNode, error) {
	if !d.matches(n) {
		return nil, nil
	}
	dn := &DeploymentNode{
		ID:          d.allocate(n.ID),
		Name:        store.StringProp(n.Props, store.PropName),
		Description: store.StringProp(n.Props, store.PropDescription),
		Technology:  store.StringProp(n.Props, store.PropTechnology),
		Instances:   store.StringProp(n.Props, "instances"),
		Tags:        store.StringProp(n.Props, store.PropTags),
		URL:         store.StringProp(n.Props, store.PropURL),
		Environment: d.environment,
		Properties: bag(n.Props, store.PropName, store.PropDescription, store.PropTechnology,
			"instances", store.PropTags, store.PropURL, store.PropEnvironment),
	}
	d.tree = append(d.tree, treeEntry{node: n, rels: &dn.Relationships})

	infras, err := d.graph.Nodes().Children(ctx, n.ID, store.LabelInfrastructureNode)
	if err != nil {
		return nil, err
	}
	for _, in := range infras {
		if !d.matches(in) {
			continue
		}
		inf := &InfrastructureNode{
			ID:          d.allocate(in.ID),
			Name:        store.StringProp(in.Props, store.PropName),
			Description: store.StringProp(in.Props, store.PropDescription),
			Technology:  store.StringProp(in.Props, store.PropTechnology),
			Tags:        store.StringProp(in.Props, store.PropTags),
			Environment: d.environment,
			Properties: bag(in.Props, store.PropName, store.PropDescription,
				store.PropTechnology, store.PropTags, store.PropEnvironment),
		}
		d.tree = append(d.tree, treeEntry{node: in, rels: &inf.Relationships})
		dn.InfrastructureNodes = append(dn.InfrastructureNodes, inf)
	}

	insts, err := d.graph.Nodes().Children(ctx, n.ID, store.LabelContainerInstance)
	if err != nil {
		return nil, err
	}
	for _, cn := range insts {
		if !d.matches(cn) {
			continue
		}
		ci, err := d.containerInstance(ctx, cn)
		if err != nil {
			return nil, err
		}
		if ci != nil {
			dn.ContainerInstances = append(dn.ContainerInstances, ci)
		}
	}

	children, err := d.graph.Nodes().Children(ctx, n.ID, store.LabelDeploymentNode)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		child, err := d.deploymentNode(ctx, c)
		if err != nil {
			return nil, err
		}
		if child != nil {
			dn.Children = append(dn.Children, child)
		}
	}
	return dn, nil
}

func (d *deploymentBuild) containerInstance(ctx context.Context, n *store.Node) (*ContainerInstance, error) {
	deploys, err := d.graph.Edges().To(ctx, n.ID, store.EdgeDeploy)
	if err != nil {
		return nil, err
	}
	var containerID string
	for _, e := range deploys {
		if id, ok := d.ids[e.SourceID]; ok {
			containerID = id
			break
		}
	}
	if containerID == "" {
		return nil, nil
	}
	instanceID, _ := store.IntProp(n.Props, "instanceId")
	ci := &ContainerInstance{
		ID:          d.allocate(n.ID),
		ContainerID: containerID,
		InstanceID:  instanceID,
		Tags:        store.StringProp(n.Props, store.PropTags),
		Environment: d.environment,
		Properties: bag(n.Props, store.PropName, "instanceId", store.PropTags,
			store.PropEnvironment),
	}
	d.tree = append(d.tree, treeEntry{node: n, rels: &ci.Relationships})
	return ci, nil
}

// attachRelationships runs after the whole tree is materialized so edges
// between siblings resolve regardless of build order. Edges pointing
// outside the materialized model are skipped.
func (d *deploymentBuild) attachRelationships(ctx context.Context) error {
	for _, entry := range d.tree {
		edges, err := d.graph.Edges().From(ctx, entry.node.ID, store.EdgeRelationship)
		if err != nil {
			return err
		}
		for _, e := range edges {
			destID, ok := d.ids[e.DestID]
			if !ok {
				continue
			}
			if r := d.relationship(e, d.ids[entry.node.ID], destID); r != nil {
				*entry.rels = append(*entry.rels, r)
			}
		}
	}
	return nil
}

func (d *deploymentBuild) view(tops []*DeploymentNode, rank string) *DeploymentView {
	v := &DeploymentView{
		Key:              d.environment + "-01",
		Order:            4,
		Title:            d.environment,
		SoftwareSystemID: d.sys.ID,
		Environment:      d.environment,
		Elements:         []ElementRef{},
		Relationships:    []RelationshipRef{},
		AutomaticLayout:  newAutomaticLayout(rank),
	}
	seen := make(map[string]struct{})
	var walk func(dn *DeploymentNode)
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			v.Elements = append(v.Elements, ElementRef{ID: id})
		}
	}
	rels := func(rs []*Relationship) {
		for _, r := range rs {
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
		}
	}
	walk = func(dn *DeploymentNode) {
		add(dn.ID)
		rels(dn.Relationships)
		for _, inf := range dn.InfrastructureNodes {
			add(inf.ID)
			rels(inf.Relationships)
		}
		for _, ci := range dn.ContainerInstances {
			add(ci.ID)
			rels(ci.Relationships)
		}
		for _, c := range dn.Children {
			walk(c)
		}
	}
	for _, dn := range tops {
		walk(dn)
	}
	return v
}
