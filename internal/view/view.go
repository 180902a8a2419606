// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package view assembles hierarchical diagram documents from the Global
// graph. Each build runs a fresh session against the store and produces a
// Structurizr-shaped workspace: the model tree of every element the view
// touches plus view definitions referencing those elements by allocated id.
// Builds read the graph as it stands; version windows are not consulted.
package view

import (
	"context"
	"errors"
	"log/slog"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

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

func normalizeRank(rank string) (string, error) {
	switch rank {
	case "":
		return RankLeftRight, nil
	case RankTopBottom, RankLeftRight:
		return rank, nil
	default:
		return "", agerr.Errorf(agerr.CodeViewRankInvalid,
			"rankDirection must be %s or %s, got %q", RankTopBottom, RankLeftRight, rank)
	}
}

func (s *Service) rootSystem(ctx context.Context, cmdb string) (*store.Node, error) {
	n, err := s.graph.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, cmdb)
	if errors.Is(err, store.ErrNotFound) {
		return nil, agerr.Errorf(agerr.CodeViewSystemNotFound, "system %q not found", cmdb)
	}
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeViewAssembleFailure, "looking up system",
			agerr.FieldCMDB(cmdb))
	}
	return n, nil
}

// ContextView builds the system landscape around one system: the subject,
// every entity with a direct edge to it, and the container breakdown. The
// document carries both the context and container view definitions.
func (s *Service) ContextView(ctx context.Context, cmdb, rank string) (*Document, error) {
	rank, err := normalizeRank(rank)
	if err != nil {
		return nil, err
	}
	b, err := s.modelScope(ctx, cmdb)
	if err != nil {
		return nil, err
	}
	doc := b.document()
	doc.Views.SystemContextViews = []*SystemContextView{b.contextView(rank)}
	doc.Views.ContainerViews = []*ContainerView{b.containerView(rank)}
	return doc, nil
}

// ContainerView builds the same model scope as ContextView but emits only
// the container view definition.
func (s *Service) ContainerView(ctx context.Context, cmdb, rank string) (*Document, error) {
	rank, err := normalizeRank(rank)
	if err != nil {
		return nil, err
	}
	b, err := s.modelScope(ctx, cmdb)
	if err != nil {
		return nil, err
	}
	doc := b.document()
	doc.Views.ContainerViews = []*ContainerView{b.containerView(rank)}
	return doc, nil
}

// ComponentView builds the component breakdown of one container. The
// container is matched by its local or fully qualified name.
func (s *Service) ComponentView(ctx context.Context, cmdb, container, rank string) (*Document, error) {
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

	cn, err := s.findContainer(ctx, sysNode, container, cmdb)
	if err != nil {
		return nil, err
	}
	cdoc, err := b.container(ctx, cn)
	if err != nil {
		return nil, err
	}
	comps, err := s.graph.Nodes().Children(ctx, cn.ID, store.LabelComponent)
	if err != nil {
		return nil, err
	}
	compDocs := make([]*Component, 0, len(comps))
	for _, n := range comps {
		cd, err := b.component(ctx, n)
		if err != nil {
			return nil, err
		}
		b.markOwn(cd.ID)
		compDocs = append(compDocs, cd)
	}
	for i, n := range comps {
		if err := b.componentRelationships(ctx, n, compDocs[i], cdoc, false, false); err != nil {
			return nil, err
		}
	}

	doc := b.document()
	doc.Views.ComponentViews = []*ComponentView{b.componentView(cdoc, rank)}
	return doc, nil
}

func (s *Service) findContainer(ctx context.Context, sysNode *store.Node, name, cmdb string) (*store.Node, error) {
	containers, err := s.graph.Nodes().Children(ctx, sysNode.ID, store.LabelContainer)
	if err != nil {
		return nil, err
	}
	qualified := identity.ContainerKey(name, cmdb)
	for _, c := range containers {
		got := store.StringProp(c.Props, store.PropName)
		if got == name || got == qualified {
			return c, nil
		}
	}
	return nil, agerr.Errorf(agerr.CodeViewContainerNotFound,
		"container %q not found under system %q", name, cmdb)
}

// modelScope materializes the subject, its containers and components, and
// every relationship discovered from them, echoing container and component
// edges up to the system and container level for the coarser views.
func (s *Service) modelScope(ctx context.Context, cmdb string) (*builder, error) {
	sysNode, err := s.rootSystem(ctx, cmdb)
	if err != nil {
		return nil, err
	}
	b := &builder{session: newSession(s.graph), sysNode: sysNode}
	b.subject = sysNode.ID
	b.sys = b.system(sysNode)

	containers, err := s.graph.Nodes().Children(ctx, sysNode.ID, store.LabelContainer)
	if err != nil {
		return nil, err
	}
	type ownContainer struct {
		node  *store.Node
		doc   *Container
		comps []*store.Node
		docs  []*Component
	}
	own := make([]ownContainer, 0, len(containers))
	for _, cn := range containers {
		cdoc, err := b.container(ctx, cn)
		if err != nil {
			return nil, err
		}
		b.markOwn(cdoc.ID)
		comps, err := s.graph.Nodes().Children(ctx, cn.ID, store.LabelComponent)
		if err != nil {
			return nil, err
		}
		oc := ownContainer{node: cn, doc: cdoc, comps: comps}
		for _, n := range comps {
			cd, err := b.component(ctx, n)
			if err != nil {
				return nil, err
			}
			b.markOwn(cd.ID)
			oc.docs = append(oc.docs, cd)
		}
		own = append(own, oc)
	}

	if err := b.systemRelationships(ctx); err != nil {
		return nil, err
	}
	for _, oc := range own {
		if err := b.containerRelationships(ctx, oc.node, oc.doc, true); err != nil {
			return nil, err
		}
		for i, n := range oc.comps {
			if err := b.componentRelationships(ctx, n, oc.docs[i], oc.doc, true, true); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// builder drives one view build over a session, rooted at the subject
// system.
type builder struct {
	*session
	sysNode *store.Node
	sys     *SoftwareSystem
}

func (b *builder) document() *Document {
	return &Document{ID: 1, Model: Model{SoftwareSystems: b.modelSystems()}}
}

func (b *builder) systemRelationships(ctx context.Context) error {
	out, err := b.graph.Edges().From(ctx, b.sysNode.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range out {
		dest, err := b.graph.Nodes().FindByID(ctx, e.DestID)
		if err != nil {
			return err
		}
		destSys, err := b.externalSystemOf(ctx, dest)
		if err != nil || destSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if r := b.relationship(e, b.sys.ID, destSys.ID); r != nil {
			b.sys.Relationships = append(b.sys.Relationships, r)
		}
	}
	in, err := b.graph.Edges().To(ctx, b.sysNode.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range in {
		src, err := b.graph.Nodes().FindByID(ctx, e.SourceID)
		if err != nil {
			return err
		}
		if b.isOwnChild(src.ID) {
			continue
		}
		srcSys, err := b.externalSystemOf(ctx, src)
		if err != nil || srcSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if r := b.relationship(e, srcSys.ID, b.sys.ID); r != nil {
			srcSys.Relationships = append(srcSys.Relationships, r)
		}
	}
	return nil
}

func (b *builder) containerRelationships(ctx context.Context, cn *store.Node, cdoc *Container, addToSystem bool) error {
	out, err := b.graph.Edges().From(ctx, cn.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range out {
		dest, err := b.graph.Nodes().FindByID(ctx, e.DestID)
		if err != nil {
			return err
		}
		destSys, err := b.externalSystemOf(ctx, dest)
		if err != nil || destSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if destSys.ID != b.sys.ID {
			// Foreign endpoint: the edge collapses to the owning system.
			if r := b.relationship(e, cdoc.ID, destSys.ID); r != nil {
				cdoc.Relationships = append(cdoc.Relationships, r)
			}
			if addToSystem {
				if r := b.relationship(e, b.sys.ID, destSys.ID); r != nil {
					b.sys.Relationships = append(b.sys.Relationships, r)
				}
			}
			continue
		}
		if r := b.relationship(e, cdoc.ID, b.ids[dest.ID]); r != nil {
			cdoc.Relationships = append(cdoc.Relationships, r)
		}
	}

	in, err := b.graph.Edges().To(ctx, cn.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range in {
		src, err := b.graph.Nodes().FindByID(ctx, e.SourceID)
		if err != nil {
			return err
		}
		if b.isOwnChild(src.ID) {
			continue
		}
		srcSys, err := b.externalSystemOf(ctx, src)
		if err != nil || srcSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if r := b.relationship(e, srcSys.ID, cdoc.ID); r != nil {
			srcSys.Relationships = append(srcSys.Relationships, r)
		}
		if addToSystem && srcSys.ID != b.sys.ID {
			if r := b.relationship(e, srcSys.ID, b.sys.ID); r != nil {
				srcSys.Relationships = append(srcSys.Relationships, r)
			}
		}
	}
	return nil
}

func (b *builder) componentRelationships(ctx context.Context, n *store.Node, comp *Component, cdoc *Container,
	addToSystem, addToContainer bool) error {
	out, err := b.graph.Edges().From(ctx, n.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range out {
		dest, err := b.graph.Nodes().FindByID(ctx, e.DestID)
		if err != nil {
			return err
		}
		destSys, err := b.externalSystemOf(ctx, dest)
		if err != nil || destSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if destSys.ID != b.sys.ID {
			if r := b.relationship(e, comp.ID, destSys.ID); r != nil {
				comp.Relationships = append(comp.Relationships, r)
			}
			if addToSystem {
				if r := b.relationship(e, b.sys.ID, destSys.ID); r != nil {
					b.sys.Relationships = append(b.sys.Relationships, r)
				}
			}
			if addToContainer {
				if r := b.relationship(e, cdoc.ID, destSys.ID); r != nil {
					cdoc.Relationships = append(cdoc.Relationships, r)
				}
			}
			continue
		}
		if r := b.relationship(e, comp.ID, b.ids[dest.ID]); r != nil {
			comp.Relationships = append(comp.Relationships, r)
		}
	}

	in, err := b.graph.Edges().To(ctx, n.ID, store.EdgeRelationship)
	if err != nil {
		return err
	}
	for _, e := range in {
		src, err := b.graph.Nodes().FindByID(ctx, e.SourceID)
		if err != nil {
			return err
		}
		if b.isOwnChild(src.ID) {
			continue
		}
		srcSys, err := b.externalSystemOf(ctx, src)
		if err != nil || srcSys == nil {
			if err != nil {
				return err
			}
			continue
		}
		if r := b.relationship(e, srcSys.ID, comp.ID); r != nil {
			srcSys.Relationships = append(srcSys.Relationships, r)
		}
		if srcSys.ID != b.sys.ID {
			if addToSystem {
				if r := b.relationship(e, srcSys.ID, b.sys.ID); r != nil {
					srcSys.Relationships = append(srcSys.Relationships, r)
				}
			}
			if addToContainer {
				if r := b.relationship(e, srcSys.ID, cdoc.ID); r != nil {
					srcSys.Relationships = append(srcSys.Relationships, r)
				}
			}
		}
	}
	return nil
}

func (b *builder) contextView(rank string) *SystemContextView {
	v := &SystemContextView{
		Key:                       "context",
		Order:                     1,
		SoftwareSystemID:          b.sys.ID,
		EnterpriseBoundaryVisible: true,
		Elements:                  []ElementRef{},
		Relationships:             []RelationshipRef{},
		AutomaticLayout:           newAutomaticLayout(rank),
	}
	seen := map[string]struct{}{b.sys.ID: {}}
	v.Elements = append(v.Elements, ElementRef{ID: b.sys.ID})
	for _, sys := range b.modelSystems() {
		for _, r := range sys.Relationships {
			if r.SourceID != b.sys.ID && r.DestinationID != b.sys.ID {
				continue
			}
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
			other := r.DestinationID
			if other == b.sys.ID {
				other = r.SourceID
			}
			if _, ok := seen[other]; !ok {
				seen[other] = struct{}{}
				v.Elements = append(v.Elements, ElementRef{ID: other})
			}
		}
	}
	return v
}

func (b *builder) containerView(rank string) *ContainerView {
	v := &ContainerView{
		Key:              "containers",
		Order:            2,
		SoftwareSystemID: b.sys.ID,
		Elements:         []ElementRef{},
		Relationships:    []RelationshipRef{},
		AutomaticLayout:  newAutomaticLayout(rank),
	}
	// The subject itself is tracked but not drawn: its containers replace
	// it on this view.
	seen := map[string]struct{}{b.sys.ID: {}}
	containerIDs := make(map[string]struct{}, len(b.sys.Containers))
	for _, c := range b.sys.Containers {
		if _, ok := seen[c.ID]; !ok {
			seen[c.ID] = struct{}{}
			v.Elements = append(v.Elements, ElementRef{ID: c.ID})
		}
		containerIDs[c.ID] = struct{}{}
		for _, r := range c.Relationships {
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
			if _, ok := seen[r.DestinationID]; !ok {
				seen[r.DestinationID] = struct{}{}
				v.Elements = append(v.Elements, ElementRef{ID: r.DestinationID})
			}
		}
	}
	for _, sys := range b.modelSystems() {
		for _, r := range sys.Relationships {
			if _, ok := containerIDs[r.DestinationID]; !ok {
				continue
			}
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
			if _, ok := seen[r.SourceID]; !ok {
				seen[r.SourceID] = struct{}{}
				v.Elements = append(v.Elements, ElementRef{ID: r.SourceID})
			}
		}
	}
	return v
}

func (b *builder) componentView(cdoc *Container, rank string) *ComponentView {
	v := &ComponentView{
		Key:                                "components",
		Order:                              3,
		ContainerID:                        cdoc.ID,
		ExternalContainerBoundariesVisible: true,
		Elements:                           []ElementRef{},
		Relationships:                      []RelationshipRef{},
		AutomaticLayout:                    newAutomaticLayout(rank),
	}
	seen := make(map[string]struct{})
	componentIDs := make(map[string]struct{}, len(cdoc.Components))
	for _, c := range cdoc.Components {
		if _, ok := seen[c.ID]; !ok {
			seen[c.ID] = struct{}{}
			v.Elements = append(v.Elements, ElementRef{ID: c.ID})
		}
		componentIDs[c.ID] = struct{}{}
		for _, r := range c.Relationships {
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
			if _, ok := seen[r.DestinationID]; !ok {
				seen[r.DestinationID] = struct{}{}
				v.Elements = append(v.Elements, ElementRef{ID: r.DestinationID})
			}
		}
	}
	for _, sys := range b.modelSystems() {
		for _, r := range sys.Relationships {
			if _, ok := componentIDs[r.DestinationID]; !ok {
				continue
			}
			v.Relationships = append(v.Relationships, RelationshipRef{ID: r.ID})
			if _, ok := seen[r.SourceID]; !ok {
				seen[r.SourceID] = struct{}{}
				v.Elements = append(v.Elements, ElementRef{ID: r.SourceID})
			}
		}
	}
	return v
}
