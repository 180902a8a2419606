// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package graph_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store"
	"github.com/archigraph/archigraph/internal/store/memory"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

func newService(t *testing.T) (*graph.Service, *memory.Store) {
	t.Helper()
	g := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return graph.NewService(g, nil, log), g
}

// crmWorkspace is a document for system CRM-1 with one container, one
// component, a second system BILL-7 it talks to, and relationships at the
// system and container level.
func crmWorkspace() *model.Workspace {
	return &model.Workspace{
		Name: "crm",
		Model: model.Model{
			Properties: map[string]string{"workspace_cmdb": "CRM-1"},
			SoftwareSystems: []*model.SoftwareSystem{
				{
					ID:         "1",
					Name:       "Customer Portal",
					Properties: map[string]string{"cmdb": "CRM-1"},
					Containers: []*model.Container{
						{
							ID:         "2",
							Name:       "backend",
							Technology: "Go",
							Components: []*model.Component{
								{ID: "3", Name: "api"},
							},
							Relationships: []*model.Relationship{
								{SourceID: "2", DestinationID: "10", Description: "Sends invoices"},
							},
						},
					},
					Relationships: []*model.Relationship{
						{SourceID: "1", DestinationID: "10"},
					},
				},
				{
					ID:         "10",
					Name:       "Billing",
					Properties: map[string]string{"cmdb": "BILL-7"},
				},
			},
		},
	}
}

func findNode(t *testing.T, g store.Graph, tag, label, key, value string) *store.Node {
	t.Helper()
	n, err := g.Nodes().Find(context.Background(), tag, label, key, value)
	require.NoError(t, err, "%s %s=%s", label, key, value)
	return n
}

func TestIngestGlobalFirstVersion(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	res, err := svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, "CRM-1", res.CMDB)
	assert.Positive(t, res.Elements)
	assert.Positive(t, res.Relationships)

	sys := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	assert.Equal(t, "Customer Portal", store.StringProp(sys.Props, store.PropName))
	v, _ := store.IntProp(sys.Props, store.PropVersion)
	assert.Equal(t, int64(1), v)

	cont := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropName, "backend~CRM-1")
	w := store.WindowOf(cont.Props)
	assert.Equal(t, int64(1), w.Start)
	assert.True(t, w.Open())
	assert.Equal(t, "Go", store.StringProp(cont.Props, store.PropTechnology))

	comp := findNode(t, g, store.TagGlobal, store.LabelComponent, store.PropName, "api~backend~CRM-1")
	assert.Equal(t, int64(1), store.WindowOf(comp.Props).Start)

	// Containment edges exist and were submitted by the subject.
	child, err := g.Edges().Find(ctx, sys.ID, cont.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
	assert.True(t, store.WindowOf(child.Props).Open())
	_, err = g.Edges().Find(ctx, cont.ID, comp.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
}

func TestIngestGlobalCreatesSystemStubAndLeveledEdges(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	_, err := svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)

	// BILL-7 was never submitted, so it exists only as a stub: named, no
	// version counter.
	bill := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "BILL-7")
	assert.Equal(t, "Billing", store.StringProp(bill.Props, store.PropName))
	_, hasVersion := store.IntProp(bill.Props, store.PropVersion)
	assert.False(t, hasVersion)

	crm := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	sysRel, err := g.Edges().Find(ctx, crm.ID, bill.ID, store.EdgeRelationship, "None", "CRM-1")
	require.NoError(t, err)
	assert.Equal(t, "C1", store.StringProp(sysRel.Props, store.PropLevel))
	start, _ := store.IntProp(sysRel.Props, store.PropStartVersion)
	assert.Equal(t, int64(1), start)

	cont := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropName, "backend~CRM-1")
	contRel, err := g.Edges().Find(ctx, cont.ID, bill.ID, store.EdgeRelationship, "Sends invoices", "CRM-1")
	require.NoError(t, err)
	assert.Equal(t, "C2", store.StringProp(contRel.Props, store.PropLevel))
}

func TestReingestClosesDroppedAndKeepsResubmitted(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	_, err := svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)

	// Second version drops the component.
	ws := crmWorkspace()
	ws.Model.SoftwareSystems[0].Containers[0].Components = nil
	res, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	cont := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropName, "backend~CRM-1")
	w := store.WindowOf(cont.Props)
	assert.Equal(t, int64(1), w.Start, "startVersion is written once")
	assert.True(t, w.Open(), "resubmitted element is reopened")

	comp := findNode(t, g, store.TagGlobal, store.LabelComponent, store.PropName, "api~backend~CRM-1")
	cw := store.WindowOf(comp.Props)
	require.False(t, cw.Open(), "dropped element stays closed")
	assert.Equal(t, int64(1), *cw.End)
}

func TestReingestReopensPreviouslyDropped(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	_, err := svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)

	dropped := crmWorkspace()
	dropped.Model.SoftwareSystems[0].Containers[0].Components = nil
	_, err = svc.IngestGlobal(ctx, dropped)
	require.NoError(t, err)

	// Third version submits the component again.
	_, err = svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)

	comp := findNode(t, g, store.TagGlobal, store.LabelComponent, store.PropName, "api~backend~CRM-1")
	w := store.WindowOf(comp.Props)
	assert.True(t, w.Open())
	assert.Equal(t, int64(1), w.Start, "reopening keeps the original startVersion")
}

func TestNumberOfConnectsCountsAndResets(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	// Two description-less relationships between the same endpoints
	// collapse into one edge counting both.
	ws := crmWorkspace()
	sys := ws.Model.SoftwareSystems[0]
	sys.Relationships = append(sys.Relationships,
		&model.Relationship{SourceID: "1", DestinationID: "10"})
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	crm := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	bill := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "BILL-7")
	edge, err := g.Edges().Find(ctx, crm.ID, bill.ID, store.EdgeRelationship, "None", "CRM-1")
	require.NoError(t, err)
	connects, _ := store.IntProp(edge.Props, store.PropNumberOfConnects)
	assert.Equal(t, int64(2), connects)

	// The next ingestion closes the snapshot first, so the counter
	// restarts instead of accumulating across versions.
	_, err = svc.IngestGlobal(ctx, crmWorkspace())
	require.NoError(t, err)
	edge, err = g.Edges().Find(ctx, crm.ID, bill.ID, store.EdgeRelationship, "None", "CRM-1")
	require.NoError(t, err)
	connects, _ = store.IntProp(edge.Props, store.PropNumberOfConnects)
	assert.Equal(t, int64(1), connects)
}

func TestLinkedRelationshipsAreSkipped(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	ws := crmWorkspace()
	ws.Model.SoftwareSystems[0].Relationships = append(ws.Model.SoftwareSystems[0].Relationships,
		&model.Relationship{SourceID: "1", DestinationID: "10", Description: "derived", LinkedRelationshipID: "99"})
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	crm := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	bill := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "BILL-7")
	_, err = g.Edges().Find(ctx, crm.ID, bill.ID, store.EdgeRelationship, "derived", "CRM-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnresolvableEndpointIsDropped(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	ws := crmWorkspace()
	ws.Model.SoftwareSystems[0].Relationships = append(ws.Model.SoftwareSystems[0].Relationships,
		&model.Relationship{SourceID: "1", DestinationID: "404", Description: "to nowhere"})
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	crm := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	edges, err := g.Edges().From(ctx, crm.ID, store.EdgeRelationship)
	require.NoError(t, err)
	for _, e := range edges {
		assert.NotEqual(t, "to nowhere", store.StringProp(e.Props, store.PropDescription))
	}
}

// billingClaims is a BILL-7 document describing the container that CRM-1
// only knew as an external reference.
func billingClaims() *model.Workspace {
	return &model.Workspace{
		Model: model.Model{
			Properties: map[string]string{"workspace_cmdb": "BILL-7"},
			SoftwareSystems: []*model.SoftwareSystem{
				{
					ID:         "1",
					Name:       "Billing",
					Properties: map[string]string{"cmdb": "BILL-7"},
					Containers: []*model.Container{
						{
							ID:         "2",
							Name:       "ledger",
							Properties: map[string]string{"external_name": "ledger"},
						},
					},
				},
			},
		},
	}
}

func TestContainerStubPromotion(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	// CRM-1 references BILL-7's ledger container before BILL-7 ever
	// submits: a stub is materialized under external name "ledger.BILL-7".
	ws := crmWorkspace()
	bill := ws.Model.SoftwareSystems[1]
	bill.Containers = []*model.Container{{
		ID:         "11",
		Name:       "ledger",
		Properties: map[string]string{"external_name": "ledger"},
	}}
	ws.Model.SoftwareSystems[0].Containers[0].Relationships = []*model.Relationship{
		{SourceID: "2", DestinationID: "11", Description: "Posts entries"},
	}
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	stub := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropExternalName, "ledger.BILL-7")
	assert.Equal(t, "ledger", store.StringProp(stub.Props, store.PropName))
	_, versioned := store.IntProp(stub.Props, store.PropStartVersion)
	assert.False(t, versioned)

	// The stub hangs off its owning system.
	billSys := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "BILL-7")
	_, err = g.Edges().Find(ctx, billSys.ID, stub.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)

	// When BILL-7 submits the real container, the stub is adopted: same
	// node, qualified name, external name cleared, versioned.
	res, err := svc.IngestGlobal(ctx, billingClaims())
	require.NoError(t, err)

	promoted, err := g.Nodes().FindByID(ctx, stub.ID)
	require.NoError(t, err)
	assert.Equal(t, "ledger~BILL-7", store.StringProp(promoted.Props, store.PropName))
	start, _ := store.IntProp(promoted.Props, store.PropStartVersion)
	assert.Equal(t, res.Version, start)
	assert.Equal(t, "ledger.BILL-7", store.StringProp(promoted.Props, store.PropExternalName),
		"the claiming document re-publishes the external name")
}

func TestOpenStubWithMoreConnectionsWins(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	// One document submits two containers claiming the same external
	// name. The first becomes a versioned open node with that name; the
	// second submits nothing of its own, so the first keeps it.
	ws := &model.Workspace{
		Model: model.Model{
			Properties: map[string]string{"workspace_cmdb": "CRM-1"},
			SoftwareSystems: []*model.SoftwareSystem{
				{
					ID:         "1",
					Name:       "Customer Portal",
					Properties: map[string]string{"cmdb": "CRM-1"},
					Containers: []*model.Container{
						{
							ID:         "2",
							Name:       "backend",
							Properties: map[string]string{"external_name": "core"},
							Components: []*model.Component{{ID: "3", Name: "api"}},
						},
						{
							ID:         "4",
							Name:       "worker",
							Properties: map[string]string{"external_name": "core"},
						},
					},
				},
			},
		},
	}
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	holder := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropExternalName, "core.CRM-1")
	assert.Equal(t, "backend~CRM-1", store.StringProp(holder.Props, store.PropName))

	worker := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropName, "worker~CRM-1")
	assert.Empty(t, store.StringProp(worker.Props, store.PropExternalName))
}

func TestDeploymentTopology(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	ws := crmWorkspace()
	ws.Model.DeploymentNodes = []*model.DeploymentNode{
		{
			ID:          "20",
			Name:        "aws",
			Environment: "prod",
			Children: []*model.DeploymentNode{
				{
					ID:          "21",
					Name:        "eu-west",
					Environment: "prod",
					InfrastructureNodes: []*model.InfrastructureNode{
						{ID: "22", Name: "lb", Environment: "prod", Technology: "nginx"},
					},
					ContainerInstances: []*model.ContainerInstance{
						{ID: "23", ContainerID: "2", Environment: "prod", InstanceID: 1},
					},
				},
			},
		},
	}
	_, err := svc.IngestGlobal(ctx, ws)
	require.NoError(t, err)

	sys := findNode(t, g, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	aws := findNode(t, g, store.TagGlobal, store.LabelDeploymentNode, store.PropName, "aws~CRM-1")
	euWest := findNode(t, g, store.TagGlobal, store.LabelDeploymentNode, store.PropName, "eu-west~aws~CRM-1")
	infra := findNode(t, g, store.TagGlobal, store.LabelInfrastructureNode, store.PropName, "lb~eu-west~aws~CRM-1")
	inst := findNode(t, g, store.TagGlobal, store.LabelContainerInstance, store.PropName,
		"backend~CRM-1.ContainerInstance.eu-west~aws~CRM-1")

	_, err = g.Edges().Find(ctx, sys.ID, aws.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
	_, err = g.Edges().Find(ctx, aws.ID, euWest.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
	_, err = g.Edges().Find(ctx, euWest.ID, infra.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
	_, err = g.Edges().Find(ctx, euWest.ID, inst.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)

	// The deployed container points at its instance.
	cont := findNode(t, g, store.TagGlobal, store.LabelContainer, store.PropName, "backend~CRM-1")
	_, err = g.Edges().Find(ctx, cont.ID, inst.ID, store.EdgeDeploy, "Deploy", "CRM-1")
	require.NoError(t, err)

	// The shared environment node links into the topology.
	env := findNode(t, g, store.TagGlobal, store.LabelEnvironment, store.PropName, "prod")
	_, err = g.Edges().Find(ctx, env.ID, euWest.ID, store.EdgeChild, "Child", "CRM-1")
	require.NoError(t, err)
	assert.Equal(t, "prod", store.StringProp(euWest.Props, store.PropEnvironment))
}

func TestRebuildLocal(t *testing.T) {
	ctx := context.Background()
	svc, g := newService(t)

	res, err := svc.RebuildLocal(ctx, "CRM-1", crmWorkspace())
	require.NoError(t, err)
	assert.Equal(t, "Local:CRM-1", res.GraphTag)
	assert.Zero(t, res.Version)

	sys := findNode(t, g, "Local:CRM-1", store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	_, hasVersion := store.IntProp(sys.Props, store.PropVersion)
	assert.False(t, hasVersion)
	cont := findNode(t, g, "Local:CRM-1", store.LabelContainer, store.PropName, "backend~CRM-1")
	_, versioned := store.IntProp(cont.Props, store.PropStartVersion)
	assert.False(t, versioned, "local graphs carry no version windows")

	// A rebuild regenerates from scratch: renamed containers do not pile
	// up next to their previous incarnation.
	ws := crmWorkspace()
	ws.Model.SoftwareSystems[0].Containers[0].Name = "backend-v2"
	_, err = svc.RebuildLocal(ctx, "CRM-1", ws)
	require.NoError(t, err)

	_, err = g.Nodes().Find(ctx, "Local:CRM-1", store.LabelContainer, store.PropName, "backend~CRM-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	findNode(t, g, "Local:CRM-1", store.LabelContainer, store.PropName, "backend-v2~CRM-1")

	// The Global graph is untouched.
	_, err = g.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "CRM-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRebuildLocalRejectsMismatchedCMDB(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RebuildLocal(context.Background(), "OTHER-1", crmWorkspace())
	require.Error(t, err)
	assert.True(t, agerr.IsInvalidInput(err))
}

func TestIngestRejectsDocumentWithoutSubject(t *testing.T) {
	svc, _ := newService(t)
	ws := crmWorkspace()
	ws.Model.Properties["workspace_cmdb"] = "MISSING-1"
	_, err := svc.IngestGlobal(context.Background(), ws)
	require.Error(t, err)
	assert.True(t, agerr.IsInvalidInput(err))
}
