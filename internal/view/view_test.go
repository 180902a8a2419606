// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package view_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store/memory"
	"github.com/archigraph/archigraph/internal/view"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// seed ingests two workspaces and returns a view service over the result:
// CRM-1 with two containers, a component talking to BILL-7, and a prod
// deployment topology, then BILL-7 with a relationship back into CRM-1.
func seed(t *testing.T) *view.Service {
	t.Helper()
	ctx := context.Background()
	g := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := graph.NewService(g, nil, log)

	crm := &model.Workspace{
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
								{
									ID:   "3",
									Name: "api",
									Relationships: []*model.Relationship{
										{SourceID: "3", DestinationID: "10", Description: "Posts invoices"},
									},
								},
							},
						},
						{
							ID:   "4",
							Name: "frontend",
							Relationships: []*model.Relationship{
								{SourceID: "4", DestinationID: "2", Description: "Calls"},
							},
						},
					},
					Relationships: []*model.Relationship{
						{SourceID: "1", DestinationID: "10", Description: "Uses"},
					},
				},
				{
					ID:         "10",
					Name:       "Billing",
					Properties: map[string]string{"cmdb": "BILL-7"},
				},
			},
			DeploymentNodes: []*model.DeploymentNode{
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
								{
									ID:          "22",
									Name:        "lb",
									Environment: "prod",
									Technology:  "nginx",
									Relationships: []*model.Relationship{
										{SourceID: "22", DestinationID: "23", Description: "Routes to"},
									},
								},
							},
							ContainerInstances: []*model.ContainerInstance{
								{ID: "23", ContainerID: "2", Environment: "prod", InstanceID: 1},
							},
						},
					},
				},
				{ID: "30", Name: "onprem", Environment: "staging"},
			},
		},
	}
	_, err := svc.IngestGlobal(ctx, crm)
	require.NoError(t, err)

	billing := &model.Workspace{
		Name: "billing",
		Model: model.Model{
			Properties: map[string]string{"workspace_cmdb": "BILL-7"},
			SoftwareSystems: []*model.SoftwareSystem{
				{
					ID:         "1",
					Name:       "Billing",
					Properties: map[string]string{"cmdb": "BILL-7"},
					Relationships: []*model.Relationship{
						{SourceID: "1", DestinationID: "5", Description: "Notifies"},
					},
				},
				{
					ID:         "5",
					Name:       "Customer Portal",
					Properties: map[string]string{"cmdb": "CRM-1"},
				},
			},
		},
	}
	_, err = svc.IngestGlobal(ctx, billing)
	require.NoError(t, err)

	return view.NewService(g, log)
}

func systemByName(t *testing.T, doc *view.Document, name string) *view.SoftwareSystem {
	t.Helper()
	for _, sys := range doc.Model.SoftwareSystems {
		if sys.Name == name {
			return sys
		}
	}
	t.Fatalf("system %q not in model", name)
	return nil
}

func relDescriptions(rels []*view.Relationship) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Description)
	}
	return out
}

func elementIDs(refs []view.ElementRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ID)
	}
	return out
}

func TestContextViewModel(t *testing.T) {
	svc := seed(t)

	doc, err := svc.ContextView(context.Background(), "CRM-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.ID)
	require.Len(t, doc.Model.SoftwareSystems, 2)

	subject := systemByName(t, doc, "Customer Portal")
	billing := systemByName(t, doc, "Billing")

	require.Len(t, subject.Containers, 2)
	backend := subject.Containers[0]
	frontend := subject.Containers[1]
	assert.Equal(t, "backend~CRM-1", backend.Name)
	assert.Equal(t, "Go", backend.Technology)
	require.Len(t, backend.Components, 1)
	assert.Equal(t, "api~backend~CRM-1", backend.Components[0].Name)

	// Container and component edges to foreign systems echo up to the
	// subject system so the context view can draw them.
	assert.ElementsMatch(t, []string{"Uses", "Posts invoices"},
		relDescriptions(subject.Relationships))
	for _, r := range subject.Relationships {
		assert.Equal(t, subject.ID, r.SourceID)
		assert.Equal(t, billing.ID, r.DestinationID)
	}

	// The reverse edge submitted by BILL-7 hangs off the Billing system.
	require.Len(t, billing.Relationships, 1)
	assert.Equal(t, "Notifies", billing.Relationships[0].Description)
	assert.Equal(t, subject.ID, billing.Relationships[0].DestinationID)

	// Component edges reach their own container too.
	assert.Contains(t, relDescriptions(backend.Relationships), "Posts invoices")
	assert.Contains(t, relDescriptions(frontend.Relationships), "Calls")
}

func TestContextViewDefinition(t *testing.T) {
	svc := seed(t)

	doc, err := svc.ContextView(context.Background(), "CRM-1", "")
	require.NoError(t, err)
	require.Len(t, doc.Views.SystemContextViews, 1)
	require.Len(t, doc.Views.ContainerViews, 1)

	subject := systemByName(t, doc, "Customer Portal")
	billing := systemByName(t, doc, "Billing")

	v := doc.Views.SystemContextViews[0]
	assert.Equal(t, "context", v.Key)
	assert.Equal(t, 1, v.Order)
	assert.Equal(t, subject.ID, v.SoftwareSystemID)
	assert.True(t, v.EnterpriseBoundaryVisible)
	assert.ElementsMatch(t, []string{subject.ID, billing.ID}, elementIDs(v.Elements))
	// Uses + Posts invoices forward, Notifies back.
	assert.Len(t, v.Relationships, 3)

	require.NotNil(t, v.AutomaticLayout)
	assert.Equal(t, view.RankLeftRight, v.AutomaticLayout.RankDirection)
	assert.Equal(t, "Graphviz", v.AutomaticLayout.Implementation)
	assert.Equal(t, 300, v.AutomaticLayout.NodeSeparation)
	assert.False(t, v.AutomaticLayout.Applied)
}

func TestContainerViewDefinition(t *testing.T) {
	svc := seed(t)

	doc, err := svc.ContainerView(context.Background(), "CRM-1", view.RankTopBottom)
	require.NoError(t, err)
	assert.Empty(t, doc.Views.SystemContextViews)
	require.Len(t, doc.Views.ContainerViews, 1)

	subject := systemByName(t, doc, "Customer Portal")
	billing := systemByName(t, doc, "Billing")
	backend := subject.Containers[0]
	frontend := subject.Containers[1]

	v := doc.Views.ContainerViews[0]
	assert.Equal(t, "containers", v.Key)
	assert.Equal(t, 2, v.Order)
	assert.Equal(t, subject.ID, v.SoftwareSystemID)
	assert.False(t, v.ExternalSoftwareSystemBoundariesVisible)
	assert.Equal(t, view.RankTopBottom, v.AutomaticLayout.RankDirection)

	// Containers replace the subject on this view; foreign endpoints stay.
	ids := elementIDs(v.Elements)
	assert.ElementsMatch(t, []string{backend.ID, frontend.ID, billing.ID}, ids)
	assert.NotContains(t, ids, subject.ID)
}

func TestComponentView(t *testing.T) {
	svc := seed(t)

	doc, err := svc.ComponentView(context.Background(), "CRM-1", "backend", "")
	require.NoError(t, err)
	require.Len(t, doc.Views.ComponentViews, 1)

	subject := systemByName(t, doc, "Customer Portal")
	billing := systemByName(t, doc, "Billing")
	require.Len(t, subject.Containers, 1, "only the requested container is materialized")
	backend := subject.Containers[0]
	require.Len(t, backend.Components, 1)
	api := backend.Components[0]

	require.Len(t, api.Relationships, 1)
	assert.Equal(t, "Posts invoices", api.Relationships[0].Description)
	assert.Equal(t, billing.ID, api.Relationships[0].DestinationID)

	v := doc.Views.ComponentViews[0]
	assert.Equal(t, "components", v.Key)
	assert.Equal(t, 3, v.Order)
	assert.Equal(t, backend.ID, v.ContainerID)
	assert.True(t, v.ExternalContainerBoundariesVisible)
	assert.ElementsMatch(t, []string{api.ID, billing.ID}, elementIDs(v.Elements))
	require.Len(t, v.Relationships, 1)
	assert.Equal(t, api.Relationships[0].ID, v.Relationships[0].ID)
}

func TestComponentViewMatchesQualifiedName(t *testing.T) {
	svc := seed(t)

	_, err := svc.ComponentView(context.Background(), "CRM-1", "backend~CRM-1", "")
	assert.NoError(t, err)

	_, err = svc.ComponentView(context.Background(), "CRM-1", "warehouse", "")
	assert.True(t, agerr.IsNotFound(err))
}

func TestDeploymentView(t *testing.T) {
	svc := seed(t)

	doc, err := svc.DeploymentView(context.Background(), "CRM-1", "prod", "")
	require.NoError(t, err)

	subject := systemByName(t, doc, "Customer Portal")
	backend := subject.Containers[0]

	// The staging node is filtered out with its whole subtree.
	require.Len(t, doc.Model.DeploymentNodes, 1)
	aws := doc.Model.DeploymentNodes[0]
	assert.Equal(t, "aws~CRM-1", aws.Name)
	assert.Equal(t, "prod", aws.Environment)
	require.Len(t, aws.Children, 1)
	euWest := aws.Children[0]

	require.Len(t, euWest.InfrastructureNodes, 1)
	lb := euWest.InfrastructureNodes[0]
	assert.Equal(t, "nginx", lb.Technology)

	require.Len(t, euWest.ContainerInstances, 1)
	inst := euWest.ContainerInstances[0]
	assert.Equal(t, backend.ID, inst.ContainerID)
	assert.Equal(t, int64(1), inst.InstanceID)
	assert.Equal(t, "prod", inst.Environment)

	// Container instances are anonymous: they point at their container and
	// the stored bookkeeping name never surfaces in the document.
	instJSON, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.NotContains(t, string(instJSON), `"name"`)

	// The infrastructure edge resolves within the materialized tree.
	require.Len(t, lb.Relationships, 1)
	assert.Equal(t, "Routes to", lb.Relationships[0].Description)
	assert.Equal(t, inst.ID, lb.Relationships[0].DestinationID)

	require.Len(t, doc.Views.DeploymentViews, 1)
	v := doc.Views.DeploymentViews[0]
	assert.Equal(t, "prod-01", v.Key)
	assert.Equal(t, 4, v.Order)
	assert.Equal(t, "prod", v.Environment)
	assert.Equal(t, subject.ID, v.SoftwareSystemID)
	assert.ElementsMatch(t, []string{aws.ID, euWest.ID, lb.ID, inst.ID}, elementIDs(v.Elements))
	require.Len(t, v.Relationships, 1)
	assert.Equal(t, lb.Relationships[0].ID, v.Relationships[0].ID)
}

func TestDeploymentViewUnknownEnvironment(t *testing.T) {
	svc := seed(t)

	_, err := svc.DeploymentView(context.Background(), "CRM-1", "qa", "")
	assert.True(t, agerr.IsNotFound(err))
}

func TestViewValidation(t *testing.T) {
	svc := seed(t)
	ctx := context.Background()

	_, err := svc.ContextView(ctx, "NOPE-1", "")
	assert.True(t, agerr.IsNotFound(err))

	// BILL-7 is a real system once its own workspace lands, so views build.
	_, err = svc.ContextView(ctx, "BILL-7", "")
	assert.NoError(t, err)

	_, err = svc.ContextView(ctx, "CRM-1", "Sideways")
	assert.True(t, agerr.IsInvalidInput(err))
}
