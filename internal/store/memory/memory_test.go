// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archigraph/archigraph/internal/store"
	"github.com/archigraph/archigraph/internal/store/memory"
)

func TestNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	created, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{
		store.PropName: "Payments",
		store.PropCMDB: "PAY-1",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := g.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, store.TagGlobal, store.StringProp(found.Props, store.PropGraphTag))

	_, err = g.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A node in another tag is invisible to the Global lookup.
	_, err = g.Nodes().Create(ctx, "Local:PAY-1", store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "OTHER"})
	require.NoError(t, err)
	_, err = g.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, "OTHER")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetPropsNilRemoves(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	n, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelContainer, map[string]any{
		store.PropName:       "api~PAY-1",
		store.PropEndVersion: int64(3),
	})
	require.NoError(t, err)

	require.NoError(t, g.Nodes().SetProps(ctx, n.ID, map[string]any{
		store.PropEndVersion: nil,
		store.PropTechnology: "Go",
	}))

	got, err := g.Nodes().FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, store.WindowOf(got.Props).Open())
	assert.Equal(t, "Go", store.StringProp(got.Props, store.PropTechnology))
}

func TestEdgeIdentityTuple(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	a, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "A"})
	require.NoError(t, err)
	b, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "B"})
	require.NoError(t, err)

	_, err = g.Edges().Create(ctx, a.ID, b.ID, store.EdgeRelationship, map[string]any{
		store.PropGraphTag:        store.TagGlobal,
		store.PropDescription:     "Sends invoices",
		store.PropSourceWorkspace: "A",
	})
	require.NoError(t, err)

	// Same endpoints with a different description or submitter is a
	// distinct edge.
	_, err = g.Edges().Find(ctx, a.ID, b.ID, store.EdgeRelationship, "Sends invoices", "A")
	require.NoError(t, err)
	_, err = g.Edges().Find(ctx, a.ID, b.ID, store.EdgeRelationship, "None", "A")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = g.Edges().Find(ctx, a.ID, b.ID, store.EdgeRelationship, "Sends invoices", "B")
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := g.Nodes().FanCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestChildrenFiltersLabel(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	sys, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "A"})
	require.NoError(t, err)
	cont, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelContainer, map[string]any{store.PropName: "api~A"})
	require.NoError(t, err)
	dn, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelDeploymentNode, map[string]any{store.PropName: "aws~A"})
	require.NoError(t, err)

	for _, child := range []int64{cont.ID, dn.ID} {
		_, err = g.Edges().Create(ctx, sys.ID, child, store.EdgeChild, map[string]any{
			store.PropGraphTag: store.TagGlobal,
		})
		require.NoError(t, err)
	}

	containers, err := g.Nodes().Children(ctx, sys.ID, store.LabelContainer)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, cont.ID, containers[0].ID)
}

func TestCloseSnapshot(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	sys, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "A"})
	require.NoError(t, err)
	cont, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelContainer, map[string]any{
		store.PropName: "api~A", store.PropStartVersion: int64(1),
	})
	require.NoError(t, err)
	comp, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelComponent, map[string]any{
		store.PropName: "handler~api~A", store.PropStartVersion: int64(1),
	})
	require.NoError(t, err)
	other, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "B"})
	require.NoError(t, err)

	_, err = g.Edges().Create(ctx, sys.ID, cont.ID, store.EdgeChild, map[string]any{
		store.PropGraphTag: store.TagGlobal, store.PropDescription: "Child", store.PropSourceWorkspace: "A",
	})
	require.NoError(t, err)
	_, err = g.Edges().Create(ctx, cont.ID, comp.ID, store.EdgeChild, map[string]any{
		store.PropGraphTag: store.TagGlobal, store.PropDescription: "Child", store.PropSourceWorkspace: "A",
	})
	require.NoError(t, err)
	rel, err := g.Edges().Create(ctx, sys.ID, other.ID, store.EdgeRelationship, map[string]any{
		store.PropGraphTag: store.TagGlobal, store.PropDescription: "None", store.PropSourceWorkspace: "A",
	})
	require.NoError(t, err)
	foreignRel, err := g.Edges().Create(ctx, other.ID, sys.ID, store.EdgeRelationship, map[string]any{
		store.PropGraphTag: store.TagGlobal, store.PropDescription: "None", store.PropSourceWorkspace: "B",
	})
	require.NoError(t, err)

	require.NoError(t, g.Snapshots().CloseSnapshot(ctx, store.TagGlobal, "A", 4))

	for _, id := range []int64{cont.ID, comp.ID} {
		n, err := g.Nodes().FindByID(ctx, id)
		require.NoError(t, err)
		w := store.WindowOf(n.Props)
		require.False(t, w.Open())
		assert.Equal(t, int64(4), *w.End)
	}

	// The system node itself keeps no window; only its contents close.
	got, err := g.Nodes().FindByID(ctx, sys.ID)
	require.NoError(t, err)
	assert.True(t, store.WindowOf(got.Props).Open())

	closed, err := g.Edges().Find(ctx, sys.ID, other.ID, store.EdgeRelationship, "None", "A")
	require.NoError(t, err)
	assert.False(t, store.WindowOf(closed.Props).Open())
	assert.Equal(t, rel.ID, closed.ID)

	// Edges submitted by other systems stay open.
	stillOpen, err := g.Edges().Find(ctx, other.ID, sys.ID, store.EdgeRelationship, "None", "B")
	require.NoError(t, err)
	assert.True(t, store.WindowOf(stillOpen.Props).Open())
	assert.Equal(t, foreignRel.ID, stillOpen.ID)

	// Closing an already-closed record keeps the original end version.
	require.NoError(t, g.Snapshots().CloseSnapshot(ctx, store.TagGlobal, "A", 9))
	n, err := g.Nodes().FindByID(ctx, cont.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), *store.WindowOf(n.Props).End)
}

func TestDeleteAllRemovesTag(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	tag := "Local:PAY-1"

	sys, err := g.Nodes().Create(ctx, tag, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "PAY-1"})
	require.NoError(t, err)
	cont, err := g.Nodes().Create(ctx, tag, store.LabelContainer, map[string]any{store.PropName: "api~PAY-1"})
	require.NoError(t, err)
	_, err = g.Edges().Create(ctx, sys.ID, cont.ID, store.EdgeChild, map[string]any{store.PropGraphTag: tag})
	require.NoError(t, err)

	keep, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "PAY-1"})
	require.NoError(t, err)

	require.NoError(t, g.Snapshots().DeleteAll(ctx, tag))

	_, err = g.Nodes().FindByID(ctx, sys.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = g.Nodes().FindByID(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestSearchMatchesNameAndCMDB(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	_, err := g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{
		store.PropName: "Customer Portal", store.PropCMDB: "CRM-1",
	})
	require.NoError(t, err)
	_, err = g.Nodes().Create(ctx, store.TagGlobal, store.LabelSoftwareSystem, map[string]any{
		store.PropName: "Billing", store.PropCMDB: "BILL-7",
	})
	require.NoError(t, err)

	byName, err := g.Nodes().Search(ctx, store.TagGlobal, store.LabelSoftwareSystem, "portal")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "CRM-1", store.StringProp(byName[0].Props, store.PropCMDB))

	byCMDB, err := g.Nodes().Search(ctx, store.TagGlobal, store.LabelSoftwareSystem, "bill")
	require.NoError(t, err)
	assert.Len(t, byCMDB, 1)
}

func TestClosurePathShapes(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	mk := func(label string, props map[string]any) *store.Node {
		n, err := g.Nodes().Create(ctx, store.TagGlobal, label, props)
		require.NoError(t, err)
		return n
	}
	link := func(src, dst int64, typ string) {
		_, err := g.Edges().Create(ctx, src, dst, typ, map[string]any{
			store.PropGraphTag: store.TagGlobal, store.PropDescription: typ, store.PropSourceWorkspace: "A",
		})
		require.NoError(t, err)
	}

	sysA := mk(store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "A"})
	sysB := mk(store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "B"})
	sysC := mk(store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "C"})
	contA := mk(store.LabelContainer, map[string]any{store.PropName: "api~A"})
	contC := mk(store.LabelContainer, map[string]any{store.PropName: "db~C"})
	compA := mk(store.LabelComponent, map[string]any{store.PropName: "handler~api~A"})

	link(sysA.ID, contA.ID, store.EdgeChild)
	link(sysC.ID, contC.ID, store.EdgeChild)
	link(contA.ID, compA.ID, store.EdgeChild)

	// A -> B directly, A's container -> C's container, B -> A's component.
	link(sysA.ID, sysB.ID, store.EdgeRelationship)
	link(contA.ID, contC.ID, store.EdgeRelationship)
	link(sysB.ID, compA.ID, store.EdgeRelationship)

	direct, err := g.Closure().NeighborSystems(ctx, sysA.ID, store.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, direct)

	viaContainers, err := g.Closure().ContainerLinkedSystems(ctx, sysA.ID, store.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, viaContainers)

	viaComponents, err := g.Closure().ComponentLinkedSystems(ctx, sysA.ID, store.Incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, viaComponents)
}

func TestDeploymentClosure(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	mk := func(label string, props map[string]any) *store.Node {
		n, err := g.Nodes().Create(ctx, store.TagGlobal, label, props)
		require.NoError(t, err)
		return n
	}
	link := func(src, dst int64, typ string) {
		_, err := g.Edges().Create(ctx, src, dst, typ, map[string]any{
			store.PropGraphTag: store.TagGlobal, store.PropDescription: typ, store.PropSourceWorkspace: "A",
		})
		require.NoError(t, err)
	}

	sysA := mk(store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "A"})
	sysB := mk(store.LabelSoftwareSystem, map[string]any{store.PropCMDB: "B"})
	aws := mk(store.LabelDeploymentNode, map[string]any{
		store.PropName: "aws~A", store.PropEnvironment: "prod",
	})
	euWest := mk(store.LabelDeploymentNode, map[string]any{
		store.PropName: "eu-west~aws~A", store.PropEnvironment: "prod",
	})
	peerDN := mk(store.LabelDeploymentNode, map[string]any{
		store.PropName: "gcp~B", store.PropEnvironment: "prod",
	})
	contA := mk(store.LabelContainer, map[string]any{store.PropName: "api~A"})
	inst := mk(store.LabelContainerInstance, map[string]any{store.PropName: "api~A.ContainerInstance.eu-west~aws~A"})

	link(sysA.ID, aws.ID, store.EdgeChild)
	link(aws.ID, euWest.ID, store.EdgeChild)
	link(sysB.ID, peerDN.ID, store.EdgeChild)
	link(sysA.ID, contA.ID, store.EdgeChild)
	link(euWest.ID, inst.ID, store.EdgeChild)
	link(contA.ID, inst.ID, store.EdgeDeploy)

	link(euWest.ID, peerDN.ID, store.EdgeRelationship)
	link(contA.ID, sysB.ID, store.EdgeRelationship)

	nodes, err := g.Closure().DeploymentNodesByNameEnv(ctx, "A", "aws", "prod")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, aws.ID, nodes[0].ID)

	// Unqualified name lookup: the nested node answers to "eu-west".
	nested, err := g.Closure().DeploymentNodesByNameEnv(ctx, "A", "eu-west", "prod")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, euWest.ID, nested[0].ID)

	children, err := g.Closure().DeploymentChildIDs(ctx, aws.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{euWest.ID}, children)

	scope := append([]int64{aws.ID}, children...)

	peers, err := g.Closure().DeploymentPeerSystems(ctx, scope, store.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, peers)

	viaInstances, err := g.Closure().DeploymentInstanceSystems(ctx, scope, store.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, viaInstances)
}
