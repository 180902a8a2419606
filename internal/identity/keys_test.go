// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package identity_test

import (
	"testing"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestCompositeKeys(t *testing.T) {
	containerKey := identity.ContainerKey("backend", "CRM-1")
	assert.Equal(t, "backend~CRM-1", containerKey)

	componentKey := identity.ComponentKey("api", containerKey)
	assert.Equal(t, "api~backend~CRM-1", componentKey)

	// Two submitters using the same local names stay distinct.
	other := identity.ComponentKey("api", identity.ContainerKey("backend", "BILL-7"))
	assert.NotEqual(t, componentKey, other)
}

func TestQualifyNestsDeploymentNodes(t *testing.T) {
	top := identity.Qualify("aws", "CRM-1")
	child := identity.Qualify("eu-west", top)
	assert.Equal(t, "eu-west~aws~CRM-1", child)
}

func TestContainerInstanceKey(t *testing.T) {
	key := identity.ContainerInstanceKey("backend", "k8s-prod")
	assert.Equal(t, "backend.ContainerInstance.k8s-prod", key)
}

func TestExternalName(t *testing.T) {
	assert.Equal(t, "gateway.CRM-1", identity.ExternalName("gateway", "CRM-1"))
	// Containers referenced without a local external name fall back to cmdb.
	assert.Equal(t, "CRM-1", identity.ExternalName("", "CRM-1"))
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "api", identity.LocalName("api~backend~CRM-1"))
	assert.Equal(t, "plain", identity.LocalName("plain"))
}

func TestLocalTag(t *testing.T) {
	tag := identity.LocalTag("CRM-1")
	assert.Equal(t, "Local:CRM-1", tag)
	assert.True(t, identity.IsLocalTag(tag))
	assert.False(t, identity.IsLocalTag("Global"))
}
