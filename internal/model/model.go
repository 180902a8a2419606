// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package model defines the architecture submission schema: one workspace
// document carrying a model of software systems, containers, components, and
// deployment topology, with relationships attached at every level. Fields
// the schema does not know about travel in the Properties bags; nothing here
// is populated by reflection.
package model

// Workspace is one submitted architecture document.
type Workspace struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Model       Model  `json:"model"`
}

// Model is the element tree of a workspace. Properties carries
// workspace-level metadata, including "workspace_cmdb": the cmdb of the
// system this submission is authoritative for.
type Model struct {
	Properties      map[string]string `json:"properties,omitempty"`
	SoftwareSystems []*SoftwareSystem `json:"softwareSystems,omitempty"`
	DeploymentNodes []*DeploymentNode `json:"deploymentNodes,omitempty"`
}

// PropWorkspaceCMDB names the model property selecting the subject system.
const PropWorkspaceCMDB = "workspace_cmdb"

// PropCMDB and PropExternalName are the element properties the merge engine
// reads for identity.
const (
	PropCMDB         = "cmdb"
	PropExternalName = "external_name"
)

// CMDB returns the subject system's cmdb, or "" when absent.
func (w *Workspace) CMDB() string {
	if w == nil || w.Model.Properties == nil {
		return ""
	}
	return w.Model.Properties[PropWorkspaceCMDB]
}

// Subject returns the software system this submission is authoritative for:
// the one whose cmdb property matches the workspace cmdb.
func (w *Workspace) Subject() *SoftwareSystem {
	cmdb := w.CMDB()
	if cmdb == "" {
		return nil
	}
	for _, sys := range w.Model.SoftwareSystems {
		if sys != nil && sys.CMDB() == cmdb {
			return sys
		}
	}
	return nil
}

// SoftwareSystem is one system in the model. Systems other than the subject
// appear as relationship endpoints only.
type SoftwareSystem struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Containers    []*Container      `json:"containers,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

// CMDB returns the system's own cmdb property, or "".
func (s *SoftwareSystem) CMDB() string {
	if s == nil || s.Properties == nil {
		return ""
	}
	return s.Properties[PropCMDB]
}

type Container struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Components    []*Component      `json:"components,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

// ExternalName returns the container's local external name, or "".
func (c *Container) ExternalName() string {
	if c == nil || c.Properties == nil {
		return ""
	}
	return c.Properties[PropExternalName]
}

type Component struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

// ExternalName returns the component's local external name, or "".
func (c *Component) ExternalName() string {
	if c == nil || c.Properties == nil {
		return ""
	}
	return c.Properties[PropExternalName]
}

// DeploymentNode is a (recursively nested) piece of deployment topology.
type DeploymentNode struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Description         string                `json:"description,omitempty"`
	Environment         string                `json:"environment,omitempty"`
	Technology          string                `json:"technology,omitempty"`
	Instances           string                `json:"instances,omitempty"`
	Tags                string                `json:"tags,omitempty"`
	URL                 string                `json:"url,omitempty"`
	Properties          map[string]string     `json:"properties,omitempty"`
	Children            []*DeploymentNode     `json:"children,omitempty"`
	InfrastructureNodes []*InfrastructureNode `json:"infrastructureNodes,omitempty"`
	ContainerInstances  []*ContainerInstance  `json:"containerInstances,omitempty"`
	Relationships       []*Relationship       `json:"relationships,omitempty"`
}

type InfrastructureNode struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Environment   string            `json:"environment,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

// ContainerInstance deploys a container (referenced by submission-local id)
// onto a deployment node. Instances have no name of their own.
type ContainerInstance struct {
	ID            string            `json:"id"`
	ContainerID   string            `json:"containerId"`
	Environment   string            `json:"environment,omitempty"`
	InstanceID    int               `json:"instanceId,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

// Relationship is a modeled dependency between two submission-local ids.
// Entries carrying LinkedRelationshipID are derived by the modeling tool
// from another relationship and are skipped during ingestion.
type Relationship struct {
	ID                   string            `json:"id,omitempty"`
	SourceID             string            `json:"sourceId"`
	DestinationID        string            `json:"destinationId"`
	Description          string            `json:"description,omitempty"`
	Technology           string            `json:"technology,omitempty"`
	Tags                 string            `json:"tags,omitempty"`
	URL                  string            `json:"url,omitempty"`
	InteractionStyle     string            `json:"interactionStyle,omitempty"`
	LinkedRelationshipID string            `json:"linkedRelationshipId,omitempty"`
	Properties           map[string]string `json:"properties,omitempty"`
}

// FindContainer returns the container with the given submission-local id,
// searching every system in the model.
func (m *Model) FindContainer(id string) *Container {
	for _, sys := range m.SoftwareSystems {
		for _, c := range sys.Containers {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}
