// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package view

// Document is the hierarchical workspace a view build produces. Its shape
// follows the Structurizr workspace JSON: a model tree plus per-kind view
// definitions referencing model elements by allocated id. The workspace
// itself always holds id 1; element and relationship ids are allocated from
// 2 within one build.
type Document struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Model Model  `json:"model"`
	Views Views  `json:"views"`
}

type Model struct {
	SoftwareSystems []*SoftwareSystem `json:"softwareSystems,omitempty"`
	DeploymentNodes []*DeploymentNode `json:"deploymentNodes,omitempty"`
}

type SoftwareSystem struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Containers    []*Container      `json:"containers,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

type Container struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Components    []*Component      `json:"components,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

type Component struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Group         string            `json:"group,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

type DeploymentNode struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name,omitempty"`
	Description         string                `json:"description,omitempty"`
	Technology          string                `json:"technology,omitempty"`
	Instances           string                `json:"instances,omitempty"`
	Environment         string                `json:"environment,omitempty"`
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
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Environment   string            `json:"environment,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

type ContainerInstance struct {
	ID            string            `json:"id"`
	ContainerID   string            `json:"containerId,omitempty"`
	InstanceID    int64             `json:"instanceId,omitempty"`
	Environment   string            `json:"environment,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
}

type Relationship struct {
	ID               string            `json:"id"`
	SourceID         string            `json:"sourceId"`
	DestinationID    string            `json:"destinationId"`
	Description      string            `json:"description,omitempty"`
	Technology       string            `json:"technology,omitempty"`
	InteractionStyle string            `json:"interactionStyle,omitempty"`
	Tags             string            `json:"tags,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type Views struct {
	SystemContextViews []*SystemContextView `json:"systemContextViews,omitempty"`
	ContainerViews     []*ContainerView     `json:"containerViews,omitempty"`
	ComponentViews     []*ComponentView     `json:"componentViews,omitempty"`
	DeploymentViews    []*DeploymentView    `json:"deploymentViews,omitempty"`
}

// ElementRef and RelationshipRef point into the model tree by allocated id.
type ElementRef struct {
	ID string `json:"id"`
}

type RelationshipRef struct {
	ID string `json:"id"`
}

type SystemContextView struct {
	Key                       string            `json:"key"`
	Order                     int               `json:"order"`
	SoftwareSystemID          string            `json:"softwareSystemId"`
	EnterpriseBoundaryVisible bool              `json:"enterpriseBoundaryVisible"`
	Elements                  []ElementRef      `json:"elements"`
	Relationships             []RelationshipRef `json:"relationships"`
	AutomaticLayout           *AutomaticLayout  `json:"automaticLayout,omitempty"`
}

type ContainerView struct {
	Key                                    string            `json:"key"`
	Order                                  int               `json:"order"`
	SoftwareSystemID                       string            `json:"softwareSystemId"`
	ExternalSoftwareSystemBoundariesVisible bool             `json:"externalSoftwareSystemBoundariesVisible"`
	Elements                               []ElementRef      `json:"elements"`
	Relationships                          []RelationshipRef `json:"relationships"`
	AutomaticLayout                        *AutomaticLayout  `json:"automaticLayout,omitempty"`
}

type ComponentView struct {
	Key                               string            `json:"key"`
	Order                             int               `json:"order"`
	ContainerID                       string            `json:"containerId"`
	ExternalContainerBoundariesVisible bool             `json:"externalContainerBoundariesVisible"`
	Elements                          []ElementRef      `json:"elements"`
	Relationships                     []RelationshipRef `json:"relationships"`
	AutomaticLayout                   *AutomaticLayout  `json:"automaticLayout,omitempty"`
}

type DeploymentView struct {
	Key              string            `json:"key"`
	Order            int               `json:"order"`
	Title            string            `json:"title,omitempty"`
	SoftwareSystemID string            `json:"softwareSystemId"`
	Environment      string            `json:"environment"`
	Elements         []ElementRef      `json:"elements"`
	Relationships    []RelationshipRef `json:"relationships"`
	AutomaticLayout  *AutomaticLayout  `json:"automaticLayout,omitempty"`
}

// AutomaticLayout carries the fixed Graphviz layout parameters every view is
// rendered with; only the rank direction is caller-selectable.
type AutomaticLayout struct {
	Applied        bool   `json:"applied"`
	EdgeSeparation int    `json:"edgeSeparation"`
	Implementation string `json:"implementation"`
	NodeSeparation int    `json:"nodeSeparation"`
	RankDirection  string `json:"rankDirection"`
	RankSeparation int    `json:"rankSeparation"`
	Vertices       bool   `json:"vertices"`
}

const (
	RankTopBottom = "TopBottom"
	RankLeftRight = "LeftRight"
)

func newAutomaticLayout(rankDirection string) *AutomaticLayout {
	return &AutomaticLayout{
		Applied:        false,
		EdgeSeparation: 0,
		Implementation: "Graphviz",
		NodeSeparation: 300,
		RankDirection:  rankDirection,
		RankSeparation: 300,
		Vertices:       false,
	}
}
