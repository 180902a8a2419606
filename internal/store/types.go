// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package store

// Node labels used by the architecture graph.
const (
	LabelSoftwareSystem     = "SoftwareSystem"
	LabelContainer          = "Container"
	LabelComponent          = "Component"
	LabelDeploymentNode     = "DeploymentNode"
	LabelInfrastructureNode = "InfrastructureNode"
	LabelContainerInstance  = "ContainerInstance"
	LabelEnvironment        = "Environment"
)

// Edge types. Relationship edges model dependencies; Child models
// containment; Deploy links a container to its deployed instance.
const (
	EdgeChild        = "Child"
	EdgeDeploy       = "Deploy"
	EdgeRelationship = "Relationship"
)

// TagGlobal is the single persistent, versioned graph shared across all
// submitters. Local scratch graphs use identity.LocalTag(cmdb).
const TagGlobal = "Global"

// Well-known property names. startVersion/endVersion carry the validity
// window; endVersion absent means "open" (valid through the present).
const (
	PropName             = "name"
	PropCMDB             = "cmdb"
	PropExternalName     = "external_name"
	PropGraphTag         = "graphTag"
	PropStartVersion     = "startVersion"
	PropEndVersion       = "endVersion"
	PropVersion          = "version"
	PropDescription      = "description"
	PropTechnology       = "technology"
	PropTags             = "tags"
	PropInteractionStyle = "interactionStyle"
	PropSourceWorkspace  = "sourceWorkspace"
	PropLevel            = "level"
	PropNumberOfConnects = "numberOfConnects"
	PropEnvironment      = "environment"
	PropSource           = "source"
	PropURL              = "url"
	PropGroup            = "group"
)

// Node is a labeled, property-bearing store node. ID is store-assigned and
// only meaningful within one backend instance.
type Node struct {
	ID    int64
	Label string
	Props map[string]any
}

// Edge is a typed, property-bearing relationship between two nodes.
type Edge struct {
	ID       int64
	Type     string
	SourceID int64
	DestID   int64
	Props    map[string]any
}

// StringProp returns the named property as a string, or "" when absent or
// not a string.
func StringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	s, _ := props[key].(string)
	return s
}

// IntProp returns the named property as an int64. The bool is false when the
// property is absent, nil, or not numeric.
func IntProp(props map[string]any, key string) (int64, bool) {
	if props == nil {
		return 0, false
	}
	switch v := props[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Window is the [Start, End) validity interval of a node or edge. A nil End
// means the record is open (valid through the present).
type Window struct {
	Start int64
	End   *int64
}

// Open reports whether the window has no end version.
func (w Window) Open() bool { return w.End == nil }

// WindowOf extracts the version window from a property bag. Records written
// before versioning (or in Local graphs) report Start 0.
func WindowOf(props map[string]any) Window {
	var w Window
	if start, ok := IntProp(props, PropStartVersion); ok {
		w.Start = start
	}
	if end, ok := IntProp(props, PropEndVersion); ok {
		w.End = &end
	}
	return w
}

// Direction orients a closure path-shape query. Outgoing follows edges from
// the subject ("dependent" side); Incoming follows edges into the subject
// ("influencing" side).
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}
