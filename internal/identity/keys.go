// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package identity derives the composite string keys that make locally-named
// entities globally unique. A submitter only guarantees unique names within
// its own document, so every key embeds the containment chain down to the
// owning system's cmdb.
package identity

import "strings"

// Separator joins a local name to its parent key. Component keys therefore
// look like "api~backend~CRM-1": component name, container name, cmdb.
const Separator = "~"

// localPrefix tags the per-call scratch graphs, "Local:<cmdb>".
const localPrefix = "Local:"

// Qualify derives the composite key of an entity from its local name and its
// structural parent's key. For a container the parent key is the cmdb.
func Qualify(name, parentKey string) string {
	return name + Separator + parentKey
}

// ContainerKey is the key of a container owned by the given system.
func ContainerKey(name, cmdb string) string {
	return Qualify(name, cmdb)
}

// ComponentKey is the key of a component inside a container.
func ComponentKey(name, containerKey string) string {
	return Qualify(name, containerKey)
}

// ContainerInstanceKey names a deployed instance of a container on a
// deployment node. Instances have no name of their own.
func ContainerInstanceKey(containerName, deploymentNodeName string) string {
	return containerName + ".ContainerInstance." + deploymentNodeName
}

// ExternalName qualifies the lookup key of a stub entity created for a
// relationship endpoint that no submitter has described yet. Containers
// referenced without a local external name fall back to the bare cmdb.
func ExternalName(localName, cmdb string) string {
	if localName == "" {
		return cmdb
	}
	return localName + "." + cmdb
}

// LocalName returns the leading segment of a composite key (the name the
// submitter used).
func LocalName(key string) string {
	if idx := strings.Index(key, Separator); idx >= 0 {
		return key[:idx]
	}
	return key
}

// LocalTag is the graph tag of the scratch graph for one cmdb.
func LocalTag(cmdb string) string {
	return localPrefix + cmdb
}

// IsLocalTag reports whether the tag names a scratch graph.
func IsLocalTag(tag string) bool {
	return strings.HasPrefix(tag, localPrefix)
}
