// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// ParseJSON decodes and validates a workspace document. Structural
// validation happens here, before any store mutation.
func ParseJSON(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphDocumentInvalid, "decoding workspace document")
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

// ParseYAML decodes a YAML workspace document by normalizing it through
// JSON, so both encodings share one set of field names.
func ParseYAML(data []byte) (*Workspace, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphDocumentInvalid, "decoding workspace document")
	}
	normalized, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphDocumentInvalid, "normalizing workspace document")
	}
	return ParseJSON(normalized)
}

// normalizeYAML rewrites map[any]any trees into map[string]any so they
// survive json.Marshal. yaml.v3 already produces string keys for mappings,
// but nested sequences may still carry them.
func normalizeYAML(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range vv {
			vv[i] = normalizeYAML(vv[i])
		}
		return vv
	default:
		return v
	}
}

// Validate checks the structure the merge engine depends on. Anything
// rejected here is rejected before the version counter moves.
func (w *Workspace) Validate() error {
	if len(w.Model.SoftwareSystems) == 0 {
		return agerr.New(agerr.CodeGraphDocumentInvalid, "document has no software systems")
	}
	cmdb := w.CMDB()
	if cmdb == "" {
		return agerr.New(agerr.CodeGraphDocumentInvalid, "document has no workspace_cmdb property")
	}
	subject := w.Subject()
	if subject == nil {
		return agerr.New(agerr.CodeGraphDocumentInvalid,
			"no software system matches the workspace cmdb", agerr.FieldCMDB(cmdb))
	}
	if subject.Name == "" {
		return agerr.New(agerr.CodeGraphDocumentInvalid, "subject system has no name", agerr.FieldCMDB(cmdb))
	}
	for _, c := range subject.Containers {
		if c.Name == "" {
			return agerr.New(agerr.CodeGraphDocumentInvalid, "container has no name", agerr.FieldCMDB(cmdb))
		}
		for _, comp := range c.Components {
			if comp.Name == "" {
				return agerr.New(agerr.CodeGraphDocumentInvalid,
					"component has no name", agerr.Field("container", c.Name))
			}
		}
	}
	if err := validateDeploymentNodes(w.Model.DeploymentNodes); err != nil {
		return err
	}
	return nil
}

func validateDeploymentNodes(nodes []*DeploymentNode) error {
	for _, dn := range nodes {
		if dn.Name == "" {
			return agerr.New(agerr.CodeGraphDocumentInvalid, "deployment node has no name")
		}
		for _, infra := range dn.InfrastructureNodes {
			if infra.Name == "" {
				return agerr.New(agerr.CodeGraphDocumentInvalid,
					"infrastructure node has no name", agerr.FieldNode(dn.Name))
			}
		}
		for _, inst := range dn.ContainerInstances {
			if inst.ContainerID == "" {
				return agerr.New(agerr.CodeGraphDocumentInvalid,
					"container instance has no containerId", agerr.FieldNode(dn.Name))
			}
		}
		if err := validateDeploymentNodes(dn.Children); err != nil {
			return err
		}
	}
	return nil
}
