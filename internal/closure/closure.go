// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package closure computes influence closures: which systems depend on a
// subject and which systems the subject is influenced by. Each closure is a
// union of fixed path shapes the store exposes, deduplicated by cmdb with
// the subject filtered out.
package closure

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Report lists the systems on either side of the subject. Dependent systems
// sit on the far end of outgoing relationships; influencing systems on the
// far end of incoming ones.
type Report struct {
	DependentSystems   []string `json:"dependentSystems"`
	InfluencingSystems []string `json:"influencingSystems"`
}

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

// SystemInfluence unions the system-, container-, and component-level
// relationship closures of one system.
func (s *Service) SystemInfluence(ctx context.Context, cmdb string) (*Report, error) {
	sys, err := s.graph.Nodes().Find(ctx, store.TagGlobal, store.LabelSoftwareSystem, store.PropCMDB, cmdb)
	if errors.Is(err, store.ErrNotFound) {
		return nil, agerr.Errorf(agerr.CodeClosureSystemNotFound, "system %q not found", cmdb)
	}
	if err != nil {
		return nil, err
	}

	gather := func(dir store.Direction) ([]string, error) {
		c := s.graph.Closure()
		var all []string
		for _, q := range []func(context.Context, int64, store.Direction) ([]string, error){
			c.NeighborSystems, c.ContainerLinkedSystems, c.ComponentLinkedSystems,
		} {
			got, err := q(ctx, sys.ID, dir)
			if err != nil {
				return nil, err
			}
			all = append(all, got...)
		}
		return dedup(all, cmdb), nil
	}

	dependent, err := gather(store.Outgoing)
	if err != nil {
		return nil, err
	}
	influencing, err := gather(store.Incoming)
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "system influence closure",
		"cmdb", cmdb, "dependent", len(dependent), "influencing", len(influencing))
	return &Report{DependentSystems: dependent, InfluencingSystems: influencing}, nil
}

// DeploymentInfluence computes the closure of one deployment node and its
// subtree: direct node edges, peer deployment edges, deployed container and
// component relationships, and infrastructure edges. The node is addressed
// by its unqualified name within an environment, scoped to the owning
// system; an ambiguous name is a conflict the caller must disambiguate.
func (s *Service) DeploymentInfluence(ctx context.Context, cmdb, name, environment string) (*Report, error) {
	matches, err := s.graph.Closure().DeploymentNodesByNameEnv(ctx, cmdb, name, environment)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, agerr.Errorf(agerr.CodeClosureNodeNotFound,
			"deployment node %q not found in environment %q of system %q", name, environment, cmdb)
	}
	if len(matches) > 1 {
		return nil, agerr.Errorf(agerr.CodeClosureNodeAmbiguous,
			"deployment node %q matches %d nodes in environment %q of system %q",
			name, len(matches), environment, cmdb)
	}

	subject := matches[0]
	children, err := s.graph.Closure().DeploymentChildIDs(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	scope := append([]int64{subject.ID}, children...)

	gather := func(dir store.Direction) ([]string, error) {
		c := s.graph.Closure()
		var all []string
		for _, q := range []func(context.Context, []int64, store.Direction) ([]string, error){
			c.DeploymentDirectSystems, c.DeploymentPeerSystems,
			c.DeploymentInstanceSystems, c.DeploymentInfraSystems,
		} {
			got, err := q(ctx, scope, dir)
			if err != nil {
				return nil, err
			}
			all = append(all, got...)
		}
		return dedup(all, cmdb), nil
	}

	dependent, err := gather(store.Outgoing)
	if err != nil {
		return nil, err
	}
	influencing, err := gather(store.Incoming)
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "deployment influence closure",
		"cmdb", cmdb, "node", name, "environment", environment,
		"scope", len(scope), "dependent", len(dependent), "influencing", len(influencing))
	return &Report{DependentSystems: dependent, InfluencingSystems: influencing}, nil
}

// dedup drops duplicates, empty entries, and the subject itself, and sorts
// the survivors.
func dedup(cmdbs []string, self string) []string {
	seen := make(map[string]struct{}, len(cmdbs))
	out := make([]string, 0, len(cmdbs))
	for _, c := range cmdbs {
		if c == "" || c == self {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
