// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package server

import (
	"context"

	"github.com/archigraph/archigraph/internal/closure"
	"github.com/archigraph/archigraph/internal/diff"
	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store"
	"github.com/archigraph/archigraph/internal/view"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use the NewServices constructor to ensure all required services are provided.
type Services struct {
	ingest  IngestService
	diffs   DiffService
	views   ViewService
	closure ClosureService
	search  SearchService
	journal JournalService
	pinger  Pinger // optional; nil = /healthz reports the store as unconfigured
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(ingest IngestService, diffs DiffService, views ViewService, cls ClosureService, search SearchService, jrnl JournalService, pinger Pinger) (*Services, error) {
	if ingest == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "ingest service is required")
	}
	if diffs == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "diff service is required")
	}
	if views == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "view service is required")
	}
	if cls == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "closure service is required")
	}
	if search == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "search service is required")
	}
	if jrnl == nil {
		return nil, agerr.New(agerr.CodeServerStartFailure, "journal service is required")
	}
	return &Services{
		ingest:  ingest,
		diffs:   diffs,
		views:   views,
		closure: cls,
		search:  search,
		journal: jrnl,
		pinger:  pinger,
	}, nil
}

// IngestService is the merge engine as the REST handlers see it.
type IngestService interface {
	IngestGlobal(ctx context.Context, ws *model.Workspace) (*graph.Result, error)
	RebuildLocal(ctx context.Context, cmdb string, ws *model.Workspace) (*graph.Result, error)
}

// DiffService compares two versions of one system.
type DiffService interface {
	Compare(ctx context.Context, cmdb string, v1, v2 int64) (*diff.Report, error)
}

// ViewService assembles diagram documents.
type ViewService interface {
	ContextView(ctx context.Context, cmdb, rank string) (*view.Document, error)
	ContainerView(ctx context.Context, cmdb, rank string) (*view.Document, error)
	ComponentView(ctx context.Context, cmdb, container, rank string) (*view.Document, error)
	DeploymentView(ctx context.Context, cmdb, environment, rank string) (*view.Document, error)
}

// ClosureService computes influence reports.
type ClosureService interface {
	SystemInfluence(ctx context.Context, cmdb string) (*closure.Report, error)
	DeploymentInfluence(ctx context.Context, cmdb, name, environment string) (*closure.Report, error)
}

// SearchService finds systems by substring.
type SearchService interface {
	Search(ctx context.Context, query string) ([]SystemSummary, error)
}

// JournalService lists recorded ingestions.
type JournalService interface {
	Recent(ctx context.Context, cmdb string, limit int) ([]*journal.Entry, error)
}

// Pinger probes the graph store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemSummary is the REST representation of a system in search results.
type SystemSummary struct {
	CMDB        string `json:"cmdb" doc:"System cmdb identifier"`
	Name        string `json:"name" doc:"System name"`
	Description string `json:"description,omitempty" doc:"System description"`
}

// GraphSearch adapts the store's node search to the SearchService shape.
type GraphSearch struct {
	Graph store.Graph
}

// Search matches Global software systems whose cmdb or name contains the
// query, case-insensitively.
func (g GraphSearch) Search(ctx context.Context, query string) ([]SystemSummary, error) {
	nodes, err := g.Graph.Nodes().Search(ctx, store.TagGlobal, store.LabelSoftwareSystem, query)
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeServerInternalFailure, "searching systems")
	}
	out := make([]SystemSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, SystemSummary{
			CMDB:        store.StringProp(n.Props, store.PropCMDB),
			Name:        store.StringProp(n.Props, store.PropName),
			Description: store.StringProp(n.Props, store.PropDescription),
		})
	}
	return out, nil
}
