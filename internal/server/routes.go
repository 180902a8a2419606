// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/archigraph/archigraph/internal/closure"
	"github.com/archigraph/archigraph/internal/diff"
	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/view"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Ingestion endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-graph",
		Method:      http.MethodPost,
		Path:        "/api/v1/graph",
		Summary:     "Ingest a workspace document into the Global graph",
		Tags:        []string{"graph"},
	}, s.handleIngestGlobal)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuild-local-graph",
		Method:      http.MethodPost,
		Path:        "/api/v1/graph/local/{cmdb}",
		Summary:     "Rebuild a system's Local scratch graph",
		Tags:        []string{"graph"},
	}, s.handleRebuildLocal)

	// Temporal diff endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "graph-changes",
		Method:      http.MethodGet,
		Path:        "/api/v1/graph/changes/{cmdb}",
		Summary:     "Compare two versions of a system",
		Tags:        []string{"graph"},
	}, s.handleChanges)

	// Influence closure endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "system-influence",
		Method:      http.MethodGet,
		Path:        "/api/v1/graph/influence/{cmdb}",
		Summary:     "Systems influenced by and influencing a system",
		Tags:        []string{"graph"},
	}, s.handleSystemInfluence)

	huma.Register(s.api, huma.Operation{
		OperationID: "deployment-influence",
		Method:      http.MethodGet,
		Path:        "/api/v1/graph/influence/{cmdb}/deployment",
		Summary:     "Influence scoped to one deployment node subtree",
		Tags:        []string{"graph"},
	}, s.handleDeploymentInfluence)

	// Diagram endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "assemble-diagram",
		Method:      http.MethodGet,
		Path:        "/api/v1/diagrams/{cmdb}",
		Summary:     "Assemble a diagram document for a system",
		Tags:        []string{"diagrams"},
	}, s.handleDiagram)

	// Search endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "search-systems",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/systems",
		Summary:     "Search systems by cmdb or name",
		Tags:        []string{"search"},
	}, s.handleSearchSystems)

	// Journal endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "list-ingestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/graph/ingestions",
		Summary:     "List recorded ingestions, newest first",
		Tags:        []string{"graph"},
	}, s.handleListIngestions)
}

// --- Request/Response types for huma ---

type ingestGlobalInput struct {
	Body model.Workspace
}
type ingestOutput struct {
	Body graph.Result
}

type rebuildLocalInput struct {
	CMDB string `path:"cmdb" doc:"System cmdb identifier"`
	Body model.Workspace
}

type changesInput struct {
	CMDB string `path:"cmdb" doc:"System cmdb identifier"`
	V1   int64  `query:"v1" doc:"First version to compare"`
	V2   int64  `query:"v2" doc:"Second version; 0 means the current version"`
}
type changesOutput struct {
	Body diff.Report
}

type systemInfluenceInput struct {
	CMDB string `path:"cmdb" doc:"System cmdb identifier"`
}
type influenceOutput struct {
	Body closure.Report
}

type deploymentInfluenceInput struct {
	CMDB        string `path:"cmdb" doc:"System cmdb identifier"`
	Name        string `query:"name" doc:"Deployment node name"`
	Environment string `query:"environment" doc:"Deployment environment"`
}

type diagramInput struct {
	CMDB          string `path:"cmdb" doc:"System cmdb identifier"`
	Kind          string `query:"kind" doc:"Diagram kind: context, container, component, or deployment"`
	Container     string `query:"container" doc:"Container name, for kind=component"`
	Environment   string `query:"environment" doc:"Deployment environment, for kind=deployment"`
	RankDirection string `query:"rankDirection" doc:"Layout rank direction (TopBottom or LeftRight)"`
}
type diagramOutput struct {
	Body view.Document
}

type searchSystemsInput struct {
	Query string `query:"q" doc:"Substring matched against cmdb and name"`
}
type searchSystemsOutput struct {
	Body struct {
		Systems []SystemSummary `json:"systems"`
	}
}

type listIngestionsInput struct {
	CMDB  string `query:"cmdb" doc:"Filter to one system"`
	Limit int    `query:"limit" doc:"Maximum entries; defaults to 50"`
}
type listIngestionsOutput struct {
	Body struct {
		Ingestions []*journal.Entry `json:"ingestions"`
	}
}

// --- Handlers ---

// serviceError translates a coded engine error into huma's error model,
// keeping the engine's message and mapping the code to an HTTP status.
func serviceError(err error) error {
	return huma.NewError(agerr.HTTPStatus(err), err.Error())
}

func (s *Server) handleIngestGlobal(ctx context.Context, input *ingestGlobalInput) (*ingestOutput, error) {
	ws := input.Body
	if err := ws.Validate(); err != nil {
		return nil, serviceError(err)
	}
	res, err := s.services.ingest.IngestGlobal(ctx, &ws)
	if err != nil {
		return nil, serviceError(err)
	}
	return &ingestOutput{Body: *res}, nil
}

func (s *Server) handleRebuildLocal(ctx context.Context, input *rebuildLocalInput) (*ingestOutput, error) {
	ws := input.Body
	if err := ws.Validate(); err != nil {
		return nil, serviceError(err)
	}
	res, err := s.services.ingest.RebuildLocal(ctx, input.CMDB, &ws)
	if err != nil {
		return nil, serviceError(err)
	}
	return &ingestOutput{Body: *res}, nil
}

func (s *Server) handleChanges(ctx context.Context, input *changesInput) (*changesOutput, error) {
	report, err := s.services.diffs.Compare(ctx, input.CMDB, input.V1, input.V2)
	if err != nil {
		return nil, serviceError(err)
	}
	return &changesOutput{Body: *report}, nil
}

func (s *Server) handleSystemInfluence(ctx context.Context, input *systemInfluenceInput) (*influenceOutput, error) {
	report, err := s.services.closure.SystemInfluence(ctx, input.CMDB)
	if err != nil {
		return nil, serviceError(err)
	}
	return &influenceOutput{Body: *report}, nil
}

func (s *Server) handleDeploymentInfluence(ctx context.Context, input *deploymentInfluenceInput) (*influenceOutput, error) {
	if input.Name == "" || input.Environment == "" {
		return nil, serviceError(agerr.New(agerr.CodeServerRequestInvalid,
			"name and environment query parameters are required"))
	}
	report, err := s.services.closure.DeploymentInfluence(ctx, input.CMDB, input.Name, input.Environment)
	if err != nil {
		return nil, serviceError(err)
	}
	return &influenceOutput{Body: *report}, nil
}

func (s *Server) handleDiagram(ctx context.Context, input *diagramInput) (*diagramOutput, error) {
	var (
		doc *view.Document
		err error
	)
	switch input.Kind {
	case "context":
		doc, err = s.services.views.ContextView(ctx, input.CMDB, input.RankDirection)
	case "container":
		doc, err = s.services.views.ContainerView(ctx, input.CMDB, input.RankDirection)
	case "component":
		if input.Container == "" {
			return nil, serviceError(agerr.New(agerr.CodeServerRequestInvalid,
				"container query parameter is required for kind=component"))
		}
		doc, err = s.services.views.ComponentView(ctx, input.CMDB, input.Container, input.RankDirection)
	case "deployment":
		if input.Environment == "" {
			return nil, serviceError(agerr.New(agerr.CodeServerRequestInvalid,
				"environment query parameter is required for kind=deployment"))
		}
		doc, err = s.services.views.DeploymentView(ctx, input.CMDB, input.Environment, input.RankDirection)
	default:
		return nil, serviceError(agerr.Errorf(agerr.CodeViewKindInvalid, "unknown diagram kind %q", input.Kind))
	}
	if err != nil {
		return nil, serviceError(err)
	}
	return &diagramOutput{Body: *doc}, nil
}

func (s *Server) handleSearchSystems(ctx context.Context, input *searchSystemsInput) (*searchSystemsOutput, error) {
	if input.Query == "" {
		return nil, serviceError(agerr.New(agerr.CodeServerRequestInvalid, "q query parameter is required"))
	}
	systems, err := s.services.search.Search(ctx, input.Query)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &searchSystemsOutput{}
	out.Body.Systems = systems
	return out, nil
}

func (s *Server) handleListIngestions(ctx context.Context, input *listIngestionsInput) (*listIngestionsOutput, error) {
	entries, err := s.services.journal.Recent(ctx, input.CMDB, input.Limit)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &listIngestionsOutput{}
	out.Body.Ingestions = entries
	return out, nil
}
