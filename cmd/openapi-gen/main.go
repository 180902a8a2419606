// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archigraph/archigraph/internal/closure"
	"github.com/archigraph/archigraph/internal/diff"
	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/server"
	"github.com/archigraph/archigraph/internal/view"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeCLISetupFailure, "creating server")
	}

	// No-op service stubs so all routes are registered for schema
	// discovery. Handlers are never invoked during spec generation.
	svc, err := server.NewServices(
		stubIngest{}, stubDiff{}, stubViews{}, stubClosure{}, stubSearch{}, stubJournal{}, nil)
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeCLISetupFailure, "wiring services")
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// No-op service stubs for spec generation. Methods are never called.

type stubIngest struct{}

func (stubIngest) IngestGlobal(context.Context, *model.Workspace) (*graph.Result, error) {
	return nil, nil
}

func (stubIngest) RebuildLocal(context.Context, string, *model.Workspace) (*graph.Result, error) {
	return nil, nil
}

type stubDiff struct{}

func (stubDiff) Compare(context.Context, string, int64, int64) (*diff.Report, error) {
	return nil, nil
}

type stubViews struct{}

func (stubViews) ContextView(context.Context, string, string) (*view.Document, error) {
	return nil, nil
}

func (stubViews) ContainerView(context.Context, string, string) (*view.Document, error) {
	return nil, nil
}

func (stubViews) ComponentView(context.Context, string, string, string) (*view.Document, error) {
	return nil, nil
}

func (stubViews) DeploymentView(context.Context, string, string, string) (*view.Document, error) {
	return nil, nil
}

type stubClosure struct{}

func (stubClosure) SystemInfluence(context.Context, string) (*closure.Report, error) {
	return nil, nil
}

func (stubClosure) DeploymentInfluence(context.Context, string, string, string) (*closure.Report, error) {
	return nil, nil
}

type stubSearch struct{}

func (stubSearch) Search(context.Context, string) ([]server.SystemSummary, error) {
	return nil, nil
}

type stubJournal struct{}

func (stubJournal) Recent(context.Context, string, int) ([]*journal.Entry, error) {
	return nil, nil
}
