// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package server_test

import (
	"context"

	"github.com/archigraph/archigraph/internal/closure"
	"github.com/archigraph/archigraph/internal/diff"
	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/view"
)

// Stubs satisfying the service interfaces for tests that only exercise
// server wiring, not engine behavior.

type stubIngest struct{}

func (stubIngest) IngestGlobal(context.Context, *model.Workspace) (*graph.Result, error) {
	return &graph.Result{}, nil
}

func (stubIngest) RebuildLocal(context.Context, string, *model.Workspace) (*graph.Result, error) {
	return &graph.Result{}, nil
}

type stubDiff struct{}

func (stubDiff) Compare(context.Context, string, int64, int64) (*diff.Report, error) {
	return &diff.Report{}, nil
}

type stubViews struct{}

func (stubViews) ContextView(context.Context, string, string) (*view.Document, error) {
	return &view.Document{}, nil
}

func (stubViews) ContainerView(context.Context, string, string) (*view.Document, error) {
	return &view.Document{}, nil
}

func (stubViews) ComponentView(context.Context, string, string, string) (*view.Document, error) {
	return &view.Document{}, nil
}

func (stubViews) DeploymentView(context.Context, string, string, string) (*view.Document, error) {
	return &view.Document{}, nil
}

type stubClosure struct{}

func (stubClosure) SystemInfluence(context.Context, string) (*closure.Report, error) {
	return &closure.Report{}, nil
}

func (stubClosure) DeploymentInfluence(context.Context, string, string, string) (*closure.Report, error) {
	return &closure.Report{}, nil
}

type stubJournal struct{}

func (stubJournal) Recent(context.Context, string, int) ([]*journal.Entry, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
