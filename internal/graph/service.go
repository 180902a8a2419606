// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package graph implements the merge engine: it folds submitted workspace
// documents into the versioned property graph. Global ingestions advance the
// subject system's version counter and run close-then-reopen over its prior
// snapshot; local rebuilds regenerate a per-system scratch graph from
// scratch on every call.
package graph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/archigraph/archigraph/internal/identity"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/model"
	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Service serializes ingestions per cmdb and drives the merge walk. Two
// documents for different systems may merge concurrently; two for the same
// system never do, since the close-then-reopen sequence is not atomic.
type Service struct {
	graph   store.Graph
	journal journal.Recorder
	log     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the merge engine. recorder may be nil; journal failures
// are logged and never fail an ingestion.
func NewService(g store.Graph, recorder journal.Recorder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		graph:   g,
		journal: recorder,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Result summarizes one merged document.
type Result struct {
	CMDB          string `json:"cmdb"`
	GraphTag      string `json:"graphTag"`
	Version       int64  `json:"version,omitempty"`
	Elements      int    `json:"elements"`
	Relationships int    `json:"relationships"`
}

func (s *Service) lock(cmdb string) func() {
	s.mu.Lock()
	l, ok := s.locks[cmdb]
	if !ok {
		l = &sync.Mutex{}
		s.locks[cmdb] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// IngestGlobal merges a document into the Global graph: bump the subject's
// version, close its previous snapshot, then walk the document reopening
// everything it still describes.
func (s *Service) IngestGlobal(ctx context.Context, ws *model.Workspace) (*Result, error) {
	subject, cmdb, err := subjectOf(ws)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(cmdb)
	defer unlock()

	started := time.Now()
	m := &merge{
		graph:  s.graph,
		log:    s.log.With("cmdb", cmdb, "graphTag", store.TagGlobal),
		tag:    store.TagGlobal,
		cmdb:   cmdb,
		global: true,
		model:  &ws.Model,
		object: make(map[string]*store.Node),
	}

	version, err := m.updateSystem(ctx, subject)
	if err != nil {
		return nil, agerr.With(err, agerr.FieldCMDB(cmdb))
	}
	m.version = version

	if err := s.graph.Snapshots().CloseSnapshot(ctx, store.TagGlobal, cmdb, version-1); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "closing previous snapshot",
			agerr.FieldCMDB(cmdb))
	}

	if err := m.run(ctx, subject); err != nil {
		return nil, agerr.With(err, agerr.FieldCMDB(cmdb))
	}

	res := &Result{
		CMDB:          cmdb,
		GraphTag:      store.TagGlobal,
		Version:       version,
		Elements:      len(m.object),
		Relationships: m.relationships,
	}
	s.record(ctx, res, started)
	s.log.InfoContext(ctx, "ingested global document",
		"cmdb", cmdb, "version", version,
		"elements", res.Elements, "relationships", res.Relationships,
		"took", time.Since(started))
	return res, nil
}

// RebuildLocal deletes and regenerates the scratch graph for one cmdb. No
// versioning applies; the scratch graph always reflects the last call.
func (s *Service) RebuildLocal(ctx context.Context, cmdb string, ws *model.Workspace) (*Result, error) {
	subject, docCMDB, err := subjectOf(ws)
	if err != nil {
		return nil, err
	}
	if docCMDB != cmdb {
		return nil, agerr.Errorf(agerr.CodeGraphDocumentInvalid,
			"document is for cmdb %q, not %q", docCMDB, cmdb)
	}
	unlock := s.lock(cmdb)
	defer unlock()

	started := time.Now()
	tag := identity.LocalTag(cmdb)
	if err := s.graph.Snapshots().DeleteAll(ctx, tag); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeGraphIngestFailure, "clearing scratch graph",
			agerr.FieldCMDB(cmdb), agerr.FieldGraphTag(tag))
	}

	m := &merge{
		graph:  s.graph,
		log:    s.log.With("cmdb", cmdb, "graphTag", tag),
		tag:    tag,
		cmdb:   cmdb,
		model:  &ws.Model,
		object: make(map[string]*store.Node),
	}
	if _, err := m.updateSystem(ctx, subject); err != nil {
		return nil, agerr.With(err, agerr.FieldCMDB(cmdb))
	}
	if err := m.run(ctx, subject); err != nil {
		return nil, agerr.With(err, agerr.FieldCMDB(cmdb))
	}

	res := &Result{
		CMDB:          cmdb,
		GraphTag:      tag,
		Elements:      len(m.object),
		Relationships: m.relationships,
	}
	s.record(ctx, res, started)
	s.log.InfoContext(ctx, "rebuilt local graph",
		"cmdb", cmdb, "elements", res.Elements, "relationships", res.Relationships,
		"took", time.Since(started))
	return res, nil
}

func (s *Service) record(ctx context.Context, res *Result, started time.Time) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(ctx, &journal.Entry{
		CMDB:          res.CMDB,
		GraphTag:      res.GraphTag,
		Version:       res.Version,
		Elements:      res.Elements,
		Relationships: res.Relationships,
		StartedAt:     started,
		Duration:      time.Since(started),
	})
	if err != nil {
		s.log.WarnContext(ctx, "journal write failed", "cmdb", res.CMDB, "error", err)
	}
}

func subjectOf(ws *model.Workspace) (*model.SoftwareSystem, string, error) {
	cmdb := ws.CMDB()
	if cmdb == "" {
		return nil, "", agerr.New(agerr.CodeGraphDocumentInvalid, "document has no workspace_cmdb property")
	}
	subject := ws.Subject()
	if subject == nil {
		return nil, "", agerr.Errorf(agerr.CodeGraphDocumentInvalid,
			"no software system carries cmdb %q", cmdb)
	}
	return subject, cmdb, nil
}
