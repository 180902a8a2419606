// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package journal records ingestion runs in a local SQLite database. The
// journal is operational metadata only: losing it never affects the graph,
// and writes to it never fail an ingestion.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Entry is one recorded ingestion.
type Entry struct {
	ID            string        `json:"id"`
	CMDB          string        `json:"cmdb"`
	GraphTag      string        `json:"graphTag"`
	Version       int64         `json:"version,omitempty"`
	Elements      int           `json:"elements"`
	Relationships int           `json:"relationships"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// Recorder is the write side of the journal, as the merge engine sees it.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// Compile-time interface check.
var _ Recorder = (*Store)(nil)

// Store persists journal entries in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath and initialises
// its schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging journal db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
	id            TEXT PRIMARY KEY,
	cmdb          TEXT NOT NULL,
	graph_tag     TEXT NOT NULL,
	version       INTEGER NOT NULL DEFAULT 0,
	elements      INTEGER NOT NULL DEFAULT 0,
	relationships INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ingestions_cmdb ON ingestions(cmdb, started_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one entry, assigning an id when the caller left it empty.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const q = `INSERT INTO ingestions (id, cmdb, graph_tag, version, elements, relationships, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.CMDB,
		e.GraphTag,
		e.Version,
		e.Elements,
		e.Relationships,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return agerr.Wrap(err, agerr.CodeJournalRecordFailure, "recording ingestion",
			agerr.FieldCMDB(e.CMDB))
	}
	return nil
}

// Recent lists entries newest first, optionally filtered to one cmdb. limit
// caps the result; values below 1 default to 50.
func (s *Store) Recent(ctx context.Context, cmdb string, limit int) ([]*Entry, error) {
	if limit < 1 {
		limit = 50
	}
	q := `SELECT id, cmdb, graph_tag, version, elements, relationships, started_at, duration_ms
FROM ingestions`
	args := []any{}
	if cmdb != "" {
		q += ` WHERE cmdb = ?`
		args = append(args, cmdb)
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, agerr.Wrap(err, agerr.CodeJournalQueryFailure, "listing ingestions",
			agerr.FieldCMDB(cmdb))
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.CMDB, &e.GraphTag, &e.Version, &e.Elements,
			&e.Relationships, &startedAt, &durationMS); err != nil {
			return nil, agerr.Wrap(err, agerr.CodeJournalQueryFailure, "scanning ingestion row")
		}
		if t, perr := time.Parse(time.RFC3339Nano, startedAt); perr == nil {
			e.StartedAt = t
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, agerr.Wrap(err, agerr.CodeJournalQueryFailure, "listing ingestions")
	}
	return out, nil
}
