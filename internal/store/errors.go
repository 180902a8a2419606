// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package store

import "errors"

// Sentinel errors for store operations. Backends return these; the engines
// wrap them into coded errors. Check with errors.Is().
var (
	// ErrNotFound indicates the requested node or edge does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an ambiguous match or constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates malformed query parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the backend cannot be reached. Callers may
	// retry; the store itself never does.
	ErrUnavailable = errors.New("store unavailable")

	// ErrStore is a catch-all for unexpected backend failures.
	ErrStore = errors.New("store error")
)
