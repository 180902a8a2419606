// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package health

import "time"

// Status is the point-in-time snapshot served by the health probe. All
// fields are safe to serialize to JSON.
type Status struct {
	Status    string    `json:"status" example:"ok" doc:"Overall health status"`
	Store     string    `json:"store" example:"ok" doc:"Graph store reachability"`
	CheckedAt time.Time `json:"checkedAt" doc:"When the probe ran"`
}

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// ForStore derives the probe result from a store ping outcome.
func ForStore(pingErr error, now time.Time) Status {
	s := Status{Status: StatusOK, Store: StatusOK, CheckedAt: now}
	if pingErr != nil {
		s.Status = StatusDegraded
		s.Store = "unreachable"
	}
	return s
}
