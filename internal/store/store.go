// Package store persists planning runs so the demand history survives
// restarts and can feed later pricing cycles.
package store

import (
	"context"
	"errors"
	"time"

	"evroute/core/demand"
	"evroute/core/routing"
)

// ErrNotFound is returned when a run identifier is unknown.
var ErrNotFound = errors.New("run not found")

// RunRecord is one persisted planning run.
type RunRecord struct {
	RunID     string                  `json:"run_id"`
	CreatedAt time.Time               `json:"created_at"`
	Solutions []routing.RouteSolution `json:"solutions"`
	Demand    []demand.Record         `json:"demand"`
}

// Store persists and retrieves planning runs.
type Store interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]string, error)
	Close()
}
