// Package metrics defines the observability contract of the planning
// pipeline. Concrete sinks live under infra/metrics.
package metrics

import (
	"time"

	"evroute/core/demand"
)

// SolveEvent describes the outcome of one vehicle's solve.
type SolveEvent struct {
	RunID     string
	VehicleID string
	Status    string
	Objective float64
	Gap       float64
	Duration  time.Duration
	Time      time.Time
}

// Sink records planning events for observability purposes.
type Sink interface {
	RecordSolve(ev SolveEvent) error
	RecordDemand(runID string, records []demand.Record) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error               { return nil }
func (NopSink) RecordDemand(string, []demand.Record) error { return nil }

// MultiSink fans events out to several sinks, returning the first error.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink { return &MultiSink{sinks: sinks} }

func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordSolve(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordDemand(runID string, records []demand.Record) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordDemand(runID, records); err != nil && first == nil {
			first = err
		}
	}
	return first
}
