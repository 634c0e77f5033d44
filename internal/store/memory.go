package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store, the default when no database is configured.
type Memory struct {
	mu    sync.RWMutex
	runs  map[string]RunRecord
	order []string // insertion order, newest last
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]RunRecord)}
}

// SaveRun stores the record, replacing any run with the same identifier.
func (m *Memory) SaveRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[rec.RunID]; !exists {
		m.order = append(m.order, rec.RunID)
	}
	m.runs[rec.RunID] = rec
	return nil
}

// GetRun returns the record for runID or ErrNotFound.
func (m *Memory) GetRun(_ context.Context, runID string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[runID]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListRuns returns up to limit run identifiers, newest first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]string, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.order[i])
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() {}
