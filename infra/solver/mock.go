package solver

import (
	"context"
	"sync"

	"evroute/core/milp"
	coresolver "evroute/core/solver"
)

// MockSolver returns canned results and records the problems it was handed.
// Values are keyed by variable name so tests stay independent of handle
// assignment order; names absent from the problem are ignored.
type MockSolver struct {
	Status     coresolver.Status
	Objective  float64
	LowerBound float64
	UpperBound float64
	Values     map[string]float64
	Err        error

	mu       sync.Mutex
	problems []*milp.Problem
}

// Solve implements solver.Adapter.
func (m *MockSolver) Solve(_ context.Context, p *milp.Problem, _ coresolver.Options) (coresolver.Result, error) {
	m.mu.Lock()
	m.problems = append(m.problems, p)
	m.mu.Unlock()

	if m.Err != nil {
		return coresolver.Result{Status: coresolver.StatusError}, m.Err
	}
	res := coresolver.NewResult(m.Status, nil)
	res.Objective = m.Objective
	res.LowerBound = m.LowerBound
	res.UpperBound = m.UpperBound
	for i, v := range p.Vars() {
		if val, ok := m.Values[v.Name]; ok {
			res.SetValue(milp.VarID(i), val)
		}
	}
	return res, nil
}

// Problems returns the problems passed to Solve, in call order.
func (m *MockSolver) Problems() []*milp.Problem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*milp.Problem, len(m.problems))
	copy(out, m.problems)
	return out
}
