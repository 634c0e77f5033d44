// Package solver defines the contract between the routing formulation and
// whatever MILP/MIQP engine solves it. Engines live behind the Adapter
// interface; this package never implements a solving algorithm itself.
package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"evroute/core/milp"
)

// Status is the termination condition reported by a solver.
type Status int8

const (
	// StatusOptimal means the solver proved optimality of the incumbent.
	StatusOptimal Status = iota
	// StatusTimeLimit means the time budget expired with a feasible
	// incumbent; the bound gap quantifies how far it may be from optimal.
	StatusTimeLimit
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective has no lower limit, which for this
	// formulation always indicates a modeling error.
	StatusUnbounded
	// StatusError covers solver environment failures.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusTimeLimit:
		return "time_limit"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// HasSolution reports whether a variable assignment accompanies the status.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusTimeLimit
}

// Sentinel errors for the failure taxonomy. Infeasible and unbounded models
// are reported, never retried or silently relaxed.
var (
	ErrInfeasible = errors.New("model infeasible")
	ErrUnbounded  = errors.New("model unbounded")
	ErrSolver     = errors.New("solver failure")
)

// Options tune a single solve invocation.
type Options struct {
	// TimeLimit caps the wall-clock duration of the solve. Zero means no
	// limit. On expiry the best incumbent is returned with StatusTimeLimit.
	TimeLimit time.Duration
}

// Result carries the solver output. Individual variables may be absent from
// the assignment; consumers must use Value rather than indexing.
type Result struct {
	Status     Status
	Objective  float64
	LowerBound float64
	UpperBound float64
	Runtime    time.Duration

	values map[milp.VarID]float64
}

// NewResult builds a Result with the given sparse assignment.
func NewResult(status Status, values map[milp.VarID]float64) Result {
	return Result{Status: status, values: values}
}

// SetValue stores an assignment for one variable.
func (r *Result) SetValue(id milp.VarID, v float64) {
	if r.values == nil {
		r.values = make(map[milp.VarID]float64)
	}
	r.values[id] = v
}

// Value returns the assignment of a variable, with ok=false when the solver
// did not report one.
func (r Result) Value(id milp.VarID) (float64, bool) {
	v, ok := r.values[id]
	return v, ok
}

// Gap is the relative optimality gap (upper-lower)/|upper|, zero when the
// bounds coincide or are unavailable.
func (r Result) Gap() float64 {
	if r.LowerBound == 0 || r.UpperBound == 0 {
		return 0
	}
	if math.IsInf(r.LowerBound, -1) || math.IsInf(r.UpperBound, 1) {
		return math.Inf(1)
	}
	g := (r.UpperBound - r.LowerBound) / math.Abs(r.UpperBound)
	if g < 0 {
		return 0
	}
	return g
}

// Adapter hands a problem to an external engine and maps its output back.
type Adapter interface {
	Solve(ctx context.Context, p *milp.Problem, opts Options) (Result, error)
}
