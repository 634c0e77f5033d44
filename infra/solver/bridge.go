// Package solver provides the concrete solver adapters: an external-process
// bridge for full MILP/MIQP engines, a gonum-based continuous relaxation and
// a mock for tests.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"evroute/core/logger"
	"evroute/core/milp"
	coresolver "evroute/core/solver"
)

// BridgeSolver hands the problem to an external solver process as JSON on
// stdin and reads the result as JSON from stdout. Any engine with a thin
// wrapper script (SCIP, HiGHS, Gurobi) can sit on the other end.
type BridgeSolver struct {
	Command string
	Args    []string
	Logger  logger.Logger
}

// NewBridgeSolver builds a bridge for the given solver command line.
func NewBridgeSolver(command string, args []string, log logger.Logger) *BridgeSolver {
	return &BridgeSolver{Command: command, Args: args, Logger: log}
}

type wireVar struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type wireTerm struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

type wireQuadTerm struct {
	X    int     `json:"x"`
	Y    int     `json:"y"`
	Coef float64 `json:"coef"`
}

type wireExpr struct {
	Terms []wireTerm     `json:"terms"`
	Quad  []wireQuadTerm `json:"quad,omitempty"`
	Const float64        `json:"const,omitempty"`
}

type wireConstraint struct {
	Name  string   `json:"name"`
	Expr  wireExpr `json:"expr"`
	Sense string   `json:"sense"`
	RHS   float64  `json:"rhs"`
}

type wireProblem struct {
	Variables        []wireVar        `json:"variables"`
	Constraints      []wireConstraint `json:"constraints"`
	Objective        wireExpr         `json:"objective"`
	TimeLimitSeconds float64          `json:"time_limit_seconds,omitempty"`
}

// wireResult mirrors the solver wrapper's stdout. Values is aligned with the
// variable arena; null entries mean the engine reported no value.
type wireResult struct {
	Status         string     `json:"status"`
	Objective      float64    `json:"objective"`
	LowerBound     float64    `json:"lower_bound"`
	UpperBound     float64    `json:"upper_bound"`
	RuntimeSeconds float64    `json:"runtime_seconds"`
	Values         []*float64 `json:"values"`
	Message        string     `json:"message,omitempty"`
}

// Solve implements solver.Adapter.
func (b *BridgeSolver) Solve(ctx context.Context, p *milp.Problem, opts coresolver.Options) (coresolver.Result, error) {
	payload, err := json.Marshal(encodeProblem(p, opts))
	if err != nil {
		return coresolver.Result{Status: coresolver.StatusError},
			fmt.Errorf("%w: encoding problem: %v", coresolver.ErrSolver, err)
	}

	cmd := exec.CommandContext(ctx, b.Command, b.Args...)
	var out, errbuf bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &out
	cmd.Stderr = &errbuf

	started := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return coresolver.Result{Status: coresolver.StatusError}, ctx.Err()
		}
		if b.Logger != nil && errbuf.Len() > 0 {
			b.Logger.Warnf("solver stderr: %s", errbuf.String())
		}
		return coresolver.Result{Status: coresolver.StatusError},
			fmt.Errorf("%w: running %s: %v", coresolver.ErrSolver, b.Command, err)
	}

	var wr wireResult
	if err := json.Unmarshal(out.Bytes(), &wr); err != nil {
		return coresolver.Result{Status: coresolver.StatusError},
			fmt.Errorf("%w: decoding result: %v", coresolver.ErrSolver, err)
	}
	return decodeResult(p, wr, time.Since(started))
}

func encodeProblem(p *milp.Problem, opts coresolver.Options) wireProblem {
	wp := wireProblem{TimeLimitSeconds: opts.TimeLimit.Seconds()}
	for _, v := range p.Vars() {
		kind := "continuous"
		if v.Kind == milp.Binary {
			kind = "binary"
		}
		wp.Variables = append(wp.Variables, wireVar{Name: v.Name, Kind: kind, Lower: v.Lower, Upper: v.Upper})
	}
	for _, c := range p.Constraints() {
		wp.Constraints = append(wp.Constraints, wireConstraint{
			Name:  c.Name,
			Expr:  encodeExpr(c.Expr),
			Sense: c.Sense.String(),
			RHS:   c.RHS,
		})
	}
	wp.Objective = encodeExpr(p.Objective())
	return wp
}

func encodeExpr(e milp.Expr) wireExpr {
	we := wireExpr{Const: e.Const, Terms: make([]wireTerm, 0, len(e.Terms))}
	for _, t := range e.Terms {
		we.Terms = append(we.Terms, wireTerm{Var: int(t.Var), Coef: t.Coef})
	}
	for _, q := range e.Quad {
		we.Quad = append(we.Quad, wireQuadTerm{X: int(q.X), Y: int(q.Y), Coef: q.Coef})
	}
	return we
}

func decodeResult(p *milp.Problem, wr wireResult, elapsed time.Duration) (coresolver.Result, error) {
	status, err := parseStatus(wr.Status)
	if err != nil {
		return coresolver.Result{Status: coresolver.StatusError}, err
	}

	res := coresolver.NewResult(status, nil)
	res.Objective = wr.Objective
	res.LowerBound = wr.LowerBound
	res.UpperBound = wr.UpperBound
	res.Runtime = elapsed
	if wr.RuntimeSeconds > 0 {
		res.Runtime = time.Duration(wr.RuntimeSeconds * float64(time.Second))
	}
	if status.HasSolution() {
		if len(wr.Values) != p.NumVars() {
			return coresolver.Result{Status: coresolver.StatusError},
				fmt.Errorf("%w: result has %d values, problem has %d variables",
					coresolver.ErrSolver, len(wr.Values), p.NumVars())
		}
		for i, v := range wr.Values {
			if v != nil {
				res.SetValue(milp.VarID(i), *v)
			}
		}
	}
	return res, nil
}

func parseStatus(s string) (coresolver.Status, error) {
	switch s {
	case "optimal":
		return coresolver.StatusOptimal, nil
	case "time_limit":
		return coresolver.StatusTimeLimit, nil
	case "infeasible":
		return coresolver.StatusInfeasible, nil
	case "unbounded":
		return coresolver.StatusUnbounded, nil
	case "error":
		return coresolver.StatusError, nil
	default:
		return coresolver.StatusError, fmt.Errorf("%w: unknown status %q", coresolver.ErrSolver, s)
	}
}
