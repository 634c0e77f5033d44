package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"evroute/core/milp"
	coresolver "evroute/core/solver"
)

// RelaxationSolver solves the continuous relaxation of a linearized model
// with gonum's simplex: binaries become [0,1] continuous variables. The
// objective of the relaxation is a valid lower bound of the integer optimum,
// so the adapter is useful for bound reporting and for small instances whose
// relaxation happens to be integral. It rejects bilinear models.
type RelaxationSolver struct {
	// Tol is the simplex convergence tolerance. Zero selects 1e-7.
	Tol float64
}

// Solve implements solver.Adapter.
func (r RelaxationSolver) Solve(ctx context.Context, p *milp.Problem, _ coresolver.Options) (coresolver.Result, error) {
	if p.IsQuadratic() {
		return coresolver.Result{Status: coresolver.StatusError},
			fmt.Errorf("%w: relaxation requires a linearized model", coresolver.ErrSolver)
	}
	if err := ctx.Err(); err != nil {
		return coresolver.Result{Status: coresolver.StatusError}, err
	}

	n := p.NumVars()
	c := make([]float64, n)
	for _, t := range p.Objective().Terms {
		c[t.Var] += t.Coef
	}

	// Inequality rows G x <= h: the model's LE and negated GE rows plus the
	// variable bounds. Equality rows go straight into A x = b.
	var gRows, aRows [][]float64
	var h, b []float64
	for _, con := range p.Constraints() {
		row := make([]float64, n)
		for _, t := range con.Expr.Terms {
			row[t.Var] += t.Coef
		}
		rhs := con.RHS - con.Expr.Const
		switch con.Sense {
		case milp.LE:
			gRows = append(gRows, row)
			h = append(h, rhs)
		case milp.GE:
			neg := make([]float64, n)
			for i, v := range row {
				neg[i] = -v
			}
			gRows = append(gRows, neg)
			h = append(h, -rhs)
		case milp.EQ:
			aRows = append(aRows, row)
			b = append(b, rhs)
		}
	}
	for i, v := range p.Vars() {
		up := make([]float64, n)
		up[i] = 1
		gRows = append(gRows, up)
		h = append(h, v.Upper)
		lo := make([]float64, n)
		lo[i] = -1
		gRows = append(gRows, lo)
		h = append(h, -v.Lower)
	}

	g := mat.NewDense(len(gRows), n, nil)
	for i, row := range gRows {
		g.SetRow(i, row)
	}
	var a mat.Matrix
	if len(aRows) > 0 {
		ad := mat.NewDense(len(aRows), n, nil)
		for i, row := range aRows {
			ad.SetRow(i, row)
		}
		a = ad
	}

	tol := r.Tol
	if tol <= 0 {
		tol = 1e-7
	}
	started := time.Now()
	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	obj, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	elapsed := time.Since(started)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return coresolver.Result{Status: coresolver.StatusInfeasible, Runtime: elapsed}, nil
		case errors.Is(err, lp.ErrUnbounded):
			return coresolver.Result{Status: coresolver.StatusUnbounded, Runtime: elapsed}, nil
		default:
			return coresolver.Result{Status: coresolver.StatusError},
				fmt.Errorf("%w: simplex: %v", coresolver.ErrSolver, err)
		}
	}

	// Convert splits each free variable into a positive and a negative part,
	// laid out as [x+ (n), x- (n), slacks]; the original value is x+ - x-.
	res := coresolver.NewResult(coresolver.StatusOptimal, nil)
	for i := 0; i < n; i++ {
		res.SetValue(milp.VarID(i), sol[i]-sol[n+i])
	}
	res.Objective = obj
	res.LowerBound = obj
	res.UpperBound = obj
	res.Runtime = elapsed
	return res, nil
}
