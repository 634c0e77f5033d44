package solver

import (
	"context"
	"math"
	"testing"

	"evroute/core/milp"
	coresolver "evroute/core/solver"
)

func TestRelaxationSolver_SmallLP(t *testing.T) {
	// minimize x + 2y  s.t.  x + y >= 4, x <= 3, y <= 5
	var p milp.Problem
	x := p.AddContinuous("x", 0, 3)
	y := p.AddContinuous("y", 0, 5)
	var row milp.Expr
	row.Add(x, 1)
	row.Add(y, 1)
	p.AddConstraint("cover", row, milp.GE, 4)
	var obj milp.Expr
	obj.Add(x, 1)
	obj.Add(y, 2)
	p.SetObjective(obj)

	res, err := RelaxationSolver{}.Solve(context.Background(), &p, coresolver.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != coresolver.StatusOptimal {
		t.Fatalf("expected optimal, got %v", res.Status)
	}
	// Optimum fills x to its bound: x=3, y=1, objective 5.
	if math.Abs(res.Objective-5) > 1e-6 {
		t.Fatalf("objective: expected 5, got %g", res.Objective)
	}
	xv, _ := res.Value(x)
	yv, _ := res.Value(y)
	if math.Abs(xv-3) > 1e-6 || math.Abs(yv-1) > 1e-6 {
		t.Fatalf("expected (3, 1), got (%g, %g)", xv, yv)
	}
	if res.Gap() != 0 {
		t.Fatalf("relaxation optimum must have zero gap, got %g", res.Gap())
	}
}

func TestRelaxationSolver_RelaxesBinaries(t *testing.T) {
	// minimize -b with b binary relaxes to b = 1.
	var p milp.Problem
	b := p.AddBinary("b")
	var obj milp.Expr
	obj.Add(b, -1)
	p.SetObjective(obj)

	res, err := RelaxationSolver{}.Solve(context.Background(), &p, coresolver.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	bv, ok := res.Value(b)
	if !ok || math.Abs(bv-1) > 1e-6 {
		t.Fatalf("expected b=1, got %g ok=%t", bv, ok)
	}
}

func TestRelaxationSolver_Infeasible(t *testing.T) {
	var p milp.Problem
	x := p.AddContinuous("x", 0, 1)
	var row milp.Expr
	row.Add(x, 1)
	p.AddConstraint("impossible", row, milp.GE, 5)
	var obj milp.Expr
	obj.Add(x, 1)
	p.SetObjective(obj)

	res, err := RelaxationSolver{}.Solve(context.Background(), &p, coresolver.Options{})
	if err != nil {
		t.Fatalf("infeasible models are reported, not errored: %v", err)
	}
	if res.Status != coresolver.StatusInfeasible {
		t.Fatalf("expected infeasible, got %v", res.Status)
	}
}

func TestRelaxationSolver_RejectsBilinear(t *testing.T) {
	var p milp.Problem
	x := p.AddContinuous("x", 0, 1)
	b := p.AddBinary("b")
	var row milp.Expr
	row.AddQuad(b, x, 1)
	p.AddConstraint("q", row, milp.EQ, 0)

	if _, err := (RelaxationSolver{}).Solve(context.Background(), &p, coresolver.Options{}); err == nil {
		t.Fatal("expected error for bilinear model")
	}
}
