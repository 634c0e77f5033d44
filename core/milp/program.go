// Package milp holds an explicit in-memory representation of a mixed-integer
// (optionally quadratically constrained) program: an arena of variables
// addressed by integer handles, linear and bilinear constraint rows and a
// single objective. Solvers consume this representation through adapters.
package milp

import "fmt"

// VarID is the integer handle of a variable in a Problem's arena.
type VarID int

// VarKind distinguishes variable domains.
type VarKind int8

const (
	Continuous VarKind = iota
	Binary
)

// Var describes one decision variable.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is coef * variable.
type Term struct {
	Var  VarID
	Coef float64
}

// QuadTerm is coef * x * y. The routing formulation only ever produces
// binary-times-continuous products.
type QuadTerm struct {
	X, Y VarID
	Coef float64
}

// Expr is an affine expression, optionally carrying bilinear terms.
type Expr struct {
	Terms []Term
	Quad  []QuadTerm
	Const float64
}

// Add appends a linear term.
func (e *Expr) Add(v VarID, coef float64) { e.Terms = append(e.Terms, Term{Var: v, Coef: coef}) }

// AddQuad appends a bilinear term.
func (e *Expr) AddQuad(x, y VarID, coef float64) {
	e.Quad = append(e.Quad, QuadTerm{X: x, Y: y, Coef: coef})
}

// IsQuadratic reports whether the expression carries bilinear terms.
func (e Expr) IsQuadratic() bool { return len(e.Quad) > 0 }

// Sense is the relation of a constraint row to its right-hand side.
type Sense int8

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Constraint is one row: Expr Sense RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Problem is a complete model instance. The zero value is an empty
// minimization problem.
type Problem struct {
	vars        []Var
	constraints []Constraint
	objective   Expr
}

// AddContinuous adds a bounded continuous variable and returns its handle.
func (p *Problem) AddContinuous(name string, lower, upper float64) VarID {
	p.vars = append(p.vars, Var{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return VarID(len(p.vars) - 1)
}

// AddBinary adds a {0,1} variable and returns its handle.
func (p *Problem) AddBinary(name string) VarID {
	p.vars = append(p.vars, Var{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return VarID(len(p.vars) - 1)
}

// AddConstraint appends a row. Rows keep insertion order.
func (p *Problem) AddConstraint(name string, expr Expr, sense Sense, rhs float64) {
	p.constraints = append(p.constraints, Constraint{Name: name, Expr: expr, Sense: sense, RHS: rhs})
}

// SetObjective installs the minimization objective.
func (p *Problem) SetObjective(expr Expr) { p.objective = expr }

// Objective returns the objective expression.
func (p *Problem) Objective() Expr { return p.objective }

// Var returns the descriptor of a handle.
func (p *Problem) Var(id VarID) Var { return p.vars[id] }

// NumVars returns the arena size.
func (p *Problem) NumVars() int { return len(p.vars) }

// Vars returns the variable arena in handle order.
func (p *Problem) Vars() []Var { return p.vars }

// Constraints returns the rows in insertion order.
func (p *Problem) Constraints() []Constraint { return p.constraints }

// IsQuadratic reports whether any row or the objective carries bilinear terms.
func (p *Problem) IsQuadratic() bool {
	if p.objective.IsQuadratic() {
		return true
	}
	for _, c := range p.constraints {
		if c.Expr.IsQuadratic() {
			return true
		}
	}
	return false
}

// EvalExpr computes the value of an expression under a full assignment.
func (p *Problem) EvalExpr(e Expr, values func(VarID) (float64, bool)) (float64, error) {
	total := e.Const
	for _, t := range e.Terms {
		v, ok := values(t.Var)
		if !ok {
			return 0, fmt.Errorf("no value for variable %s", p.vars[t.Var].Name)
		}
		total += t.Coef * v
	}
	for _, q := range e.Quad {
		x, okx := values(q.X)
		y, oky := values(q.Y)
		if !okx || !oky {
			return 0, fmt.Errorf("no value for bilinear term %s*%s", p.vars[q.X].Name, p.vars[q.Y].Name)
		}
		total += q.Coef * x * y
	}
	return total, nil
}
