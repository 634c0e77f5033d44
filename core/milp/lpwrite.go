package milp

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteLP renders the problem in CPLEX LP format for file-based solvers.
// Only fully linear problems can be written; linearize bilinear terms first.
func (p *Problem) WriteLP(w io.Writer) error {
	if p.IsQuadratic() {
		return fmt.Errorf("lp writer: problem has bilinear terms, linearize first")
	}
	var b strings.Builder
	b.WriteString("Minimize\n obj:")
	writeLinear(&b, p.objective.Terms, p)
	if p.objective.Const != 0 {
		fmt.Fprintf(&b, " + %g", p.objective.Const)
	}
	b.WriteString("\nSubject To\n")
	for i, c := range p.constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("c%d", i)
		}
		fmt.Fprintf(&b, " %s:", name)
		writeLinear(&b, c.Expr.Terms, p)
		rhs := c.RHS - c.Expr.Const
		fmt.Fprintf(&b, " %s %g\n", c.Sense, rhs)
	}
	b.WriteString("Bounds\n")
	for id, v := range p.vars {
		if v.Kind == Binary {
			continue
		}
		lo, hi := boundString(v.Lower), boundString(v.Upper)
		fmt.Fprintf(&b, " %s <= %s <= %s\n", lo, varName(v, id), hi)
	}
	var bins []string
	for id, v := range p.vars {
		if v.Kind == Binary {
			bins = append(bins, varName(v, id))
		}
	}
	if len(bins) > 0 {
		b.WriteString("Binary\n")
		for _, n := range bins {
			b.WriteString(" " + n + "\n")
		}
	}
	b.WriteString("End\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeLinear(b *strings.Builder, terms []Term, p *Problem) {
	if len(terms) == 0 {
		b.WriteString(" 0")
		return
	}
	for _, t := range terms {
		name := varName(p.vars[t.Var], int(t.Var))
		if t.Coef >= 0 {
			fmt.Fprintf(b, " + %g %s", t.Coef, name)
		} else {
			fmt.Fprintf(b, " - %g %s", -t.Coef, name)
		}
	}
}

func varName(v Var, id int) string {
	if v.Name != "" {
		return sanitize(v.Name)
	}
	return fmt.Sprintf("x%d", id)
}

// sanitize replaces characters the LP format does not allow in names.
func sanitize(name string) string {
	r := strings.NewReplacer("[", "_", "]", "", ",", "_", " ", "_", "(", "_", ")", "")
	return r.Replace(name)
}

func boundString(v float64) string {
	if math.IsInf(v, 1) {
		return "+inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", v)
}
