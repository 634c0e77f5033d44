package milp

import (
	"strings"
	"testing"
)

func TestWriteLP(t *testing.T) {
	var p Problem
	x := p.AddContinuous("vTimeCharging[3]", 0, 2)
	b := p.AddBinary("v01Charge[3]")

	var row Expr
	row.Add(x, 1)
	row.Add(b, -2)
	p.AddConstraint("cMaxCharging[3]", row, LE, 0)

	var obj Expr
	obj.Add(x, 11.25)
	p.SetObjective(obj)

	var sb strings.Builder
	if err := p.WriteLP(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"Minimize",
		"Subject To",
		"cMaxCharging_3: + 1 vTimeCharging_3 - 2 v01Charge_3 <= 0",
		"Bounds",
		"0 <= vTimeCharging_3 <= 2",
		"Binary",
		"v01Charge_3",
		"End",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteLP_RejectsBilinear(t *testing.T) {
	var p Problem
	x := p.AddContinuous("x", 0, 1)
	b := p.AddBinary("b")
	var e Expr
	e.AddQuad(b, x, 1)
	p.AddConstraint("q", e, EQ, 0)

	if err := p.WriteLP(&strings.Builder{}); err == nil {
		t.Fatal("expected error for bilinear problem")
	}
}
