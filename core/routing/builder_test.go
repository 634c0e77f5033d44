package routing

import (
	"errors"
	"strings"
	"testing"

	"evroute/core/milp"
	"evroute/core/network"
	"evroute/core/solver"
)

// ringNetwork is a four-intersection loop with a charging station at 3 and a
// delivery at 4: 1 -> 2 -> 3 -> 4 -> 1.
func ringNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := &network.Network{
		Intersections: []int{1, 2, 3, 4},
		Paths: []network.Path{
			{ID: 1, Origin: 1, Destination: 2, AvgSpeedKMH: 50, DistanceAtSpeedKM: 10, PowerAtSpeedKW: 20},
			{ID: 2, Origin: 2, Destination: 3, AvgSpeedKMH: 50, DistanceAtSpeedKM: 5, PowerAtSpeedKW: 20},
			{ID: 3, Origin: 3, Destination: 4, AvgSpeedKMH: 50, DistanceAtSpeedKM: 5, PowerAtSpeedKW: 20},
			{ID: 4, Origin: 4, Destination: 1, AvgSpeedKMH: 50, DistanceAtSpeedKM: 10, PowerAtSpeedKW: 20},
		},
		Deliveries: []network.DeliveryPoint{
			{Intersection: 4, Vehicle: "ev1", ServiceHours: 0.1, DeadlineHours: 9, PenaltyPerH: 10},
		},
		Stations: []network.ChargingStation{
			{Intersection: 3, PowerKW: 50, PricePerKWh: 0.25, Efficiency: 0.9, MaxChargeHour: 2},
		},
	}
	if err := n.Index(); err != nil {
		t.Fatalf("index: %v", err)
	}
	return n
}

func ringVehicle() network.Vehicle {
	return network.Vehicle{
		ID:           "ev1",
		Start:        1,
		End:          1,
		StartingSoC:  40,
		StartingHour: 8,
		SoCFloor:     8,
		SoCCeiling:   50,
		HorizonHours: 18,
		AccelEff:     0.9,
		BrakeEff:     0.6,
	}
}

func constraintNames(p *milp.Problem) map[string]milp.Constraint {
	out := make(map[string]milp.Constraint)
	for _, c := range p.Constraints() {
		out[c.Name] = c
	}
	return out
}

func countPrefix(p *milp.Problem, prefix string) int {
	n := 0
	for _, c := range p.Constraints() {
		if strings.HasPrefix(c.Name, prefix) {
			n++
		}
	}
	return n
}

func TestBuild_FlowAndForcedVisits(t *testing.T) {
	m, err := Build(ringNetwork(t), ringVehicle(), Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := constraintNames(m.Problem)

	// Coincident start/end: every intersection gets both flow rules.
	if got := countPrefix(m.Problem, "cFlowOut"); got != 4 {
		t.Fatalf("expected 4 cFlowOut rows, got %d", got)
	}
	if got := countPrefix(m.Problem, "cFlowIn"); got != 4 {
		t.Fatalf("expected 4 cFlowIn rows, got %d", got)
	}
	if _, ok := names["cNoDepartureFromEnd[1]"]; ok {
		t.Fatal("coincident depot must not forbid departures from the end node")
	}

	// Start/end and the delivery are forced, intermediates are optional.
	if got := countPrefix(m.Problem, "cForcedVisit"); got != 2 {
		t.Fatalf("expected forced visits at 1 and 4, got %d rows", got)
	}
	if _, ok := names["cForcedVisit[1]"]; !ok {
		t.Fatal("missing forced visit at the depot")
	}
	if _, ok := names["cForcedVisit[4]"]; !ok {
		t.Fatal("missing forced visit at the delivery point")
	}

	if !m.Vars.HasReturn {
		t.Fatal("coincident start/end must allocate return variables")
	}
	if _, ok := names["cReturnSoCBalance"]; !ok {
		t.Fatal("missing return SoC balance")
	}
	if _, ok := names["cReturnTimeBalance"]; !ok {
		t.Fatal("missing return time balance")
	}
}

func TestBuild_DistinctEndpoints(t *testing.T) {
	veh := ringVehicle()
	veh.End = 4
	m, err := Build(ringNetwork(t), veh, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := constraintNames(m.Problem)
	if _, ok := names["cNoDepartureFromEnd[4]"]; !ok {
		t.Fatal("end node must not originate arcs")
	}
	if _, ok := names["cNoArrivalAtStart[1]"]; !ok {
		t.Fatal("start node must not terminate arcs")
	}
	if m.Vars.HasReturn {
		t.Fatal("distinct endpoints must not allocate return variables")
	}
}

func TestBuild_QuadraticUnlessLinearized(t *testing.T) {
	quad, err := Build(ringNetwork(t), ringVehicle(), Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !quad.Problem.IsQuadratic() {
		t.Fatal("bilinear balances expected without linearization")
	}
	if quad.Vars.XiSoC != nil || quad.Vars.ZetaTime != nil {
		t.Fatal("aux variables must not exist without linearization")
	}

	lin, err := Build(ringNetwork(t), ringVehicle(), Options{Linearize: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if lin.Problem.IsQuadratic() {
		t.Fatal("linearized model still carries bilinear terms")
	}
	if len(lin.Vars.XiSoC) != 4 || len(lin.Vars.ZetaTime) != 4 {
		t.Fatalf("expected one aux pair per path, got %d/%d",
			len(lin.Vars.XiSoC), len(lin.Vars.ZetaTime))
	}
	// Three big-M rows per linearized product.
	if got := countPrefix(lin.Problem, "cAux"); got != 3*2*4 {
		t.Fatalf("expected 24 big-M rows, got %d", got)
	}
}

func TestBuild_SequenceConstraints(t *testing.T) {
	off, err := Build(ringNetwork(t), ringVehicle(), Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := countPrefix(off.Problem, "cSequence"); got != 0 {
		t.Fatalf("sequence rows present without the toggle: %d", got)
	}
	if off.Vars.Order != nil {
		t.Fatal("order variables allocated without the toggle")
	}

	on, err := Build(ringNetwork(t), ringVehicle(), Options{SequenceConstraints: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := constraintNames(on.Problem)
	if _, ok := names["cOrderStart"]; !ok {
		t.Fatal("missing order pin at the start node")
	}
	// Arcs 1->2 and 4->1 touch the start node and are exempt.
	if got := countPrefix(on.Problem, "cSequence"); got != 2 {
		t.Fatalf("expected sequence rows for 2 arcs, got %d", got)
	}
	if got := countPrefix(on.Problem, "cOrderMin"); got != 3 {
		t.Fatalf("expected order lower bounds for 3 nodes, got %d", got)
	}
}

func TestBuild_RejectsInfeasibleVehicle(t *testing.T) {
	veh := ringVehicle()
	veh.StartingSoC = 5 // below the floor
	_, err := Build(ringNetwork(t), veh, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, solver.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

func TestBuild_RejectsDuplicateDelivery(t *testing.T) {
	n := ringNetwork(t)
	n.Deliveries = append(n.Deliveries, network.DeliveryPoint{Intersection: 4, Vehicle: "ev1"})
	if _, err := Build(n, ringVehicle(), Options{}); err == nil {
		t.Fatal("expected error for duplicate delivery")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(ringNetwork(t), ringVehicle(), Options{Linearize: true, SequenceConstraints: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := Build(ringNetwork(t), ringVehicle(), Options{Linearize: true, SequenceConstraints: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if a.Problem.NumVars() != b.Problem.NumVars() {
		t.Fatalf("variable counts differ: %d vs %d", a.Problem.NumVars(), b.Problem.NumVars())
	}
	for i := 0; i < a.Problem.NumVars(); i++ {
		if a.Problem.Var(milp.VarID(i)).Name != b.Problem.Var(milp.VarID(i)).Name {
			t.Fatalf("variable %d differs: %s vs %s",
				i, a.Problem.Var(milp.VarID(i)).Name, b.Problem.Var(milp.VarID(i)).Name)
		}
	}
	ca, cb := a.Problem.Constraints(), b.Problem.Constraints()
	if len(ca) != len(cb) {
		t.Fatalf("constraint counts differ: %d vs %d", len(ca), len(cb))
	}
	for i := range ca {
		if ca[i].Name != cb[i].Name {
			t.Fatalf("constraint %d differs: %s vs %s", i, ca[i].Name, cb[i].Name)
		}
	}
}

func TestBuild_ObjectiveTerms(t *testing.T) {
	m, err := Build(ringNetwork(t), ringVehicle(), Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	obj := m.Problem.Objective()
	if len(obj.Terms) != 2 {
		t.Fatalf("expected charging and delay terms, got %d", len(obj.Terms))
	}
	byVar := map[milp.VarID]float64{}
	for _, term := range obj.Terms {
		byVar[term.Var] = term.Coef
	}
	// Charging: price * power * efficiency = 0.25 * 50 * 0.9.
	if got := byVar[m.Vars.ChargeHours[3]]; got != 11.25 {
		t.Fatalf("charging coefficient: expected 11.25, got %g", got)
	}
	if got := byVar[m.Vars.Delay[4]]; got != 10 {
		t.Fatalf("delay coefficient: expected 10, got %g", got)
	}
}
