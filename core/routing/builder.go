// Package routing builds the per-vehicle routing-with-charging formulation
// and maps solver output back into structured route solutions.
package routing

import (
	"fmt"

	"evroute/core/milp"
	"evroute/core/network"
	"evroute/core/solver"
)

// Options select between the supported constraint variants.
type Options struct {
	// Linearize replaces each binary-times-continuous product in the energy
	// and time balance with a big-M linearization, producing a fully linear
	// model. When false the balances stay bilinear and require a solver with
	// non-convex quadratic support.
	Linearize bool `json:"linearize"`
	// SequenceConstraints adds MTZ sequence-numbering rows as an explicit
	// subtour guard on top of the balance constraints.
	SequenceConstraints bool `json:"sequence_constraints"`
}

// Vars records the handle of every decision variable of one vehicle's model,
// keyed by intersection or path identifier.
type Vars struct {
	Visit         map[int]milp.VarID
	Travel        map[int]milp.VarID
	Charge        map[int]milp.VarID
	ChargeHours   map[int]milp.VarID
	SoCArrival    map[int]milp.VarID
	SoCDeparture  map[int]milp.VarID
	TimeArrival   map[int]milp.VarID
	TimeDeparture map[int]milp.VarID
	Delay         map[int]milp.VarID
	Order         map[int]milp.VarID
	XiSoC         map[int]milp.VarID
	ZetaTime      map[int]milp.VarID

	// Return variables exist only when the vehicle starts and ends at the
	// same intersection: the depot's arrival fields then describe the trip
	// start and these capture the closing arc.
	ReturnSoC  milp.VarID
	ReturnTime milp.VarID
	HasReturn  bool
}

// Model is a built formulation ready to hand to a solver adapter.
type Model struct {
	Problem *milp.Problem
	Vars    Vars
	Vehicle network.Vehicle
	Net     *network.Network
	Opts    Options
}

// Build constructs the complete decision-variable and constraint system for
// one vehicle. Inputs that can never yield a feasible route are rejected with
// solver.ErrInfeasible before any solver is involved.
func Build(net *network.Network, veh network.Vehicle, opts Options) (*Model, error) {
	if err := veh.Validate(net); err != nil {
		return nil, fmt.Errorf("%w: %v", solver.ErrInfeasible, err)
	}
	b := &builder{
		Model:   Model{Problem: &milp.Problem{}, Net: net, Vehicle: veh, Opts: opts},
		deliver: map[int]network.DeliveryPoint{},
	}
	for _, d := range net.DeliveriesFor(veh.ID) {
		if _, dup := b.deliver[d.Intersection]; dup {
			return nil, fmt.Errorf("vehicle %s: duplicate delivery at %d", veh.ID, d.Intersection)
		}
		b.deliver[d.Intersection] = d
		b.deliveries = append(b.deliveries, d)
	}
	b.addVariables()
	b.addFlowConstraints()
	b.addSoCConstraints()
	b.addTimeConstraints()
	b.addBalanceConstraints()
	if opts.SequenceConstraints {
		b.addSequenceConstraints()
	}
	b.setObjective()
	return &b.Model, nil
}

type builder struct {
	Model
	deliver    map[int]network.DeliveryPoint
	deliveries []network.DeliveryPoint // insertion order, for deterministic rows
}

func (b *builder) coincident() bool { return b.Vehicle.Start == b.Vehicle.End }

func (b *builder) addVariables() {
	p := b.Problem
	v := &b.Vars
	veh := b.Vehicle
	v.Visit = map[int]milp.VarID{}
	v.SoCArrival = map[int]milp.VarID{}
	v.SoCDeparture = map[int]milp.VarID{}
	v.TimeArrival = map[int]milp.VarID{}
	v.TimeDeparture = map[int]milp.VarID{}
	for _, i := range b.Net.Intersections {
		v.Visit[i] = p.AddBinary(fmt.Sprintf("v01VisitIntersection[%d]", i))
		v.SoCArrival[i] = p.AddContinuous(fmt.Sprintf("vSoCArrival[%d]", i), 0, veh.SoCCeiling)
		v.SoCDeparture[i] = p.AddContinuous(fmt.Sprintf("vSoCDeparture[%d]", i), 0, veh.SoCCeiling)
		v.TimeArrival[i] = p.AddContinuous(fmt.Sprintf("vTimeArrival[%d]", i), 0, veh.HorizonHours)
		v.TimeDeparture[i] = p.AddContinuous(fmt.Sprintf("vTimeDeparture[%d]", i), 0, veh.HorizonHours)
	}
	v.Travel = map[int]milp.VarID{}
	for _, path := range b.Net.Paths {
		v.Travel[path.ID] = p.AddBinary(fmt.Sprintf("v01TravelPath[%d]", path.ID))
	}
	v.Charge = map[int]milp.VarID{}
	v.ChargeHours = map[int]milp.VarID{}
	for _, s := range b.Net.Stations {
		v.Charge[s.Intersection] = p.AddBinary(fmt.Sprintf("v01Charge[%d]", s.Intersection))
		v.ChargeHours[s.Intersection] = p.AddContinuous(
			fmt.Sprintf("vTimeCharging[%d]", s.Intersection), 0, s.MaxChargeHour)
	}
	v.Delay = map[int]milp.VarID{}
	for _, d := range b.deliveries {
		v.Delay[d.Intersection] = p.AddContinuous(
			fmt.Sprintf("vTimeDelay[%d]", d.Intersection), 0, veh.HorizonHours)
	}
	if b.Opts.SequenceConstraints {
		n := float64(len(b.Net.Intersections))
		v.Order = map[int]milp.VarID{}
		for _, i := range b.Net.Intersections {
			v.Order[i] = p.AddContinuous(fmt.Sprintf("vOrder[%d]", i), 0, n)
		}
	}
	if b.Opts.Linearize {
		v.XiSoC = map[int]milp.VarID{}
		v.ZetaTime = map[int]milp.VarID{}
		for _, path := range b.Net.Paths {
			v.XiSoC[path.ID] = p.AddContinuous(fmt.Sprintf("vXiSoC[%d]", path.ID), 0, veh.SoCCeiling)
			v.ZetaTime[path.ID] = p.AddContinuous(fmt.Sprintf("vZetaTime[%d]", path.ID), 0, veh.HorizonHours)
		}
	}
	if b.coincident() {
		v.HasReturn = true
		v.ReturnSoC = p.AddContinuous("vReturnSoC", 0, veh.SoCCeiling)
		v.ReturnTime = p.AddContinuous("vReturnTime", 0, veh.HorizonHours)
	}
}

// addFlowConstraints ties path traversal to intersection visits: every
// visited intersection is left exactly once and entered exactly once, the
// end node originates nothing and the start node terminates nothing. With a
// coincident start/end the depot both originates and terminates one arc.
func (b *builder) addFlowConstraints() {
	p := b.Problem
	v := b.Vars
	veh := b.Vehicle
	for _, i := range b.Net.Intersections {
		var out milp.Expr
		for _, path := range b.Net.PathsFrom(i) {
			out.Add(v.Travel[path.ID], 1)
		}
		if i == veh.End && !b.coincident() {
			p.AddConstraint(fmt.Sprintf("cNoDepartureFromEnd[%d]", i), out, milp.EQ, 0)
		} else {
			out.Add(v.Visit[i], -1)
			p.AddConstraint(fmt.Sprintf("cFlowOut[%d]", i), out, milp.EQ, 0)
		}

		var in milp.Expr
		for _, path := range b.Net.PathsInto(i) {
			in.Add(v.Travel[path.ID], 1)
		}
		if i == veh.Start && !b.coincident() {
			p.AddConstraint(fmt.Sprintf("cNoArrivalAtStart[%d]", i), in, milp.EQ, 0)
		} else {
			in.Add(v.Visit[i], -1)
			p.AddConstraint(fmt.Sprintf("cFlowIn[%d]", i), in, milp.EQ, 0)
		}
	}

	forced := map[int]bool{veh.Start: true, veh.End: true}
	for i := range b.deliver {
		forced[i] = true
	}
	for _, i := range b.Net.Intersections {
		if forced[i] {
			var e milp.Expr
			e.Add(v.Visit[i], 1)
			p.AddConstraint(fmt.Sprintf("cForcedVisit[%d]", i), e, milp.EQ, 1)
		}
	}
}

// addSoCConstraints bounds the state of charge by the visit flag, applies
// the charging gain at stations, the identity everywhere else, and pins the
// start and end levels.
func (b *builder) addSoCConstraints() {
	p := b.Problem
	v := b.Vars
	veh := b.Vehicle
	for _, i := range b.Net.Intersections {
		for _, side := range []struct {
			name string
			soc  milp.VarID
		}{{"Arrival", v.SoCArrival[i]}, {"Departure", v.SoCDeparture[i]}} {
			name, soc := side.name, side.soc
			var ub milp.Expr
			ub.Add(soc, 1)
			ub.Add(v.Visit[i], -veh.SoCCeiling)
			p.AddConstraint(fmt.Sprintf("cMaxSoC%s[%d]", name, i), ub, milp.LE, 0)
			var lb milp.Expr
			lb.Add(soc, 1)
			lb.Add(v.Visit[i], -veh.SoCFloor)
			p.AddConstraint(fmt.Sprintf("cMinSoC%s[%d]", name, i), lb, milp.GE, 0)
		}

		var gain milp.Expr
		gain.Add(v.SoCDeparture[i], 1)
		gain.Add(v.SoCArrival[i], -1)
		if s, ok := b.Net.StationAt(i); ok {
			gain.Add(v.ChargeHours[i], -s.PowerKW*s.Efficiency)
			p.AddConstraint(fmt.Sprintf("cChargingGain[%d]", i), gain, milp.EQ, 0)
		} else {
			p.AddConstraint(fmt.Sprintf("cSoCIdentity[%d]", i), gain, milp.EQ, 0)
		}
	}

	var start milp.Expr
	start.Add(v.SoCArrival[veh.Start], 1)
	start.Add(v.Visit[veh.Start], -veh.StartingSoC)
	p.AddConstraint("cStartingSoC", start, milp.EQ, 0)

	// Return with at least the starting charge. The >= absorbs rounding in
	// the energy-balance chain that an equality would turn infeasible.
	var back milp.Expr
	if v.HasReturn {
		back.Add(v.ReturnSoC, 1)
		p.AddConstraint("cReturnSoC", back, milp.GE, veh.StartingSoC)
	} else {
		back.Add(v.SoCDeparture[veh.End], 1)
		back.Add(v.Visit[veh.End], -veh.StartingSoC)
		p.AddConstraint("cReturnSoC", back, milp.GE, 0)
	}
}

// addTimeConstraints handles clock bookkeeping: visit-gated bounds, dwell at
// deliveries and stations, charging duration gating and delay accrual.
func (b *builder) addTimeConstraints() {
	p := b.Problem
	v := b.Vars
	veh := b.Vehicle
	for _, i := range b.Net.Intersections {
		for _, side := range []struct {
			name string
			t    milp.VarID
		}{{"Arrival", v.TimeArrival[i]}, {"Departure", v.TimeDeparture[i]}} {
			name, t := side.name, side.t
			var ub milp.Expr
			ub.Add(t, 1)
			ub.Add(v.Visit[i], -veh.HorizonHours)
			p.AddConstraint(fmt.Sprintf("cMaxTime%s[%d]", name, i), ub, milp.LE, 0)
		}

		var dwell milp.Expr
		dwell.Add(v.TimeDeparture[i], 1)
		dwell.Add(v.TimeArrival[i], -1)
		if d, ok := b.deliver[i]; ok {
			dwell.Add(v.Visit[i], -d.ServiceHours)
		}
		if _, ok := b.Net.StationAt(i); ok {
			dwell.Add(v.ChargeHours[i], -1)
		}
		p.AddConstraint(fmt.Sprintf("cDwell[%d]", i), dwell, milp.EQ, 0)
	}

	for _, s := range b.Net.Stations {
		i := s.Intersection
		var max milp.Expr
		max.Add(v.ChargeHours[i], 1)
		max.Add(v.Charge[i], -s.MaxChargeHour)
		p.AddConstraint(fmt.Sprintf("cMaxCharging[%d]", i), max, milp.LE, 0)
		var min milp.Expr
		min.Add(v.ChargeHours[i], 1)
		min.Add(v.Charge[i], -s.MinChargeHour)
		p.AddConstraint(fmt.Sprintf("cMinCharging[%d]", i), min, milp.GE, 0)
		var gate milp.Expr
		gate.Add(v.Charge[i], 1)
		gate.Add(v.Visit[i], -1)
		p.AddConstraint(fmt.Sprintf("cChargeOnlyIfVisited[%d]", i), gate, milp.LE, 0)
	}

	var start milp.Expr
	start.Add(v.TimeArrival[veh.Start], 1)
	start.Add(v.Visit[veh.Start], -veh.StartingHour)
	p.AddConstraint("cStartingTime", start, milp.EQ, 0)

	var horizon milp.Expr
	if v.HasReturn {
		horizon.Add(v.ReturnTime, 1)
	} else {
		horizon.Add(v.TimeArrival[veh.End], 1)
	}
	p.AddConstraint("cTimeHorizon", horizon, milp.LE, veh.HorizonHours)

	for _, d := range b.deliveries {
		i := d.Intersection
		var late milp.Expr
		late.Add(v.TimeArrival[i], 1)
		late.Add(v.Delay[i], -1)
		p.AddConstraint(fmt.Sprintf("cDelay[%d]", i), late, milp.LE, d.DeadlineHours)
	}
}

// addBalanceConstraints chains SoC and clock along traversed paths. The
// travel-times-departure products are kept bilinear or replaced by the big-M
// linearization depending on Options.Linearize.
func (b *builder) addBalanceConstraints() {
	p := b.Problem
	v := b.Vars
	veh := b.Vehicle

	if b.Opts.Linearize {
		for _, path := range b.Net.Paths {
			b.linearizeProduct(v.XiSoC[path.ID], v.Travel[path.ID], v.SoCDeparture[path.Origin],
				veh.SoCCeiling, fmt.Sprintf("XiSoC[%d]", path.ID))
			b.linearizeProduct(v.ZetaTime[path.ID], v.Travel[path.ID], v.TimeDeparture[path.Origin],
				veh.HorizonHours, fmt.Sprintf("ZetaTime[%d]", path.ID))
		}
	}

	for _, j := range b.Net.Intersections {
		if j == veh.Start {
			continue // arrival values at the start are pinned, not balanced
		}
		soc, tim := b.incomingBalance(j)
		soc.Add(v.SoCArrival[j], 1)
		p.AddConstraint(fmt.Sprintf("cSoCBalance[%d]", j), soc, milp.EQ, 0)
		tim.Add(v.TimeArrival[j], 1)
		p.AddConstraint(fmt.Sprintf("cTimeBalance[%d]", j), tim, milp.EQ, 0)
	}

	if v.HasReturn {
		soc, tim := b.incomingBalance(veh.Start)
		soc.Add(v.ReturnSoC, 1)
		p.AddConstraint("cReturnSoCBalance", soc, milp.EQ, 0)
		tim.Add(v.ReturnTime, 1)
		p.AddConstraint("cReturnTimeBalance", tim, milp.EQ, 0)
	}
}

// incomingBalance builds the negated right-hand sides of the SoC and time
// balances for arcs into j: the caller adds the arrival variable so the row
// reads arrival - sum(travel * (departure +/- path figures)) = 0.
func (b *builder) incomingBalance(j int) (soc, tim milp.Expr) {
	v := b.Vars
	veh := b.Vehicle
	for _, path := range b.Net.PathsInto(j) {
		energy := veh.PathEnergyKWh(*path)
		hours := path.TravelHours()
		if b.Opts.Linearize {
			soc.Add(v.XiSoC[path.ID], -1)
			tim.Add(v.ZetaTime[path.ID], -1)
		} else {
			soc.AddQuad(v.Travel[path.ID], v.SoCDeparture[path.Origin], -1)
			tim.AddQuad(v.Travel[path.ID], v.TimeDeparture[path.Origin], -1)
		}
		soc.Add(v.Travel[path.ID], energy)
		tim.Add(v.Travel[path.ID], -hours)
	}
	return soc, tim
}

// linearizeProduct enforces aux = bin * cont via the standard big-M rows:
// 0 <= aux <= M*bin and 0 <= cont - aux <= M*(1-bin).
func (b *builder) linearizeProduct(aux, bin, cont milp.VarID, bigM float64, label string) {
	p := b.Problem
	var ub milp.Expr
	ub.Add(aux, 1)
	ub.Add(bin, -bigM)
	p.AddConstraint("cAuxUB_"+label, ub, milp.LE, 0)

	var lo milp.Expr
	lo.Add(cont, 1)
	lo.Add(aux, -1)
	p.AddConstraint("cAuxGap_"+label, lo, milp.GE, 0)

	var hi milp.Expr
	hi.Add(cont, 1)
	hi.Add(aux, -1)
	hi.Add(bin, bigM)
	p.AddConstraint("cAuxGapUB_"+label, hi, milp.LE, bigM)
}

// addSequenceConstraints installs the MTZ sequence-numbering subtour guard:
// the start node has order 1, every other visited node an order in [2, N],
// and traversing u->v forces order[u] < order[v].
func (b *builder) addSequenceConstraints() {
	p := b.Problem
	v := b.Vars
	veh := b.Vehicle
	n := float64(len(b.Net.Intersections))

	var first milp.Expr
	first.Add(v.Order[veh.Start], 1)
	p.AddConstraint("cOrderStart", first, milp.EQ, 1)

	for _, i := range b.Net.Intersections {
		if i == veh.Start {
			continue
		}
		var lo milp.Expr
		lo.Add(v.Order[i], 1)
		lo.Add(v.Visit[i], -2)
		p.AddConstraint(fmt.Sprintf("cOrderMin[%d]", i), lo, milp.GE, 0)
		var hi milp.Expr
		hi.Add(v.Order[i], 1)
		hi.Add(v.Visit[i], -n)
		p.AddConstraint(fmt.Sprintf("cOrderMax[%d]", i), hi, milp.LE, 0)
	}

	for _, path := range b.Net.Paths {
		// Arcs leaving or re-entering the start node are exempt: the start
		// is pinned to order 1 and the closing arc of a coincident depot
		// would otherwise be forbidden.
		if path.Origin == veh.Start || path.Destination == veh.Start {
			continue
		}
		var e milp.Expr
		e.Add(v.Order[path.Origin], 1)
		e.Add(v.Order[path.Destination], -1)
		e.Add(v.Travel[path.ID], n-1)
		p.AddConstraint(fmt.Sprintf("cSequence[%d]", path.ID), e, milp.LE, n-2)
	}
}

// setObjective minimizes charging cost plus delay penalties. Routing
// distance carries no term of its own: the network encodes energy and time
// costs through the per-path parameters.
func (b *builder) setObjective() {
	v := b.Vars
	var obj milp.Expr
	for _, s := range b.Net.Stations {
		obj.Add(v.ChargeHours[s.Intersection], s.PricePerKWh*s.PowerKW*s.Efficiency)
	}
	for _, d := range b.deliveries {
		obj.Add(v.Delay[d.Intersection], d.PenaltyPerH)
	}
	b.Problem.SetObjective(obj)
}
