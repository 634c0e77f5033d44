package routing

import (
	"math"
	"time"

	"evroute/core/milp"
	"evroute/core/solver"
)

// DefaultEpsilon is the tolerance used when deciding whether a binary
// variable is set. Solvers routinely report 0.999999 instead of 1.
const DefaultEpsilon = 1e-5

// IntersectionRecord is the per-intersection slice of a route solution.
// Pointer fields are nil when the solver reported no value for the variable.
type IntersectionRecord struct {
	Intersection  int      `json:"intersection"`
	Visited       bool     `json:"visited"`
	SoCArrival    *float64 `json:"soc_arrival"`
	SoCDeparture  *float64 `json:"soc_departure"`
	TimeArrival   *float64 `json:"time_arrival"`
	TimeDeparture *float64 `json:"time_departure"`

	// Station fields, nil unless the intersection is a charging station.
	Charging      bool     `json:"charging,omitempty"`
	ChargingHours *float64 `json:"charging_hours,omitempty"`

	// Delivery field, nil unless the intersection is one of the vehicle's
	// delivery points.
	DelayHours *float64 `json:"delay_hours,omitempty"`
}

// PathRecord describes one traversed path.
type PathRecord struct {
	PathID      int `json:"path_id"`
	Origin      int `json:"origin"`
	Destination int `json:"destination"`
}

// RouteSolution is the structured result of one vehicle's solve.
type RouteSolution struct {
	VehicleID     string               `json:"vehicle_id"`
	Status        solver.Status        `json:"status"`
	Objective     float64              `json:"objective"`
	Gap           float64              `json:"gap"`
	Runtime       time.Duration        `json:"runtime"`
	ChargingCost  float64              `json:"charging_cost"`
	DelayCost     float64              `json:"delay_cost"`
	Intersections []IntersectionRecord `json:"intersections"`
	Paths         []PathRecord         `json:"paths"`

	// ReturnSoC/ReturnTime mirror the closing-arc values when the vehicle
	// starts and ends at the same intersection.
	ReturnSoC  *float64 `json:"return_soc,omitempty"`
	ReturnTime *float64 `json:"return_time,omitempty"`
}

// HasSolution reports whether the record carries a variable assignment.
func (s RouteSolution) HasSolution() bool { return s.Status.HasSolution() }

// Extract maps a raw solver result back onto the network: one record per
// intersection, one per traversed path, and the objective split into its
// charging and delay components. Binary indicators are compared against 1
// within eps; variables absent from the result stay nil.
func Extract(m *Model, res solver.Result, eps float64) RouteSolution {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	v := m.Vars
	sol := RouteSolution{
		VehicleID: m.Vehicle.ID,
		Status:    res.Status,
		Objective: res.Objective,
		Gap:       res.Gap(),
		Runtime:   res.Runtime,
	}
	if !res.Status.HasSolution() {
		return sol
	}

	penalty := map[int]float64{}
	for _, d := range m.Net.DeliveriesFor(m.Vehicle.ID) {
		penalty[d.Intersection] = d.PenaltyPerH
	}

	for _, i := range m.Net.Intersections {
		rec := IntersectionRecord{
			Intersection:  i,
			Visited:       binarySet(res, v.Visit[i], eps),
			SoCArrival:    optValue(res, v.SoCArrival[i]),
			SoCDeparture:  optValue(res, v.SoCDeparture[i]),
			TimeArrival:   optValue(res, v.TimeArrival[i]),
			TimeDeparture: optValue(res, v.TimeDeparture[i]),
		}
		if s, ok := m.Net.StationAt(i); ok {
			rec.Charging = binarySet(res, v.Charge[i], eps)
			rec.ChargingHours = optValue(res, v.ChargeHours[i])
			// Cost is keyed on the charge indicator, not on residual hours.
			if rec.Charging && rec.ChargingHours != nil {
				sol.ChargingCost += s.PricePerKWh * s.PowerKW * s.Efficiency * *rec.ChargingHours
			}
		}
		if id, ok := v.Delay[i]; ok {
			rec.DelayHours = optValue(res, id)
			if rec.DelayHours != nil {
				sol.DelayCost += penalty[i] * *rec.DelayHours
			}
		}
		sol.Intersections = append(sol.Intersections, rec)
	}

	for _, path := range m.Net.Paths {
		if binarySet(res, v.Travel[path.ID], eps) {
			sol.Paths = append(sol.Paths, PathRecord{
				PathID:      path.ID,
				Origin:      path.Origin,
				Destination: path.Destination,
			})
		}
	}

	if v.HasReturn {
		sol.ReturnSoC = optValue(res, v.ReturnSoC)
		sol.ReturnTime = optValue(res, v.ReturnTime)
	}
	return sol
}

func binarySet(res solver.Result, id milp.VarID, eps float64) bool {
	val, ok := res.Value(id)
	return ok && math.Abs(val-1) < eps
}

func optValue(res solver.Result, id milp.VarID) *float64 {
	if val, ok := res.Value(id); ok {
		v := val
		return &v
	}
	return nil
}
