package network

import "fmt"

// Vehicle is one EV instance to be routed over the network.
type Vehicle struct {
	ID           string
	Start        int     // starting intersection
	End          int     // ending intersection, may equal Start
	StartingSoC  float64 // kWh at departure
	StartingHour float64 // clock time at departure, hours from midnight
	SoCFloor     float64 // minimum usable state of charge
	SoCCeiling   float64 // battery capacity usable for routing
	HorizonHours float64 // latest allowed return time, hours from midnight
	AccelEff     float64 // efficiency factor applied to acceleration energy
	BrakeEff     float64 // fraction of kinetic energy recovered when braking
}

// Validate rejects vehicle instances that can never yield a feasible route,
// before any solver is invoked.
func (v Vehicle) Validate(n *Network) error {
	if v.ID == "" {
		return fmt.Errorf("vehicle has no id")
	}
	if !n.HasIntersection(v.Start) {
		return fmt.Errorf("vehicle %s: start %d is not an intersection", v.ID, v.Start)
	}
	if !n.HasIntersection(v.End) {
		return fmt.Errorf("vehicle %s: end %d is not an intersection", v.ID, v.End)
	}
	if v.SoCFloor > v.SoCCeiling {
		return fmt.Errorf("vehicle %s: SoC floor %.3f exceeds ceiling %.3f", v.ID, v.SoCFloor, v.SoCCeiling)
	}
	if v.StartingSoC < v.SoCFloor || v.StartingSoC > v.SoCCeiling {
		return fmt.Errorf("vehicle %s: starting SoC %.3f outside [%.3f, %.3f]",
			v.ID, v.StartingSoC, v.SoCFloor, v.SoCCeiling)
	}
	if v.HorizonHours <= v.StartingHour {
		return fmt.Errorf("vehicle %s: horizon %.2f not after start time %.2f", v.ID, v.HorizonHours, v.StartingHour)
	}
	if v.AccelEff <= 0 || v.AccelEff > 1 {
		return fmt.Errorf("vehicle %s: acceleration efficiency %.3f outside (0, 1]", v.ID, v.AccelEff)
	}
	if v.BrakeEff < 0 || v.BrakeEff > 1 {
		return fmt.Errorf("vehicle %s: braking efficiency %.3f outside [0, 1]", v.ID, v.BrakeEff)
	}
	return nil
}

// AccelEnergyKWh is the energy drawn from the battery to reach cruise speed
// on the path, accounting for drivetrain losses.
func (v Vehicle) AccelEnergyKWh(p Path) float64 {
	if v.AccelEff == 0 {
		return p.KineticEnergyKWh
	}
	return p.KineticEnergyKWh / v.AccelEff
}

// BrakeRecoveryKWh is the energy recovered through regenerative braking at
// the end of the path.
func (v Vehicle) BrakeRecoveryKWh(p Path) float64 {
	return p.KineticEnergyKWh * v.BrakeEff
}

// PathEnergyKWh is the net battery drain for traversing the path: cruise
// consumption plus acceleration energy minus braking recovery.
func (v Vehicle) PathEnergyKWh(p Path) float64 {
	return p.CruiseEnergyKWh() + v.AccelEnergyKWh(p) - v.BrakeRecoveryKWh(p)
}
