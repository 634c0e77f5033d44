package network

import "fmt"

// PathKey identifies a directed road segment by its endpoints. A network
// contains at most one path per ordered (origin, destination) pair.
type PathKey struct {
	Origin      int
	Destination int
}

// Path is a directed road segment between two intersections. Energy and time
// figures are precomputed per segment so the routing formulation stays linear
// in the path parameters.
type Path struct {
	ID                int
	Origin            int
	Destination       int
	LengthKM          float64
	AvgSpeedKMH       float64
	AccelBrakeHours   float64 // extra time spent accelerating and braking
	DistanceAtSpeedKM float64 // distance covered at average speed
	PowerAtSpeedKW    float64 // consumption while cruising at average speed
	KineticEnergyKWh  float64 // kinetic energy at average speed
}

// CruiseHours is the time spent at average speed on the path.
func (p Path) CruiseHours() float64 {
	if p.AvgSpeedKMH == 0 {
		return 0
	}
	return p.DistanceAtSpeedKM / p.AvgSpeedKMH
}

// TravelHours is the total traversal time including acceleration and braking.
func (p Path) TravelHours() float64 {
	return p.CruiseHours() + p.AccelBrakeHours
}

// CruiseEnergyKWh is the energy consumed while cruising at average speed.
func (p Path) CruiseEnergyKWh() float64 {
	return p.PowerAtSpeedKW * p.CruiseHours()
}

// DeliveryPoint is an intersection where a delivery must be performed.
// Each delivery point belongs to exactly one vehicle's job list.
type DeliveryPoint struct {
	Intersection  int
	Vehicle       string  // ID of the vehicle assigned to this delivery
	ServiceHours  float64 // time to perform the delivery
	DeadlineHours float64 // latest arrival without penalty
	PenaltyPerH   float64 // cost per hour of delay
}

// ChargingStation is an intersection offering charging.
type ChargingStation struct {
	Intersection  int
	PowerKW       float64
	PricePerKWh   float64
	Efficiency    float64
	MinChargeHour float64
	MaxChargeHour float64
}

// Network is the static road network a scenario is solved on. It is loaded
// once and read-only for the duration of solving.
type Network struct {
	Intersections []int
	Paths         []Path
	Deliveries    []DeliveryPoint
	Stations      []ChargingStation

	// ElectricityCost maps hour buckets (0..23) to the wholesale electricity
	// price used by profit computation. Optional.
	ElectricityCost map[int]float64

	byKey     map[PathKey]*Path
	byStation map[int]*ChargingStation
	isNode    map[int]bool
}

// Index builds the lookup tables. It must be called after the table fields
// are populated and before any lookup.
func (n *Network) Index() error {
	n.isNode = make(map[int]bool, len(n.Intersections))
	for _, i := range n.Intersections {
		n.isNode[i] = true
	}
	n.byKey = make(map[PathKey]*Path, len(n.Paths))
	for i := range n.Paths {
		p := &n.Paths[i]
		key := PathKey{p.Origin, p.Destination}
		if _, dup := n.byKey[key]; dup {
			return fmt.Errorf("duplicate path %d->%d", p.Origin, p.Destination)
		}
		n.byKey[key] = p
	}
	n.byStation = make(map[int]*ChargingStation, len(n.Stations))
	for i := range n.Stations {
		s := &n.Stations[i]
		if _, dup := n.byStation[s.Intersection]; dup {
			return fmt.Errorf("duplicate charging station at %d", s.Intersection)
		}
		n.byStation[s.Intersection] = s
	}
	return nil
}

// Validate checks referential integrity of the network tables.
func (n *Network) Validate() error {
	if n.byKey == nil {
		if err := n.Index(); err != nil {
			return err
		}
	}
	if len(n.Intersections) == 0 {
		return fmt.Errorf("network has no intersections")
	}
	for _, p := range n.Paths {
		if !n.isNode[p.Origin] || !n.isNode[p.Destination] {
			return fmt.Errorf("path %d->%d references unknown intersection", p.Origin, p.Destination)
		}
	}
	for _, d := range n.Deliveries {
		if !n.isNode[d.Intersection] {
			return fmt.Errorf("delivery point %d is not an intersection", d.Intersection)
		}
	}
	for _, s := range n.Stations {
		if !n.isNode[s.Intersection] {
			return fmt.Errorf("charging station %d is not an intersection", s.Intersection)
		}
		if s.MinChargeHour > s.MaxChargeHour {
			return fmt.Errorf("charging station %d: min dwell exceeds max dwell", s.Intersection)
		}
	}
	return nil
}

// PathBetween returns the path for the ordered (origin, destination) pair.
func (n *Network) PathBetween(origin, destination int) (*Path, bool) {
	p, ok := n.byKey[PathKey{origin, destination}]
	return p, ok
}

// StationAt returns the charging station at the given intersection, if any.
func (n *Network) StationAt(intersection int) (*ChargingStation, bool) {
	s, ok := n.byStation[intersection]
	return s, ok
}

// HasIntersection reports whether the id is a known intersection.
func (n *Network) HasIntersection(id int) bool { return n.isNode[id] }

// PathsFrom returns the paths originating at the given intersection.
func (n *Network) PathsFrom(origin int) []*Path {
	var out []*Path
	for i := range n.Paths {
		if n.Paths[i].Origin == origin {
			out = append(out, &n.Paths[i])
		}
	}
	return out
}

// PathsInto returns the paths terminating at the given intersection.
func (n *Network) PathsInto(destination int) []*Path {
	var out []*Path
	for i := range n.Paths {
		if n.Paths[i].Destination == destination {
			out = append(out, &n.Paths[i])
		}
	}
	return out
}

// DeliveriesFor returns the delivery points assigned to the vehicle.
func (n *Network) DeliveriesFor(vehicleID string) []DeliveryPoint {
	var out []DeliveryPoint
	for _, d := range n.Deliveries {
		if d.Vehicle == vehicleID {
			out = append(out, d)
		}
	}
	return out
}
