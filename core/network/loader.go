package network

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Scenario bundles the immutable network with the vehicles to route on it.
type Scenario struct {
	Network  *Network
	Vehicles []Vehicle
}

type pathRow struct {
	Origin          int     `json:"origin"`
	Destination     int     `json:"destination"`
	LengthKM        float64 `json:"length_km"`
	AvgSpeedKMH     float64 `json:"avg_speed_kmh"`
	AccelBrakeHours float64 `json:"accel_brake_hours"`
	DistanceKM      float64 `json:"distance_at_speed_km"`
	PowerKW         float64 `json:"power_at_speed_kw"`
	KineticKWh      float64 `json:"kinetic_energy_kwh"`
}

type deliveryRow struct {
	Intersection int     `json:"intersection"`
	Vehicle      string  `json:"vehicle"`
	ServiceHours float64 `json:"service_hours"`
	Deadline     float64 `json:"deadline_hours"`
	Penalty      float64 `json:"penalty_per_hour"`
}

type stationRow struct {
	Intersection int     `json:"intersection"`
	PowerKW      float64 `json:"power_kw"`
	Price        float64 `json:"price_per_kwh"`
	Efficiency   float64 `json:"efficiency"`
	MinHours     float64 `json:"min_charge_hours"`
	MaxHours     float64 `json:"max_charge_hours"`
}

type costRow struct {
	Hour int     `json:"hour"`
	Cost float64 `json:"cost"`
}

type vehicleRow struct {
	ID           string  `json:"id"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	StartingSoC  float64 `json:"starting_soc"`
	StartingHour float64 `json:"starting_hour"`
	SoCFloor     float64 `json:"soc_floor"`
	SoCCeiling   float64 `json:"soc_ceiling"`
	Horizon      float64 `json:"horizon_hours"`
	AccelEff     float64 `json:"accel_efficiency"`
	BrakeEff     float64 `json:"brake_efficiency"`
}

type scenarioFile struct {
	Intersections []int         `json:"intersections"`
	Paths         []pathRow     `json:"paths"`
	Deliveries    []deliveryRow `json:"delivery_points"`
	Stations      []stationRow  `json:"charging_stations"`
	Electricity   []costRow     `json:"electricity_cost"`
	Vehicles      []vehicleRow  `json:"vehicles"`
}

// LoadScenario reads a scenario file (.yaml, .yml or .json) into a validated
// Scenario. Intersections may be omitted; they are then derived from the
// path endpoints, the way the original spreadsheet loader did.
func LoadScenario(path string) (*Scenario, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", filepath.Ext(path))
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sf scenarioFile
	if err := k.UnmarshalWithConf("", &sf, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return buildScenario(sf)
}

func buildScenario(sf scenarioFile) (*Scenario, error) {
	net := &Network{Intersections: sf.Intersections}
	if len(net.Intersections) == 0 {
		seen := map[int]bool{}
		for _, p := range sf.Paths {
			seen[p.Origin] = true
			seen[p.Destination] = true
		}
		for id := range seen {
			net.Intersections = append(net.Intersections, id)
		}
		sort.Ints(net.Intersections)
	}
	for i, p := range sf.Paths {
		net.Paths = append(net.Paths, Path{
			ID:                i + 1,
			Origin:            p.Origin,
			Destination:       p.Destination,
			LengthKM:          p.LengthKM,
			AvgSpeedKMH:       p.AvgSpeedKMH,
			AccelBrakeHours:   p.AccelBrakeHours,
			DistanceAtSpeedKM: p.DistanceKM,
			PowerAtSpeedKW:    p.PowerKW,
			KineticEnergyKWh:  p.KineticKWh,
		})
	}
	for _, d := range sf.Deliveries {
		net.Deliveries = append(net.Deliveries, DeliveryPoint{
			Intersection:  d.Intersection,
			Vehicle:       d.Vehicle,
			ServiceHours:  d.ServiceHours,
			DeadlineHours: d.Deadline,
			PenaltyPerH:   d.Penalty,
		})
	}
	for _, s := range sf.Stations {
		net.Stations = append(net.Stations, ChargingStation{
			Intersection:  s.Intersection,
			PowerKW:       s.PowerKW,
			PricePerKWh:   s.Price,
			Efficiency:    s.Efficiency,
			MinChargeHour: s.MinHours,
			MaxChargeHour: s.MaxHours,
		})
	}
	if len(sf.Electricity) > 0 {
		net.ElectricityCost = make(map[int]float64, len(sf.Electricity))
		for _, c := range sf.Electricity {
			net.ElectricityCost[c.Hour] = c.Cost
		}
	}
	net.FillDerivedPathFields()
	if err := net.Index(); err != nil {
		return nil, err
	}
	if err := net.Validate(); err != nil {
		return nil, err
	}
	sc := &Scenario{Network: net}
	for _, v := range sf.Vehicles {
		veh := Vehicle{
			ID:           v.ID,
			Start:        v.Start,
			End:          v.End,
			StartingSoC:  v.StartingSoC,
			StartingHour: v.StartingHour,
			SoCFloor:     v.SoCFloor,
			SoCCeiling:   v.SoCCeiling,
			HorizonHours: v.Horizon,
			AccelEff:     v.AccelEff,
			BrakeEff:     v.BrakeEff,
		}
		if err := veh.Validate(net); err != nil {
			return nil, err
		}
		sc.Vehicles = append(sc.Vehicles, veh)
	}
	return sc, nil
}
