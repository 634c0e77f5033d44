package demand

import (
	"math"
	"math/rand"
	"testing"

	"evroute/core/network"
	"evroute/core/routing"
	"evroute/core/solver"
)

func stationNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := &network.Network{
		Intersections: []int{1, 3, 5},
		Stations: []network.ChargingStation{
			{Intersection: 3, PowerKW: 50, PricePerKWh: 0.25, Efficiency: 0.9, MaxChargeHour: 4},
			{Intersection: 5, PowerKW: 22, PricePerKWh: 0.30, Efficiency: 0.95, MaxChargeHour: 4},
		},
	}
	if err := n.Index(); err != nil {
		t.Fatalf("index: %v", err)
	}
	return n
}

func chargingSolution(station int, arrival, departure float64) routing.RouteSolution {
	a, d := arrival, departure
	return routing.RouteSolution{
		Status: solver.StatusOptimal,
		Intersections: []routing.IntersectionRecord{
			{Intersection: station, Visited: true, Charging: true, TimeArrival: &a, TimeDeparture: &d},
		},
	}
}

func TestChargeOverlap(t *testing.T) {
	cases := []struct {
		hour               int
		arrival, departure float64
		want               float64
	}{
		{1, 1.5, 3.25, 0.5},
		{2, 1.5, 3.25, 1.0},
		{3, 1.5, 3.25, 0.25},
		{0, 1.5, 3.25, 0},
		{4, 1.5, 3.25, 0},
		{2, 2.0, 3.0, 1.0},
		{2, 2.25, 2.5, 0.25},
	}
	for _, tc := range cases {
		got := ChargeOverlap(tc.hour, tc.arrival, tc.departure)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("overlap(%d, %g, %g): expected %g, got %g",
				tc.hour, tc.arrival, tc.departure, tc.want, got)
		}
	}
}

func TestAggregate_SplitsAcrossHours(t *testing.T) {
	net := stationNetwork(t)
	records := Aggregate([]routing.RouteSolution{chargingSolution(3, 1.5, 3.25)}, net, 0)

	// Zero-filled: 24 rows per station, sorted by station then hour.
	if len(records) != 2*Hours {
		t.Fatalf("expected %d rows, got %d", 2*Hours, len(records))
	}
	for i, r := range records[:Hours] {
		if r.Station != 3 || r.Hour != i {
			t.Fatalf("row %d out of order: %+v", i, r)
		}
	}

	byHour := map[int]float64{}
	for _, r := range records {
		if r.Station == 3 {
			byHour[r.Hour] = r.EnergyKWh
		}
	}
	// 50 kW station: 0.5 h in bucket 1, 1 h in bucket 2, 0.25 h in bucket 3.
	for hour, want := range map[int]float64{0: 0, 1: 25, 2: 50, 3: 12.5, 4: 0} {
		if math.Abs(byHour[hour]-want) > 1e-9 {
			t.Fatalf("hour %d: expected %g kWh, got %g", hour, want, byHour[hour])
		}
	}

	// Session energy identity: power * duration.
	if total := TotalEnergyKWh(records); math.Abs(total-50*1.75) > 1e-9 {
		t.Fatalf("total energy: expected %g, got %g", 50*1.75, total)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	net := stationNetwork(t)
	solutions := []routing.RouteSolution{
		chargingSolution(3, 1.5, 3.25),
		chargingSolution(5, 2.0, 2.5),
		chargingSolution(3, 10.0, 10.4),
	}
	want := Aggregate(solutions, net, 0)

	shuffled := make([]routing.RouteSolution, len(solutions))
	copy(shuffled, solutions)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Aggregate(shuffled, net, 0)
		if len(got) != len(want) {
			t.Fatalf("row count changed: %d vs %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("row %d differs after shuffle: %+v vs %+v", i, got[i], want[i])
			}
		}
	}
}

func TestAggregate_SkipsNonContributors(t *testing.T) {
	net := stationNetwork(t)
	a, d := 2.0, 2.5
	solutions := []routing.RouteSolution{
		{Status: solver.StatusInfeasible}, // no solution
		{ // visited but not charging
			Status: solver.StatusOptimal,
			Intersections: []routing.IntersectionRecord{
				{Intersection: 3, Visited: true, TimeArrival: &a, TimeDeparture: &d},
			},
		},
		{ // charging flag without reported times
			Status: solver.StatusOptimal,
			Intersections: []routing.IntersectionRecord{
				{Intersection: 5, Visited: true, Charging: true},
			},
		},
	}
	records := Aggregate(solutions, net, 0)
	if total := TotalEnergyKWh(records); total != 0 {
		t.Fatalf("expected zero demand, got %g", total)
	}
	if len(records) != 2*Hours {
		t.Fatalf("zero-filled rows missing: got %d", len(records))
	}
}

func TestComputeProfit(t *testing.T) {
	records := []Record{
		{Station: 3, Hour: 2, EnergyKWh: 50},
		{Station: 3, Hour: 3, EnergyKWh: 10},
		{Station: 5, Hour: 2, EnergyKWh: 11},
	}
	fees := map[int]float64{3: 0.40}
	cost := map[int]float64{2: 0.10, 3: 0.20}

	profit := ComputeProfit(fees, records, cost)
	// Station 3: (0.40-0.10)*50 + (0.40-0.20)*10 = 17.
	if got := profit[3]; math.Abs(got-17) > 1e-9 {
		t.Fatalf("station 3 profit: expected 17, got %g", got)
	}
	// Station 5 has no fee configured.
	if _, ok := profit[5]; ok {
		t.Fatal("station without fee must be skipped")
	}
}
