// Package demand converts per-vehicle charging schedules into per-station,
// per-hour aggregated energy demand for the downstream pricing model.
package demand

import (
	"sort"

	"evroute/core/network"
	"evroute/core/routing"
)

// Hours is the number of hour buckets in a day.
const Hours = 24

// Record is one aggregated demand row. A row exists for every
// (station, hour) pair regardless of whether any vehicle charged there.
type Record struct {
	Station   int     `json:"charging_station"`
	Hour      int     `json:"hour"`
	EnergyKWh float64 `json:"aggregated_demand_kwh"`
}

// ChargeOverlap returns the fraction of hour bucket t covered by a charging
// session running from arrival to departure (hours from midnight):
// max(0, min(t+1, departure) - max(t, arrival)). The rule splits a session
// spanning several buckets exactly proportionally to the time spent in each.
func ChargeOverlap(t int, arrival, departure float64) float64 {
	hi := departure
	if float64(t+1) < hi {
		hi = float64(t + 1)
	}
	lo := arrival
	if float64(t) > lo {
		lo = float64(t)
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Aggregate sums charging demand over all route solutions. The result is
// independent of the order of solutions (a pure sum) and zero-filled: one
// row per station and hour, sorted by station then hour. Vehicles without a
// solution, stations without a charge flag near 1 and sessions with missing
// arrival or departure times contribute nothing.
func Aggregate(solutions []routing.RouteSolution, net *network.Network, eps float64) []Record {
	if eps <= 0 {
		eps = routing.DefaultEpsilon
	}
	hoursByStation := make(map[int][Hours]float64, len(net.Stations))
	for _, s := range net.Stations {
		hoursByStation[s.Intersection] = [Hours]float64{}
	}

	for _, sol := range solutions {
		if !sol.HasSolution() {
			continue
		}
		for _, rec := range sol.Intersections {
			bucket, isStation := hoursByStation[rec.Intersection]
			if !isStation || !rec.Charging {
				continue
			}
			if rec.TimeArrival == nil || rec.TimeDeparture == nil {
				continue
			}
			for t := 0; t < Hours; t++ {
				if overlap := ChargeOverlap(t, *rec.TimeArrival, *rec.TimeDeparture); overlap > eps {
					bucket[t] += overlap
				}
			}
			hoursByStation[rec.Intersection] = bucket
		}
	}

	records := make([]Record, 0, len(net.Stations)*Hours)
	for _, s := range net.Stations {
		bucket := hoursByStation[s.Intersection]
		for t := 0; t < Hours; t++ {
			records = append(records, Record{
				Station:   s.Intersection,
				Hour:      t,
				EnergyKWh: s.PowerKW * bucket[t],
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Station != records[j].Station {
			return records[i].Station < records[j].Station
		}
		return records[i].Hour < records[j].Hour
	})
	return records
}

// TotalEnergyKWh sums the aggregated demand across all stations and hours.
func TotalEnergyKWh(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.EnergyKWh
	}
	return total
}
