package demand

// ComputeProfit computes the per-station profit of the charging station
// operator: charging-fee revenue minus wholesale electricity cost, summed
// over the hour buckets. Stations without a configured fee are skipped.
func ComputeProfit(fees map[int]float64, records []Record, electricityCost map[int]float64) map[int]float64 {
	profit := make(map[int]float64)
	for _, r := range records {
		fee, ok := fees[r.Station]
		if !ok {
			continue
		}
		revenue := fee * r.EnergyKWh
		cost := electricityCost[r.Hour] * r.EnergyKWh
		profit[r.Station] += revenue - cost
	}
	return profit
}
