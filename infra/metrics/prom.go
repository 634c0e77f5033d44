// Package metrics provides the concrete metric sinks: Prometheus counters
// for solve outcomes and InfluxDB persistence for solve and demand history.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"evroute/core/demand"
	coremetrics "evroute/core/metrics"
)

// PromSink records planning events in Prometheus metrics.
type PromSink struct {
	solves   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	gap      prometheus.Gauge
	energy   *prometheus.GaugeVec
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_solves_total",
		Help: "Total number of per-vehicle solves by termination status",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_solve_duration_seconds",
		Help:    "Wall-clock duration of per-vehicle solves",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	gap := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "route_solve_gap",
		Help: "Relative optimality gap of the most recent solve",
	})
	energy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_demand_kwh",
		Help: "Aggregated charging demand of the latest run by station and hour",
	}, []string{"station", "hour"})

	if err := reg.Register(solves); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			solves = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(gap); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			gap = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(energy); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			energy = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{solves: solves, duration: duration, gap: gap, energy: energy}, nil
}

// RecordSolve increments the status counter and observes the solve duration.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Status).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	s.gap.Set(ev.Gap)
	return nil
}

// RecordDemand exposes the latest aggregated demand per station and hour.
func (s *PromSink) RecordDemand(_ string, records []demand.Record) error {
	for _, r := range records {
		s.energy.WithLabelValues(strconv.Itoa(r.Station), strconv.Itoa(r.Hour)).Set(r.EnergyKWh)
	}
	return nil
}
