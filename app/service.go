// Package app wires the configuration into a runnable planning service.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"evroute/config"
	"evroute/core/demand"
	coremetrics "evroute/core/metrics"
	"evroute/core/network"
	"evroute/core/planner"
	"evroute/core/routing"
	coresolver "evroute/core/solver"
	"evroute/infra/logger"
	"evroute/infra/metrics"
	"evroute/infra/mqtt"
	"evroute/infra/solver"
	"evroute/internal/eventbus"
	"evroute/internal/store"
)

// Service orchestrates one planning cycle: load the scenario, solve every
// vehicle, aggregate demand and hand the result downstream.
type Service struct {
	cfg       *config.Config
	planner   *planner.Planner
	store     store.Store
	publisher mqtt.Publisher
	bus       *eventbus.Bus
	log       logger.Logger
	net       *network.Network
	vehicles  []network.Vehicle
	out       io.Writer
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg.Logging.Level != "" {
		if err := logger.SetGlobalLevel(cfg.Logging.Level); err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}
	logg := logger.New("service")

	scenario, err := network.LoadScenario(cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	adapter, err := buildAdapter(cfg.Solver)
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = coremetrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	go logEvents(logger.New("planner-events"), bus.Subscribe())
	pl, err := planner.New(planner.Config{
		Net:     scenario.Network,
		Adapter: adapter,
		Routing: cfg.Solver.RoutingOptions(),
		Solve:   coresolver.Options{TimeLimit: time.Duration(cfg.Solver.TimeLimitSeconds * float64(time.Second))},
		Epsilon: cfg.Solver.Epsilon,
		Workers: cfg.Solver.Workers,
		Logger:  logger.New("planner"),
		Sink:    sink,
		Bus:     bus,
	})
	if err != nil {
		return nil, err
	}

	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	var publisher mqtt.Publisher
	if cfg.Pricing.PublishEnabled {
		publisher, err = mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	return &Service{
		cfg:       cfg,
		planner:   pl,
		store:     st,
		publisher: publisher,
		bus:       bus,
		log:       logg,
		net:       scenario.Network,
		vehicles:  scenario.Vehicles,
		out:       os.Stdout,
	}, nil
}

// SetOutput redirects the run summary away from stdout.
func (s *Service) SetOutput(w io.Writer) { s.out = w }

func buildAdapter(cfg config.SolverConfig) (coresolver.Adapter, error) {
	switch cfg.Adapter {
	case "bridge":
		return solver.NewBridgeSolver(cfg.Command, cfg.Args, logger.New("bridge-solver")), nil
	case "relaxation":
		return solver.RelaxationSolver{}, nil
	default:
		return nil, fmt.Errorf("unknown solver adapter %s", cfg.Adapter)
	}
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		return st, nil
	default:
		return store.NewMemory(), nil
	}
}

// Run executes one planning cycle and blocks until it completes or the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	run, err := s.planner.SolveAll(ctx, s.vehicles)
	if err != nil {
		return err
	}

	rec := store.RunRecord{
		RunID:     run.RunID,
		CreatedAt: time.Now(),
		Solutions: run.Solutions,
		Demand:    run.Demand,
	}
	if err := s.store.SaveRun(ctx, rec); err != nil {
		s.log.Errorf("saving run %s: %v", run.RunID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDemand(run.RunID, run.Demand); err != nil {
			s.log.Errorf("publishing demand for run %s: %v", run.RunID, err)
		}
	}

	return s.report(run)
}

type runSummary struct {
	RunID       string                  `json:"run_id"`
	Solutions   []routing.RouteSolution `json:"solutions"`
	Demand      []demand.Record         `json:"demand"`
	TotalEnergy float64                 `json:"total_energy_kwh"`
	Profit      map[int]float64         `json:"station_profit,omitempty"`
}

// report writes the run summary to stdout as JSON.
func (s *Service) report(run planner.Run) error {
	summary := runSummary{
		RunID:       run.RunID,
		Solutions:   run.Solutions,
		Demand:      run.Demand,
		TotalEnergy: demand.TotalEnergyKWh(run.Demand),
	}
	if len(s.cfg.Pricing.Fees) > 0 {
		summary.Profit = demand.ComputeProfit(s.cfg.Pricing.Fees, run.Demand, s.net.ElectricityCost)
	}
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	s.store.Close()
	s.bus.Close()
	return nil
}
