// Package planner runs the per-vehicle build/solve/extract pipeline over a
// bounded worker pool and hands the joined results to demand aggregation.
package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"evroute/core/demand"
	"evroute/core/logger"
	"evroute/core/metrics"
	"evroute/core/network"
	"evroute/core/routing"
	"evroute/core/solver"
	"evroute/internal/eventbus"
)

// VehicleSolved is published on the event bus after each vehicle finishes.
type VehicleSolved struct {
	RunID     string
	VehicleID string
	Status    solver.Status
	Objective float64
	Runtime   time.Duration
}

// RunCompleted is published once per SolveAll after the join barrier.
type RunCompleted struct {
	RunID    string
	Vehicles int
	Solved   int
}

// Planner coordinates solving every vehicle of a scenario.
type Planner struct {
	net     *network.Network
	adapter solver.Adapter
	opts    routing.Options
	solve   solver.Options
	epsilon float64
	workers int
	logger  logger.Logger
	sink    metrics.Sink
	bus     eventbus.EventBus
}

// Config gathers the planner's construction parameters.
type Config struct {
	Net     *network.Network
	Adapter solver.Adapter
	Routing routing.Options
	Solve   solver.Options
	Epsilon float64
	Workers int
	Logger  logger.Logger
	Sink    metrics.Sink
	Bus     eventbus.EventBus
}

// New builds a Planner, filling in safe defaults for optional fields.
func New(cfg Config) (*Planner, error) {
	if cfg.Net == nil {
		return nil, errors.New("planner: network is required")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("planner: solver adapter is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = routing.DefaultEpsilon
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Logger(nopLogger{})
	}
	if cfg.Sink == nil {
		cfg.Sink = metrics.NopSink{}
	}
	return &Planner{
		net:     cfg.Net,
		adapter: cfg.Adapter,
		opts:    cfg.Routing,
		solve:   cfg.Solve,
		epsilon: cfg.Epsilon,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		sink:    cfg.Sink,
		bus:     cfg.Bus,
	}, nil
}

// Run is the outcome of one SolveAll invocation.
type Run struct {
	RunID     string
	Solutions []routing.RouteSolution
	Demand    []demand.Record
}

// SolveAll solves every vehicle concurrently, at most workers at a time, and
// aggregates the charging demand of the vehicles that produced a solution.
// One vehicle failing, or being infeasible, never aborts the others: its slot
// in the result carries the failure status instead. Results are returned in
// the order of the vehicles argument.
func (p *Planner) SolveAll(ctx context.Context, vehicles []network.Vehicle) (Run, error) {
	run := Run{RunID: uuid.NewString()}
	p.logger.Infof("planning run %s: %d vehicles, %d workers", run.RunID, len(vehicles), p.workers)

	solutions := make([]routing.RouteSolution, len(vehicles))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for idx, veh := range vehicles {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, veh network.Vehicle) {
			defer wg.Done()
			defer func() { <-sem }()
			solutions[idx] = p.solveOne(ctx, run.RunID, veh)
		}(idx, veh)
	}
	wg.Wait()

	run.Solutions = solutions
	run.Demand = demand.Aggregate(solutions, p.net, p.epsilon)

	solved := 0
	for _, s := range solutions {
		if s.HasSolution() {
			solved++
		}
	}
	if err := p.sink.RecordDemand(run.RunID, run.Demand); err != nil {
		p.logger.Warnf("run %s: recording demand: %v", run.RunID, err)
	}
	p.publish(RunCompleted{RunID: run.RunID, Vehicles: len(vehicles), Solved: solved})
	p.logger.Infof("run %s: %d/%d vehicles solved", run.RunID, solved, len(vehicles))

	if err := ctx.Err(); err != nil {
		return run, err
	}
	return run, nil
}

func (p *Planner) solveOne(ctx context.Context, runID string, veh network.Vehicle) routing.RouteSolution {
	started := time.Now()
	sol := p.buildAndSolve(ctx, veh)
	sol.VehicleID = veh.ID

	ev := metrics.SolveEvent{
		RunID:     runID,
		VehicleID: veh.ID,
		Status:    sol.Status.String(),
		Objective: sol.Objective,
		Gap:       sol.Gap,
		Duration:  time.Since(started),
		Time:      time.Now(),
	}
	if err := p.sink.RecordSolve(ev); err != nil {
		p.logger.Warnf("vehicle %s: recording solve event: %v", veh.ID, err)
	}
	p.publish(VehicleSolved{
		RunID:     runID,
		VehicleID: veh.ID,
		Status:    sol.Status,
		Objective: sol.Objective,
		Runtime:   ev.Duration,
	})
	return sol
}

func (p *Planner) buildAndSolve(ctx context.Context, veh network.Vehicle) routing.RouteSolution {
	model, err := routing.Build(p.net, veh, p.opts)
	if err != nil {
		if errors.Is(err, solver.ErrInfeasible) {
			p.logger.Warnf("vehicle %s: infeasible input: %v", veh.ID, err)
			return routing.RouteSolution{Status: solver.StatusInfeasible}
		}
		p.logger.Errorf("vehicle %s: building model: %v", veh.ID, err)
		return routing.RouteSolution{Status: solver.StatusError}
	}

	res, err := p.adapter.Solve(ctx, model.Problem, p.solve)
	if err != nil {
		switch {
		case errors.Is(err, solver.ErrInfeasible):
			p.logger.Warnf("vehicle %s: model infeasible", veh.ID)
			return routing.RouteSolution{Status: solver.StatusInfeasible}
		case errors.Is(err, solver.ErrUnbounded):
			p.logger.Errorf("vehicle %s: model unbounded", veh.ID)
			return routing.RouteSolution{Status: solver.StatusUnbounded}
		default:
			p.logger.Errorf("vehicle %s: solve failed: %v", veh.ID, err)
			return routing.RouteSolution{Status: solver.StatusError}
		}
	}

	sol := routing.Extract(model, res, p.epsilon)
	p.logger.Debugf("vehicle %s: status=%s objective=%.4f gap=%.4f",
		veh.ID, sol.Status, sol.Objective, sol.Gap)
	return sol
}

func (p *Planner) publish(e eventbus.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
