package app

import (
	"evroute/core/planner"
	"evroute/infra/logger"
	"evroute/internal/eventbus"
)

// logEvents drains planner progress events and logs them. It returns when
// the bus closes the subscription.
func logEvents(log logger.Logger, events <-chan eventbus.Event) {
	for e := range events {
		switch ev := e.(type) {
		case planner.VehicleSolved:
			log.Infof("run %s: vehicle %s status=%s objective=%.4f runtime=%s",
				ev.RunID, ev.VehicleID, ev.Status, ev.Objective, ev.Runtime)
		case planner.RunCompleted:
			log.Infof("run %s: %d/%d vehicles solved", ev.RunID, ev.Solved, ev.Vehicles)
		}
	}
}
