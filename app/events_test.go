package app

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"evroute/core/planner"
	"evroute/core/solver"
	"evroute/internal/eventbus"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(format string, args ...any) {
	l.mu.Lock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *recordingLogger) Debugf(format string, args ...any) { l.record(format, args...) }
func (l *recordingLogger) Debugw(string, map[string]any)     {}
func (l *recordingLogger) Infof(format string, args ...any)  { l.record(format, args...) }
func (l *recordingLogger) Warnf(format string, args ...any)  { l.record(format, args...) }
func (l *recordingLogger) Errorf(format string, args ...any) { l.record(format, args...) }

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func TestLogEvents(t *testing.T) {
	bus := eventbus.New()
	log := &recordingLogger{}

	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		logEvents(log, sub)
		close(done)
	}()

	bus.Publish(planner.VehicleSolved{
		RunID:     "r1",
		VehicleID: "ev1",
		Status:    solver.StatusOptimal,
		Objective: 5.25,
		Runtime:   10 * time.Millisecond,
	})
	bus.Publish(planner.RunCompleted{RunID: "r1", Vehicles: 2, Solved: 1})
	bus.Close()
	<-done

	msgs := log.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "ev1") || !strings.Contains(msgs[0], "optimal") {
		t.Fatalf("vehicle event not logged: %s", msgs[0])
	}
	if !strings.Contains(msgs[1], "1/2") {
		t.Fatalf("run completion not logged: %s", msgs[1])
	}
}

func TestLogEvents_IgnoresUnknownEvents(t *testing.T) {
	bus := eventbus.New()
	log := &recordingLogger{}

	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		logEvents(log, sub)
		close(done)
	}()

	bus.Publish("not a planner event")
	bus.Close()
	<-done

	if got := log.messages(); len(got) != 0 {
		t.Fatalf("unexpected log lines: %v", got)
	}
}
