package healmon

import (
	"context"
	"time"
)

// DefaultPollInterval is the sleep between reconciliation cycles.
const DefaultPollInterval = 5 * time.Second

// Supervisor owns the polling cadence and the runtime state table. All
// reconciliation runs on the single goroutine that called Run; the state
// table is never touched by anything else.
type Supervisor struct {
	// PollInterval overrides DefaultPollInterval when set.
	PollInterval time.Duration

	listPath string
	sys      System
	rec      *Reconciler
	j        Journaler

	states map[string]*ProcessState
	prev   map[string]PreviousProcess
}

// NewSupervisor creates a supervisor reading specs from listPath.
func NewSupervisor(listPath string, sys System, rec *Reconciler, j Journaler) *Supervisor {
	return &Supervisor{
		listPath: listPath,
		sys:      sys,
		rec:      rec,
		j:        j,
		states:   map[string]*ProcessState{},
	}
}

// AdoptPrevious supplies per-name state recovered from a predecessor's
// journal. Live PIDs are adopted rather than restarted; suppressed processes
// stay suppressed across supervisor restarts. Must be called before Run.
func (s *Supervisor) AdoptPrevious(prev map[string]PreviousProcess) {
	s.prev = prev
}

func (s *Supervisor) interval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return DefaultPollInterval
}

// Run drives reconciliation cycles until the context is canceled. Each cycle
// runs to completion; cancellation is only observed between cycles. Monitored
// processes are intentionally left running on shutdown.
func (s *Supervisor) Run(ctx context.Context) {
	s.adoptPreviousState()

	w := TryWatch(ctx, s.listPath, s.j)

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		s.RunCycle()

		select {
		case <-ctx.Done():
			s.j.Write(&EventShutdown{Reason: "termination signal"})
			return
		case <-ticker.C:
		case <-w.Events:
			// List changed on disk; reconcile now instead of waiting out
			// the interval. The watcher already journaled the change.
		}
	}
}

// RunCycle reads the specification list and reconciles every entry in list
// order. Per-process failures never abort the cycle.
func (s *Supervisor) RunCycle() {
	specs, err := ReadSpecList(s.listPath)
	if err != nil {
		s.j.Write(&EventWarning{Component: "speclist", Error: err.Error()})
		return
	}

	s.states = CarryForward(s.states, specs)

	cycle := make(map[string]int, len(specs))
	for _, spec := range specs {
		s.rec.Reconcile(spec, s.states[spec.Name], cycle)
	}
}

// adoptPreviousState validates journal-recovered state against the live
// process table before trusting any of it. A recorded PID counts only if that
// exact PID still answers to the name; anything else starts clean and is
// handled by the first cycle.
func (s *Supervisor) adoptPreviousState() {
	for name, prev := range s.prev {
		if prev.Suppressed {
			s.states[name] = &ProcessState{ExitedNormally: true}
			continue
		}
		if prev.PID <= 0 {
			continue
		}
		if pid, ok := s.sys.Locate(name); ok && pid == prev.PID {
			s.states[name] = &ProcessState{PID: prev.PID, Running: true}
			s.j.Write(&EventProcessAdopted{
				Name:   name,
				PID:    prev.PID,
				Reason: "recovered from previous supervisor's journal",
			})
		}
	}
	s.prev = nil
}

// States returns a snapshot of the runtime state table. Only for inspection
// from the owning goroutine (tests, status reporting between cycles).
func (s *Supervisor) States() map[string]ProcessState {
	out := make(map[string]ProcessState, len(s.states))
	for name, st := range s.states {
		out[name] = *st
	}
	return out
}
