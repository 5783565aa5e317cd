package healmon

import (
	"github.com/Ramcharan10122005/self-healing/healmon/proc"
)

// System is the OS process surface the reconciler drives. *proc.Table is the
// real implementation; tests substitute a scripted fake.
type System interface {
	// Locate resolves name to a live PID, exact match only.
	Locate(name string) (int, bool)
	// Alive reports whether pid is live and schedulable.
	Alive(pid int) bool
	// Classify decides how a disappeared process went away.
	Classify(pid int, name string) proc.Verdict
	// Launch starts name detached and confirms it survived.
	Launch(name string) (int, error)
	// Reap collects the exit record of an own child, non-blocking.
	Reap(pid int)
}

// RateLimiter is the external cooldown tracker consulted by the restart
// protocol. The supervisor never implements this policy itself.
type RateLimiter interface {
	InCooldown(name string) bool
	RecordAttempt(name string)
}

// Notifier delivers out-of-band alerts for crash and restart-failure events.
type Notifier interface {
	NotifyCrash(name string, pid int, cause string)
	NotifyRestartFailed(name, reason string)
}

// Reconciler turns one cycle's observations about a named process into one of
// adopt, restart, start, suppress, or no-op.
type Reconciler struct {
	sys      System
	limiter  RateLimiter
	notifier Notifier
	j        Journaler
}

// NewReconciler creates a reconciler over the given collaborators.
func NewReconciler(sys System, limiter RateLimiter, notifier Notifier, j Journaler) *Reconciler {
	return &Reconciler{
		sys:      sys,
		limiter:  limiter,
		notifier: notifier,
		j:        j,
	}
}

// Reconcile evaluates one specification entry against its runtime state.
// cycle maps names already resolved to a live PID earlier in the same cycle;
// a later duplicate entry reuses that PID instead of starting or adopting a
// second instance. Entries are evaluated in specification-list order.
func (r *Reconciler) Reconcile(spec ProcessSpec, st *ProcessState, cycle map[string]int) {
	name := spec.Name

	if pid, ok := cycle[name]; ok {
		if st.PID != pid {
			st.PID = pid
			st.Running = true
			st.ExitedNormally = false
		}
		return
	}

	if st.PID != 0 {
		r.reconcileTracked(name, st)
	} else {
		r.reconcileUntracked(name, st)
	}

	if st.PID != 0 {
		cycle[name] = st.PID
	}
}

// reconcileTracked handles a process with a last known PID.
func (r *Reconciler) reconcileTracked(name string, st *ProcessState) {
	if r.sys.Alive(st.PID) {
		st.Running = true
		return
	}

	// A replacement already answers the restart question: adopt it and never
	// classify the old PID.
	if newPID, ok := r.sys.Locate(name); ok && newPID != st.PID {
		r.j.Write(&EventProcessReplaced{Name: name, OldPID: st.PID, PID: newPID})
		st.PID = newPID
		st.Running = true
		st.ExitedNormally = false
		return
	}

	oldPID := st.PID
	verdict := r.sys.Classify(oldPID, name)
	r.sys.Reap(oldPID)

	r.j.Write(&EventExitClassified{
		Name:     name,
		PID:      oldPID,
		Decision: verdict.Decision.String(),
		Cause:    verdict.Cause(),
	})

	if verdict.Decision == proc.Suppress {
		st.PID = 0
		st.Running = false
		st.ExitedNormally = true
		return
	}

	r.restart(name, oldPID, verdict.Cause(), st)
}

// reconcileUntracked handles a process with no live handle: suppressed,
// brand new, or waiting to be started.
func (r *Reconciler) reconcileUntracked(name string, st *ProcessState) {
	if st.ExitedNormally {
		// Suppressed until a new instance is observed running; then it was
		// started deliberately and tracking resumes.
		if pid, ok := r.sys.Locate(name); ok {
			st.PID = pid
			st.Running = true
			st.ExitedNormally = false
			r.j.Write(&EventProcessAdopted{Name: name, PID: pid, Reason: "user started new instance after normal exit"})
		}
		return
	}

	if pid, ok := r.sys.Locate(name); ok {
		st.PID = pid
		st.Running = true
		r.j.Write(&EventProcessAdopted{Name: name, PID: pid, Reason: "found existing process"})
		return
	}

	pid, err := r.sys.Launch(name)
	if err != nil {
		r.j.Write(&EventProcessStartError{Name: name, Reason: err.Error()})
		return
	}

	st.PID = pid
	st.Running = true
	r.j.Write(&EventProcessStarted{Name: name, PID: pid, Reason: "initial start"})
}

// restart runs the restart protocol for a confirmed crash. Whatever the
// outcome, ExitedNormally stays false: a crashed process remains eligible for
// another attempt next cycle.
func (r *Reconciler) restart(name string, oldPID int, cause string, st *ProcessState) {
	st.PID = 0
	st.Running = false
	st.ExitedNormally = false

	r.notifier.NotifyCrash(name, oldPID, cause)

	if r.limiter.InCooldown(name) {
		r.j.Write(&EventCooldownActive{Name: name, Phase: "before attempt"})
		return
	}

	r.limiter.RecordAttempt(name)

	// Recording the attempt may itself have tripped the cooldown.
	if r.limiter.InCooldown(name) {
		r.j.Write(&EventCooldownActive{Name: name, Phase: "after attempt"})
		r.notifier.NotifyRestartFailed(name, "cooldown activated after restart tracking")
		return
	}

	pid, err := r.sys.Launch(name)
	if err != nil {
		r.j.Write(&EventRestartFailed{Name: name, Reason: err.Error()})
		r.notifier.NotifyRestartFailed(name, "unable to start process after crash")
		return
	}

	st.PID = pid
	st.Running = true
	r.j.Write(&EventProcessRestarted{Name: name, OldPID: oldPID, PID: pid})
}
