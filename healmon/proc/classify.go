package proc

import (
	"fmt"
	"syscall"
	"time"
)

// Decision is the outcome of classifying a disappeared process.
type Decision int

const (
	// Suppress means the exit was voluntary, explicitly requested, or
	// unprovable; the process must not be auto-restarted.
	Suppress Decision = iota
	// Restart means a crash-class signal was confirmed.
	Restart
)

func (d Decision) String() string {
	if d == Restart {
		return "restart"
	}
	return "suppress"
}

// Verdict is a classification decision together with the evidence observed.
type Verdict struct {
	Decision Decision
	// Signal is the terminating signal, or 0 for a voluntary exit.
	Signal syscall.Signal
	// ExitCode is the voluntary exit value, valid when Signal is 0 and the
	// record was caught.
	ExitCode int
	// Vanished is set when the exit record was collected before a terminated
	// state could be observed. Classification is then ambiguous by
	// construction and resolves to Suppress.
	Vanished bool
	// Replaced is the PID of a live replacement instance found during
	// classification, or 0.
	Replaced int
}

// Cause describes the observed evidence for the journal.
func (v Verdict) Cause() string {
	switch {
	case v.Replaced != 0:
		return fmt.Sprintf("live replacement found (PID %d)", v.Replaced)
	case v.Vanished:
		return "exit record collected before it could be read; assumed normal exit"
	case v.Signal != 0 && v.Decision == Restart:
		return "crash signal " + signalName(v.Signal)
	case v.Signal != 0:
		return "terminated by " + signalName(v.Signal)
	default:
		return fmt.Sprintf("normal exit (exit code %d)", v.ExitCode)
	}
}

// Defaults for the classifier's busy-poll. The whole race window is a few
// tens of milliseconds; this is the one place the supervisor accepts blocking
// latency, trading it for a chance to read the exit record before the kernel
// discards it.
const (
	DefaultClassifyAttempts = 30
	DefaultClassifyInterval = 2 * time.Millisecond
)

// Classifier races the kernel's collection of a terminated process's record
// to decide whether the process crashed or exited on purpose. readStat and
// locate are injectable for tests.
type Classifier struct {
	Attempts int
	Interval time.Duration

	readStat func(pid int) (stat, error)
	locate   func(name string) (int, bool)
}

// Classifier returns a classifier reading from the table with default
// timings.
func (t *Table) Classifier() *Classifier {
	return &Classifier{
		Attempts: DefaultClassifyAttempts,
		Interval: DefaultClassifyInterval,
		readStat: t.readStat,
		locate:   t.Locate,
	}
}

// Classify determines how the process identified by pid, believed to have
// just terminated, went away. It runs once per observed disappearance; the
// verdict is final.
func (c *Classifier) Classify(pid int, name string) Verdict {
	for i := 0; i < c.Attempts; i++ {
		if i > 0 {
			time.Sleep(c.Interval)
		}

		st, err := c.readStat(pid)
		if err != nil {
			// Record gone. A live replacement answers the restart question
			// without the record; give the first reads a chance to catch a
			// late-arriving zombie before consulting the table.
			if i >= 2 {
				if newPID, ok := c.locate(name); ok && newPID != pid {
					return Verdict{Vanished: true, Replaced: newPID}
				}
			}
			continue
		}

		if st.State != 'Z' {
			// Still schedulable from this probe's perspective; a transient
			// read race. Keep polling.
			continue
		}

		sig, code := decodeExitStatus(st.ExitStatus)
		if sig == 0 {
			return Verdict{ExitCode: code}
		}
		if isCrashSignal(sig) {
			return Verdict{Decision: Restart, Signal: sig}
		}
		return Verdict{Signal: sig}
	}

	// Collected too fast to catch. Only a confirmed crash signal may
	// restart; absence of evidence never does.
	if newPID, ok := c.locate(name); ok && newPID != pid {
		return Verdict{Vanished: true, Replaced: newPID}
	}
	return Verdict{Vanished: true}
}

// Classify runs a default classifier against the table.
func (t *Table) Classify(pid int, name string) Verdict {
	return t.Classifier().Classify(pid, name)
}
