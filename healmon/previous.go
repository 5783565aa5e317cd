package healmon

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// JournalReader reads journal events newest-first. io.EOF signals the start
// of the journal.
type JournalReader interface {
	Read() (Event, time.Time, error)
}

// PreviousProcess is the most recent knowledge a predecessor's journal holds
// about one process name.
type PreviousProcess struct {
	// PID is the last PID the process was known to run as, or 0.
	PID int
	// Suppressed is set when the last classified exit was a normal exit or
	// an explicit kill; the restart suppression survives supervisor
	// restarts.
	Suppressed bool
}

// readPreviousStateLimit caps how far back the journal is scanned.
const readPreviousStateLimit = 4096

// ReadPreviousState walks a backward journal reader and recovers the newest
// recorded state per process name. The result is a set of hints: every PID in
// it must be re-validated against the live process table before being
// trusted.
func ReadPreviousState(r JournalReader) (map[string]PreviousProcess, error) {
	state := map[string]PreviousProcess{}

	for i := 0; i < readPreviousStateLimit; i++ {
		ev, _, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return state, nil
			}
			return state, errors.Wrap(err, "failed to read journal")
		}

		name, prev, ok := previousFromEvent(ev)
		if !ok {
			continue
		}
		// Newest-first scan: the first record per name wins.
		if _, seen := state[name]; seen {
			continue
		}
		state[name] = prev
	}

	return state, nil
}

// previousFromEvent extracts the per-name knowledge an event carries, if any.
func previousFromEvent(ev Event) (string, PreviousProcess, bool) {
	switch ev := ev.(type) {
	case *EventProcessStarted:
		return ev.Name, PreviousProcess{PID: ev.PID}, true
	case *EventProcessAdopted:
		return ev.Name, PreviousProcess{PID: ev.PID}, true
	case *EventProcessReplaced:
		return ev.Name, PreviousProcess{PID: ev.PID}, true
	case *EventProcessRestarted:
		return ev.Name, PreviousProcess{PID: ev.PID}, true
	case *EventExitClassified:
		if ev.Decision == "suppress" {
			return ev.Name, PreviousProcess{Suppressed: true}, true
		}
		// A classified crash leaves the process eligible; whether the
		// restart happened is the next (newer) event's business.
		return ev.Name, PreviousProcess{}, true
	case *EventRestartFailed:
		return ev.Name, PreviousProcess{}, true
	case *EventCooldownActive:
		return ev.Name, PreviousProcess{}, true
	default:
		return "", PreviousProcess{}, false
	}
}
