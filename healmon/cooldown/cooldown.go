// Package cooldown implements the restart rate limiter: after too many
// restart attempts inside a sliding window, a process enters a cooldown
// period during which the supervisor must not restart it.
//
// State lives in a JSON file guarded by an flock so that a replacement
// supervisor instance inherits the cooldown bookkeeping of its predecessor.
package cooldown

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Defaults match the traditional tuning: five restarts within a minute put a
// process on a two minute cooldown.
const (
	DefaultMaxRestarts = 5
	DefaultWindow      = 60 * time.Second
	DefaultCooldown    = 120 * time.Second
)

// Tracker tracks restart attempts per process name. Methods are best-effort:
// an unreadable or unwritable state file degrades to "never in cooldown"
// rather than blocking restarts, mirroring the collaborator's advisory role.
type Tracker struct {
	// MaxRestarts within Window triggers a cooldown of Cooldown.
	MaxRestarts int
	Window      time.Duration
	Cooldown    time.Duration

	path string
	now  func() time.Time
}

// entry is the persisted per-name bookkeeping.
type entry struct {
	Attempts      []time.Time `json:"attempts"`
	CooldownUntil time.Time   `json:"cooldown_until,omitempty"`
}

// New creates a tracker persisting to the given state file.
func New(path string) *Tracker {
	return &Tracker{
		MaxRestarts: DefaultMaxRestarts,
		Window:      DefaultWindow,
		Cooldown:    DefaultCooldown,
		path:        path,
		now:         time.Now,
	}
}

// InCooldown reports whether name is currently cooling down. Crossing the
// attempt threshold promotes the name into cooldown as a side effect, so the
// caller observes the flip on the check that follows RecordAttempt.
func (t *Tracker) InCooldown(name string) bool {
	var in bool

	t.withState(func(state map[string]*entry) bool {
		e, ok := state[name]
		if !ok {
			return false
		}

		now := t.now()

		if e.CooldownUntil.After(now) {
			in = true
			return false
		}

		if len(t.pruned(e.Attempts, now)) >= t.MaxRestarts {
			e.CooldownUntil = now.Add(t.Cooldown)
			in = true
			return true
		}

		return false
	})

	return in
}

// RecordAttempt records one restart attempt for name, pruning attempts that
// fell out of the window.
func (t *Tracker) RecordAttempt(name string) {
	t.withState(func(state map[string]*entry) bool {
		now := t.now()

		e, ok := state[name]
		if !ok {
			e = &entry{}
			state[name] = e
		}

		e.Attempts = append(t.pruned(e.Attempts, now), now)

		t.dropStale(state, now)
		return true
	})
}

// Reset clears all bookkeeping for name, e.g. after a stable run.
func (t *Tracker) Reset(name string) {
	t.withState(func(state map[string]*entry) bool {
		if _, ok := state[name]; !ok {
			return false
		}
		delete(state, name)
		return true
	})
}

// Status is a point-in-time view of one name's bookkeeping.
type Status struct {
	InCooldown bool
	Attempts   int
	Remaining  time.Duration
}

// Status reports the current bookkeeping for name without mutating it.
func (t *Tracker) Status(name string) Status {
	var s Status

	t.withState(func(state map[string]*entry) bool {
		e, ok := state[name]
		if !ok {
			return false
		}

		now := t.now()
		s.Attempts = len(t.pruned(e.Attempts, now))

		if e.CooldownUntil.After(now) {
			s.InCooldown = true
			s.Remaining = e.CooldownUntil.Sub(now)
		}

		return false
	})

	return s
}

// pruned returns the attempts still inside the window at now.
func (t *Tracker) pruned(attempts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-t.Window)

	kept := attempts[:0:len(attempts)]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

// dropStale removes names whose attempts all aged out and that are not in
// cooldown, keeping the state file from growing forever.
func (t *Tracker) dropStale(state map[string]*entry, now time.Time) {
	for name, e := range state {
		if e.CooldownUntil.After(now) {
			continue
		}
		if len(t.pruned(e.Attempts, now)) == 0 {
			delete(state, name)
		}
	}
}

// withState loads the state file under an flock, applies fn, and saves it
// back when fn reports a mutation.
func (t *Tracker) withState(fn func(map[string]*entry) bool) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0750); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	l := flock.New(t.path + ".lock")
	if err := l.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock state file")
	}
	defer l.Unlock()

	state := map[string]*entry{}
	if b, err := os.ReadFile(t.path); err == nil {
		// A corrupt state file starts over empty; losing cooldown history
		// is preferable to wedging the restart path.
		json.Unmarshal(b, &state)
	}

	if !fn(state) {
		return nil
	}

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	if err := os.WriteFile(t.path, b, 0600); err != nil {
		return errors.Wrap(err, "failed to write state")
	}

	return nil
}
