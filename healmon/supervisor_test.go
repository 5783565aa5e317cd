package healmon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSpecList(t *testing.T, lines string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "process_list.txt")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSupervisorRunCycle(t *testing.T) {
	path := writeSpecList(t, "xclock 10 100\ngedit 20 250\n")

	sys := &fakeSystem{nextPID: map[string]int{"xclock": 100, "gedit": 200}}
	j := &mockJournal{}
	rec := NewReconciler(sys, &fakeLimiter{}, &fakeNotifier{}, j)

	s := NewSupervisor(path, sys, rec, j)
	s.RunCycle()

	j.Verify(t, true, []Event{
		&EventProcessStarted{Name: "xclock", PID: 100, Reason: "initial start"},
		&EventProcessStarted{Name: "gedit", PID: 200, Reason: "initial start"},
	})

	states := s.States()
	if states["xclock"].PID != 100 || states["gedit"].PID != 200 {
		t.Errorf("unexpected states %#v", states)
	}

	// A second cycle over healthy processes does nothing.
	sys.alive = map[int]bool{100: true, 200: true}
	s.RunCycle()
	j.Verify(t, true, []Event{})
}

func TestSupervisorRemovedEntryDropped(t *testing.T) {
	path := writeSpecList(t, "xclock 10 100\n")

	sys := &fakeSystem{nextPID: map[string]int{"xclock": 100}}
	j := &mockJournal{}
	rec := NewReconciler(sys, &fakeLimiter{}, &fakeNotifier{}, j)

	s := NewSupervisor(path, sys, rec, j)
	s.RunCycle()

	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s.RunCycle()

	if states := s.States(); len(states) != 0 {
		t.Errorf("expected empty state table, got %#v", states)
	}
}

func TestSupervisorAdoptPrevious(t *testing.T) {
	path := writeSpecList(t, "xclock 10 100\nstale 10 100\ngedit 20 250\n")

	sys := &fakeSystem{
		located: map[string]int{"xclock": 42},
		alive:   map[int]bool{42: true},
		nextPID: map[string]int{"stale": 300},
	}
	j := &mockJournal{}
	rec := NewReconciler(sys, &fakeLimiter{}, &fakeNotifier{}, j)

	s := NewSupervisor(path, sys, rec, j)
	s.AdoptPrevious(map[string]PreviousProcess{
		// Still running as the recorded PID: adopted.
		"xclock": {PID: 42},
		// Recorded PID no longer answers to the name: starts clean.
		"stale": {PID: 9},
		// Suppressed exits stay suppressed across supervisor restarts.
		"gedit": {Suppressed: true},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	j.Verify(t, true, []Event{
		&EventProcessAdopted{Name: "xclock", PID: 42, Reason: "recovered from previous supervisor's journal"},
		&EventProcessStarted{Name: "stale", PID: 300, Reason: "initial start"},
		&EventShutdown{Reason: "termination signal"},
	})

	states := s.States()
	if st := states["xclock"]; st.PID != 42 || !st.Running {
		t.Errorf("xclock not adopted: %#v", st)
	}
	if st := states["gedit"]; !st.ExitedNormally {
		t.Errorf("gedit suppression not recovered: %#v", st)
	}
}
