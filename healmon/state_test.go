package healmon

import "testing"

func TestCarryForward(t *testing.T) {
	prev := map[string]*ProcessState{
		"xclock": {PID: 42, Running: true},
		"gedit":  {ExitedNormally: true},
		"gone":   {PID: 9},
	}

	specs := []ProcessSpec{
		{Name: "xclock"},
		{Name: "gedit"},
		{Name: "xclock"}, // duplicate entry
		{Name: "fresh"},
	}

	next := CarryForward(prev, specs)

	if len(next) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(next))
	}

	if st := next["xclock"]; st != prev["xclock"] {
		t.Error("xclock state not carried by identity")
	}
	if st := next["gedit"]; !st.ExitedNormally {
		t.Error("gedit suppression not carried")
	}
	if st := next["fresh"]; st == nil || st.PID != 0 || st.Running || st.ExitedNormally {
		t.Errorf("fresh entry not clean: %#v", st)
	}
	if _, ok := next["gone"]; ok {
		t.Error("removed entry still carried")
	}
}
