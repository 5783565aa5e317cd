package healmon

// ProcessState is the supervisor's runtime knowledge of one named process,
// carried forward across cycles. It is owned exclusively by the supervisor
// loop; nothing else reads or writes it.
type ProcessState struct {
	// PID is the last known process ID, or 0. It is trusted only as long as
	// the liveness probe last confirmed it.
	PID int
	// Running is the last observed liveness.
	Running bool
	// ExitedNormally is sticky: once set, the process is not auto-restarted
	// until a new instance is observed running, at which point it clears.
	// While set, PID is always 0.
	ExitedNormally bool
}

// CarryForward builds the next cycle's state table from the previous one.
// State transfers strictly by name match; names with no previous entry start
// clean. Names absent from specs are simply not carried, which is how state
// is removed.
func CarryForward(prev map[string]*ProcessState, specs []ProcessSpec) map[string]*ProcessState {
	next := make(map[string]*ProcessState, len(specs))
	for _, spec := range specs {
		if _, ok := next[spec.Name]; ok {
			// Duplicate list entries share one state.
			continue
		}
		if st, ok := prev[spec.Name]; ok {
			next[spec.Name] = st
			continue
		}
		next[spec.Name] = &ProcessState{}
	}
	return next
}
