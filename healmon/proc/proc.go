// Package proc exposes the host's process table: locating processes by name,
// probing liveness, classifying exits by racing the kernel for the terminated
// record, and launching detached replacements.
package proc

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Table reads the process table from a procfs mount. The zero value reads
// from /proc with default timings.
type Table struct {
	// FS is the procfs mount point. Defaults to /proc.
	FS string
	// ConfirmDelay is how long Launch waits before verifying that the new
	// process survived. Defaults to LaunchConfirmDelay.
	ConfirmDelay time.Duration
}

func (t *Table) fs() string {
	if t.FS != "" {
		return t.FS
	}
	return "/proc"
}

// Alive reports whether pid denotes a live, schedulable process. A PID whose
// record is a zombie or whose process is stopped is not alive: the supervisor
// must classify such an exit rather than treat the process as running.
func (t *Table) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// EPERM still means the PID is allocated; we just can't signal it.
	if err := unix.Kill(pid, 0); err != nil && err != unix.EPERM {
		return false
	}

	st, err := t.readStat(pid)
	if err != nil {
		return false
	}

	return st.State != 'Z' && st.State != 'T' && st.State != 't'
}

// Locate resolves a process name to a live PID by exact match against the
// comm of every process in the table. PIDs are scanned in ascending order and
// the first live match wins; there is no canonical choice among duplicates.
// The false return is the expected case before a first start, not an error.
func (t *Table) Locate(name string) (int, bool) {
	for _, pid := range t.pids() {
		comm, err := os.ReadFile(filepath.Join(t.fs(), strconv.Itoa(pid), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSuffix(string(comm), "\n") != name {
			continue
		}
		if t.Alive(pid) {
			return pid, true
		}
	}

	return 0, false
}

// Reap collects the exit record of a child process without blocking. It is
// called after classification so the supervisor's own children do not pile up
// as zombies. Processes the supervisor did not spawn fail with ECHILD and are
// left for their real parent.
func (t *Table) Reap(pid int) {
	var ws unix.WaitStatus
	unix.Wait4(pid, &ws, unix.WNOHANG, nil)
}

// pids lists the numeric entries of the procfs mount in ascending order.
func (t *Table) pids() []int {
	ents, err := os.ReadDir(t.fs())
	if err != nil {
		return nil
	}

	pids := make([]int, 0, len(ents))
	for _, ent := range ents {
		pid, err := strconv.Atoi(ent.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}

	sort.Ints(pids)
	return pids
}
