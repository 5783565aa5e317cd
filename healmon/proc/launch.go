package proc

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ErrLaunchFailed is returned when a process could not be created or did not
// survive the confirmation delay. The caller must not trust an unconfirmed
// PID; the next cycle retries.
var ErrLaunchFailed = errors.New("process did not survive launch")

// LaunchConfirmDelay is how long Launch waits before checking that the new
// process is actually alive.
const LaunchConfirmDelay = 200 * time.Millisecond

// Launch starts name with no arguments in a fresh session, detached from the
// supervisor's controlling terminal, with a best-effort graphical session
// environment. The returned PID has been confirmed alive after a short delay.
func (t *Table) Launch(name string) (int, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return 0, errors.Wrapf(ErrLaunchFailed, "command %q not found", name)
	}

	cmd := exec.Command(path)
	cmd.Env = SessionEnviron()
	// A fresh session keeps terminal signals aimed at the supervisor from
	// reaching the child, and vice versa.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(ErrLaunchFailed, "exec %q: %v", name, err)
	}

	pid := cmd.Process.Pid

	// The child is not waited on here: its zombie record is what the
	// classifier reads later. Reap collects it after classification.
	cmd.Process.Release()

	delay := t.ConfirmDelay
	if delay == 0 {
		delay = LaunchConfirmDelay
	}
	time.Sleep(delay)

	if !t.Alive(pid) {
		t.Reap(pid)
		return 0, errors.Wrapf(ErrLaunchFailed, "%q (PID %d) died within %v of starting", name, pid, delay)
	}

	return pid, nil
}
