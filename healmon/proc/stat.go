package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// stat is the subset of /proc/<pid>/stat that the probe and the classifier
// care about.
type stat struct {
	PID   int
	Comm  string
	State byte
	// ExitStatus is the raw exit_code field, meaningful only for zombies.
	ExitStatus uint64
}

func (t *Table) readStat(pid int) (stat, error) {
	b, err := os.ReadFile(filepath.Join(t.fs(), strconv.Itoa(pid), "stat"))
	if err != nil {
		return stat{}, err
	}
	return parseStat(string(b))
}

// parseStat parses a stat line. The comm field is delimited by parentheses
// and may itself contain spaces and parentheses, so the line is split at the
// last closing parenthesis rather than by fields.
func parseStat(line string) (stat, error) {
	lparen := strings.IndexByte(line, '(')
	rparen := strings.LastIndexByte(line, ')')
	if lparen < 0 || rparen < lparen || rparen+2 >= len(line) {
		return stat{}, errors.New("malformed stat line")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(line[:lparen]))
	if err != nil {
		return stat{}, errors.Wrap(err, "bad pid field")
	}

	rest := strings.Fields(line[rparen+2:])
	if len(rest) < 1 {
		return stat{}, errors.New("missing state field")
	}

	st := stat{
		PID:   pid,
		Comm:  line[lparen+1 : rparen],
		State: rest[0][0],
	}

	// exit_code is the last field of the line. Only zombies carry a
	// meaningful value there.
	if st.State == 'Z' && len(rest) >= 2 {
		code, err := strconv.ParseUint(rest[len(rest)-1], 10, 64)
		if err != nil {
			return stat{}, errors.Wrap(err, "bad exit_code field")
		}
		st.ExitStatus = code
	}

	return st, nil
}

// decodeExitStatus maps a zombie's recorded exit_code to either the signal
// that terminated the process or its voluntary exit value. Values of
// 128+signal (the shell's exit-status convention) are folded back to the
// signal number. sig is 0 for a voluntary exit.
func decodeExitStatus(status uint64) (sig syscall.Signal, exitCode int) {
	if status >= 1 && status <= 31 {
		return syscall.Signal(status), 0
	}
	if status >= 129 && status <= 159 {
		return syscall.Signal(status - 128), 0
	}
	return 0, int(status)
}

// crashSignals are signals conventionally raised by a fault in the process
// itself, as opposed to an externally requested termination.
var crashSignals = map[syscall.Signal]bool{
	unix.SIGSEGV: true,
	unix.SIGABRT: true,
	unix.SIGBUS:  true,
	unix.SIGFPE:  true,
	unix.SIGILL:  true,
}

func isCrashSignal(sig syscall.Signal) bool {
	return crashSignals[sig]
}

// signalName names a signal for the journal, e.g. "SIGSEGV".
func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return "signal " + strconv.Itoa(int(sig))
}
