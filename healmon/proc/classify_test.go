package proc

import (
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var errNoRecord = errors.New("no such process")

// scriptClassifier builds a classifier whose stat reads replay the given
// sequence, sticking on the last entry. A nil stat entry means the record is
// gone for that read.
func scriptClassifier(t *testing.T, reads []*stat, locate func(string) (int, bool)) *Classifier {
	t.Helper()

	if locate == nil {
		locate = func(string) (int, bool) { return 0, false }
	}

	i := 0
	return &Classifier{
		Attempts: DefaultClassifyAttempts,
		Interval: 0,
		readStat: func(pid int) (stat, error) {
			read := reads[i]
			if i < len(reads)-1 {
				i++
			}
			if read == nil {
				return stat{}, errNoRecord
			}
			return *read, nil
		},
		locate: locate,
	}
}

func TestClassifyCrash(t *testing.T) {
	c := scriptClassifier(t, []*stat{
		{PID: 42, State: 'Z', ExitStatus: 139}, // 128+SIGSEGV
	}, nil)

	v := c.Classify(42, "xclock")
	if v.Decision != Restart || v.Signal != unix.SIGSEGV {
		t.Errorf("unexpected verdict %#v", v)
	}
	if v.Cause() != "crash signal SIGSEGV" {
		t.Errorf("unexpected cause %q", v.Cause())
	}
}

func TestClassifyNormalExit(t *testing.T) {
	c := scriptClassifier(t, []*stat{
		{PID: 42, State: 'Z', ExitStatus: 0},
	}, nil)

	v := c.Classify(42, "xclock")
	if v.Decision != Suppress || v.Signal != 0 || v.ExitCode != 0 {
		t.Errorf("unexpected verdict %#v", v)
	}
}

func TestClassifyExplicitKill(t *testing.T) {
	c := scriptClassifier(t, []*stat{
		{PID: 42, State: 'Z', ExitStatus: 9},
	}, nil)

	v := c.Classify(42, "xclock")
	if v.Decision != Suppress || v.Signal != unix.SIGKILL {
		t.Errorf("unexpected verdict %#v", v)
	}
	if v.Cause() != "terminated by SIGKILL" {
		t.Errorf("unexpected cause %q", v.Cause())
	}
}

func TestClassifyLateZombie(t *testing.T) {
	// The record reads as still running for a few polls before the kernel
	// marks it a zombie. The classifier must keep polling through that.
	c := scriptClassifier(t, []*stat{
		{PID: 42, State: 'R'},
		{PID: 42, State: 'R'},
		{PID: 42, State: 'Z', ExitStatus: 134}, // 128+SIGABRT
	}, nil)

	v := c.Classify(42, "xclock")
	if v.Decision != Restart || v.Signal != unix.SIGABRT {
		t.Errorf("unexpected verdict %#v", v)
	}
}

func TestClassifyVanished(t *testing.T) {
	c := scriptClassifier(t, []*stat{nil}, nil)

	v := c.Classify(42, "xclock")
	if v.Decision != Suppress || !v.Vanished || v.Replaced != 0 {
		t.Errorf("unexpected verdict %#v", v)
	}
}

func TestClassifyVanishedWithReplacement(t *testing.T) {
	c := scriptClassifier(t, []*stat{nil}, func(name string) (int, bool) {
		if name != "xclock" {
			t.Errorf("located unexpected name %q", name)
		}
		return 99, true
	})

	v := c.Classify(42, "xclock")
	if v.Decision != Suppress || !v.Vanished || v.Replaced != 99 {
		t.Errorf("unexpected verdict %#v", v)
	}
}

func TestClassifyRecordBeatsReplacement(t *testing.T) {
	// The record is caught even though a replacement is running; the caught
	// evidence decides, not the table.
	c := scriptClassifier(t, []*stat{
		nil,
		nil,
		{PID: 42, State: 'Z', ExitStatus: 139},
	}, func(string) (int, bool) { return 99, true })

	v := c.Classify(42, "xclock")
	if v.Decision != Restart || v.Signal != unix.SIGSEGV || v.Replaced != 0 {
		t.Errorf("unexpected verdict %#v", v)
	}
}

func TestClassifySamePIDNotReplacement(t *testing.T) {
	// Locate answering with the dying PID itself is not a replacement.
	c := scriptClassifier(t, []*stat{nil}, func(string) (int, bool) { return 42, true })

	v := c.Classify(42, "xclock")
	if !v.Vanished || v.Replaced != 0 {
		t.Errorf("unexpected verdict %#v", v)
	}
}
