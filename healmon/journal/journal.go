// Package journal provides the file-backed implementation of healmon's
// Journaler interface. It also provides a file locking abstraction so that
// only one healmon instance can run with the same journal file.
package journal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

type multiWriter []healmon.Journaler

// MultiWriter creates a journaler that writes to multiple other journalers.
func MultiWriter(ws ...healmon.Journaler) healmon.Journaler {
	return multiWriter(ws)
}

func (w multiWriter) Write(event healmon.Event) error {
	var firstErr error
	for _, writer := range w {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// FileLockJournaler is a journaler that uses a file lock (flock) to lock the
// given file and writes to it. The FileLockJournaler instance must be closed
// by the caller or by the operating system when the application exits.
//
// The caller does not need the file lock in order to read the written
// journal: each Write performed on the file is atomic and the lock exists
// only to keep a second supervisor from running against the same journal.
type FileLockJournaler struct {
	Writer
	path string
	f    *os.File
	l    *flock.Flock
}

// ErrLockedElsewhere is returned if NewFileLockJournaler can't acquire the
// file lock, meaning another supervisor instance owns this journal.
var ErrLockedElsewhere = errors.New("file already locked elsewhere")

// NewFileLockJournaler creates a new file journaler if it can acquire a flock
// on the path. It returns ErrLockedElsewhere if the lock is taken.
func NewFileLockJournaler(path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(nil, path)
}

// NewFileLockJournalerWait creates a new file journaler but waits until the
// lock can be acquired or until the context times out.
func NewFileLockJournalerWait(ctx context.Context, path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(ctx, path)
}

func newFileLockJournaler(ctx context.Context, path string) (*FileLockJournaler, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create journal directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_SYNC, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	l := flock.New(path)

	var locked bool
	if ctx != nil {
		locked, err = l.TryLockContext(ctx, 25*time.Millisecond)
	} else {
		locked, err = l.TryLock()
	}

	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	if !locked {
		f.Close()
		return nil, ErrLockedElsewhere
	}

	return &FileLockJournaler{
		Writer: NewWriter(f),
		path:   path,
		f:      f,
		l:      l,
	}, nil
}

// PreviousState reads the journal backwards through a separate read-only
// handle and recovers the newest recorded state per process name. Call it
// after acquiring the journaler so exactly one instance performs recovery.
func (f *FileLockJournaler) PreviousState() (map[string]healmon.PreviousProcess, error) {
	return ReadPreviousStateFromFile(f.path)
}

// Close closes the file and releases the flock.
func (f *FileLockJournaler) Close() error {
	f.f.Close()
	return f.l.Unlock()
}
