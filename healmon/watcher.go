package healmon

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher watches the process list file for modifications so the supervisor
// can reconcile immediately instead of waiting for the next poll.
type Watcher struct {
	Events chan EventProcessListModify

	w    *fsnotify.Watcher
	j    Journaler
	path string
}

// TryWatch attempts to watch the given file asynchronously, but it will log
// into the journaler if, for some reason, it fails to watch. The supervisor
// still works without the watcher; changes are then picked up on the poll.
func TryWatch(ctx context.Context, path string, j Journaler) *Watcher {
	w := newWatcher(path, j)

	go func() {
		if err := w.init(); err != nil {
			j.Write(&EventWarning{
				Component: "watcher",
				Error:     fmt.Sprintf("not watching process list because: %v", err),
			})
			return
		}

		w.watch(ctx)
	}()

	return w
}

// NewWatcher watches the given file and logs events into the journaler. The
// watcher is stopped once the given context is canceled.
func NewWatcher(ctx context.Context, path string, j Journaler) (*Watcher, error) {
	w := newWatcher(path, j)
	if err := w.init(); err != nil {
		return nil, err
	}

	go w.watch(ctx)
	return w, nil
}

func newWatcher(path string, j Journaler) *Watcher {
	return &Watcher{
		Events: make(chan EventProcessListModify),
		w:      nil,
		j:      j,
		path:   path,
	}
}

func (w *Watcher) init() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}

	// Watch the parent directory: editors replace files by rename, which a
	// watch on the file itself would lose.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(err, "failed to watch dir")
	}

	w.w = watcher
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer w.w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-w.w.Errors:
			w.j.Write(&EventWarning{
				Component: "watcher",
				Error:     "inotify error: " + err.Error(),
			})

		case evt := <-w.w.Events:
			ev, ok := w.translate(evt)
			if !ok {
				continue
			}

			w.j.Write(&ev)

			select {
			case w.Events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps an fsnotify event on the watched file to a list-modify
// event. Events for other files in the directory are dropped.
func (w *Watcher) translate(evt fsnotify.Event) (EventProcessListModify, bool) {
	if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
		return EventProcessListModify{}, false
	}

	name := filepath.Base(w.path)

	switch {
	case evt.Op&fsnotify.Write != 0:
		return EventProcessListModify{Op: ProcessListUpdate, File: name}, true
	case evt.Op&fsnotify.Create != 0:
		return EventProcessListModify{Op: ProcessListCreate, File: name}, true
	case evt.Op&fsnotify.Rename != 0:
		// fsnotify reports a rename-away as Rename with no follow-up; treat
		// it like a remove. See https://github.com/fsnotify/fsnotify/issues/26
		fallthrough
	case evt.Op&fsnotify.Remove != 0:
		return EventProcessListModify{Op: ProcessListRemove, File: name}, true
	}

	return EventProcessListModify{}, false
}
