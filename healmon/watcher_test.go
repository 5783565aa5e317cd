package healmon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) EventProcessListModify {
	t.Helper()

	for {
		select {
		case ev := <-w.Events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a watcher event")
		}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "process_list.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &mockJournal{}

	w, err := NewWatcher(ctx, path, j)
	if err != nil {
		t.Fatal("failed to create watcher:", err)
	}

	if err := os.WriteFile(path, []byte("xclock 10 100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, w)
	if ev.Op != ProcessListCreate || ev.File != "process_list.txt" {
		t.Errorf("unexpected event %#v", ev)
	}

	// Changes to unrelated files in the directory are dropped.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	// Creating the file may have emitted a trailing update; skip past it.
	for {
		ev = waitEvent(t, w)
		if ev.Op != ProcessListUpdate {
			break
		}
	}
	if ev.Op != ProcessListRemove || ev.File != "process_list.txt" {
		t.Errorf("unexpected event %#v", ev)
	}
}
