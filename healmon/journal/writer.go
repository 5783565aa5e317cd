package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/pkg/errors"
)

// Event describes the JSON structure of an event to be written.
type Event struct {
	Time time.Time     `json:"time"`
	Type string        `json:"type"`
	Data healmon.Event `json:"data"`
}

// Writer is a simple journaler that writes line-delimited JSON events into
// the writer.
type Writer struct{ w io.Writer }

var _ healmon.Journaler = Writer{}

// NewWriter creates a new journal writer.
func NewWriter(w io.Writer) Writer {
	return Writer{w}
}

// Write writes the given event into the writer. Writes are atomic as long as
// the underlying writer is.
func (l Writer) Write(ev healmon.Event) error {
	evJSON := Event{
		Time: time.Now(),
		Type: ev.Type(),
		Data: ev,
	}

	buf := bytes.Buffer{}
	buf.Grow(512)

	if err := json.NewEncoder(&buf).Encode(evJSON); err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	_, err := l.w.Write(buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}

// HumanWriter is a journaler that writes one human-readable line per event,
// in the traditional healing-log format:
//
//	[2006-01-02 15:04] Action name (PID n) detail
type HumanWriter struct {
	w io.Writer
}

// NewHumanWriter creates a journaler writing human-readable lines to w.
func NewHumanWriter(w io.Writer) HumanWriter {
	return HumanWriter{w}
}

// Write formats and writes the event. Unknown events fall back to their type
// string.
func (h HumanWriter) Write(ev healmon.Event) error {
	action, name, pid, detail := humanize(ev)

	_, err := fmt.Fprintf(h.w, "[%s] %s %s (PID %d) %s\n",
		time.Now().Format("2006-01-02 15:04"), action, name, pid, detail)

	return errors.Wrap(err, "failed to write human line")
}

func humanize(ev healmon.Event) (action, name string, pid int, detail string) {
	switch ev := ev.(type) {
	case *healmon.EventWarning:
		return "Warning", ev.Component, 0, ev.Error
	case *healmon.EventAcquired:
		return "Daemon", "healmon", ev.PID, "started"
	case *healmon.EventShutdown:
		return "Daemon", "healmon", 0, "shutting down: " + ev.Reason
	case *healmon.EventProcessStarted:
		return "Started", ev.Name, ev.PID, ev.Reason
	case *healmon.EventProcessStartError:
		return "Start failed", ev.Name, 0, ev.Reason
	case *healmon.EventProcessAdopted:
		return "Adopted", ev.Name, ev.PID, ev.Reason
	case *healmon.EventProcessReplaced:
		return "Replaced", ev.Name, ev.PID, fmt.Sprintf("took over from PID %d", ev.OldPID)
	case *healmon.EventExitClassified:
		return "Exit detected", ev.Name, ev.PID, ev.Decision + ": " + ev.Cause
	case *healmon.EventProcessRestarted:
		return "Restarted", ev.Name, ev.PID, fmt.Sprintf("after crash of PID %d", ev.OldPID)
	case *healmon.EventRestartFailed:
		return "Restart failed", ev.Name, 0, ev.Reason
	case *healmon.EventCooldownActive:
		return "Cooldown", ev.Name, 0, "restart suppressed " + ev.Phase
	case *healmon.EventProcessListModify:
		return "Modified", ev.File, 0, string(ev.Op)
	default:
		return ev.Type(), "", 0, ""
	}
}
