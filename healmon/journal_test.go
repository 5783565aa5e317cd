package healmon

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"
)

// mockJournal is an in-memory storage of journals, primarily used for testing.
// A zero-value instance is a valid instance.
type mockJournal struct {
	mutex    sync.Mutex
	finalize bool
	journals []Event
}

var _ Journaler = (*mockJournal)(nil)

// Finalize locks the memory store. Future writes will cause a panic.
func (m *mockJournal) Finalize() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.finalize = true
}

// Write appends a journal event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.finalize {
		panic("log write when finalized")
	}

	m.journals = append(m.journals, ev)
	return nil
}

// Journals returns the journal slice.
func (m *mockJournal) Journals() []Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.journals
}

// Verify verifies that the given journals slice is equal to the one stored
// internally. If strict is true, then a length check is performed, otherwise,
// the unmatched events are returned.
//
// Consecutive calls to Verify will match the remaining unmatched events.
func (m *mockJournal) Verify(t *testing.T, strict bool, journals []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if strict && len(journals) != len(m.journals) {
		t.Errorf("mismatch journal length, got %d, expected %d", len(m.journals), len(journals))
		return nil
	}

	for i, ev := range journals {
		if !reflect.DeepEqual(m.journals[i], ev) {
			t.Errorf("journal %d mismatch, got %#v, expected %#v", i, m.journals[i], ev)
		}
	}

	m.journals = m.journals[len(journals):]
	return m.journals
}

func TestWriterJournaler(t *testing.T) {
	var buf bytes.Buffer

	j := NewWriterJournaler(&buf)
	if err := j.Write(&EventProcessStarted{Name: "xclock", PID: 123, Reason: "initial start"}); err != nil {
		t.Fatal("failed to write:", err)
	}

	var written struct {
		Time time.Time           `json:"time"`
		Type string              `json:"type"`
		Data EventProcessStarted `json:"data"`
	}

	if err := json.Unmarshal(buf.Bytes(), &written); err != nil {
		t.Fatal("failed to decode written line:", err)
	}

	if written.Type != (&EventProcessStarted{}).Type() {
		t.Errorf("unexpected type %q", written.Type)
	}
	if written.Data.Name != "xclock" || written.Data.PID != 123 {
		t.Errorf("unexpected data %#v", written.Data)
	}
	if written.Time.IsZero() {
		t.Error("zero time written")
	}
}

func TestNewEvent(t *testing.T) {
	known := []Event{
		&EventWarning{},
		&EventAcquired{},
		&EventShutdown{},
		&EventProcessStarted{},
		&EventProcessStartError{},
		&EventProcessAdopted{},
		&EventProcessReplaced{},
		&EventExitClassified{},
		&EventProcessRestarted{},
		&EventRestartFailed{},
		&EventCooldownActive{},
		&EventProcessListModify{},
	}

	for _, ev := range known {
		got := NewEvent(ev.Type())
		if got == nil {
			t.Errorf("NewEvent(%q) = nil", ev.Type())
			continue
		}
		if reflect.TypeOf(got) != reflect.TypeOf(ev) {
			t.Errorf("NewEvent(%q) = %T, expected %T", ev.Type(), got, ev)
		}
	}

	if ev := NewEvent("definitely not an event"); ev != nil {
		t.Errorf("unexpected event %#v", ev)
	}
}
