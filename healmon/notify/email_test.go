package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/pkg/errors"
)

type sentMail struct {
	subject string
	body    string
}

func newTestEmail(enabled bool) (*Email, *[]sentMail, *time.Time) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	var sent []sentMail

	e := NewEmail(healmon.EmailConfig{Enabled: enabled}, healmon.NewWriterJournaler(nopWriter{}))
	e.now = func() time.Time { return now }
	e.send = func(subject, body string) error {
		sent = append(sent, sentMail{subject, body})
		return nil
	}

	return e, &sent, &now
}

type nopWriter struct{}

func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }

func TestEmailDisabled(t *testing.T) {
	e, sent, _ := newTestEmail(false)

	e.NotifyCrash("xclock", 42, "crash signal SIGSEGV")
	e.NotifyRestartFailed("xclock", "unable to start process after crash")

	if len(*sent) != 0 {
		t.Errorf("disabled notifier sent %d mails", len(*sent))
	}
}

func TestEmailNotifyCrash(t *testing.T) {
	e, sent, _ := newTestEmail(true)

	e.NotifyCrash("xclock", 42, "crash signal SIGSEGV")

	if len(*sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*sent))
	}

	mail := (*sent)[0]
	if !strings.Contains(mail.subject, "xclock") {
		t.Errorf("subject missing process name: %q", mail.subject)
	}
	if !strings.Contains(mail.body, "crash signal SIGSEGV") {
		t.Errorf("body missing cause: %q", mail.body)
	}
	if !strings.Contains(mail.body, "PID 42") {
		t.Errorf("body missing PID: %q", mail.body)
	}
}

func TestEmailRateLimit(t *testing.T) {
	e, sent, now := newTestEmail(true)

	e.NotifyCrash("xclock", 42, "crash signal SIGSEGV")
	e.NotifyCrash("xclock", 43, "crash signal SIGSEGV")

	if len(*sent) != 1 {
		t.Fatalf("expected repeated crash suppressed, got %d mails", len(*sent))
	}

	// A different kind of notification for the same name is not limited.
	e.NotifyRestartFailed("xclock", "unable to start process after crash")
	if len(*sent) != 2 {
		t.Fatalf("expected restart failure delivered, got %d mails", len(*sent))
	}

	// Neither is the same kind for a different name.
	e.NotifyCrash("gedit", 10, "crash signal SIGABRT")
	if len(*sent) != 3 {
		t.Fatalf("expected other process's crash delivered, got %d mails", len(*sent))
	}

	// Once the limit passes, the same kind delivers again.
	*now = now.Add(61 * time.Second)
	e.NotifyCrash("xclock", 44, "crash signal SIGSEGV")
	if len(*sent) != 4 {
		t.Fatalf("expected crash delivered after rate limit, got %d mails", len(*sent))
	}
}

func TestEmailSendErrorJournaled(t *testing.T) {
	j := &recordJournal{}

	e := NewEmail(healmon.EmailConfig{Enabled: true}, j)
	e.send = func(string, string) error { return errors.New("connection refused") }

	e.NotifyCrash("xclock", 42, "crash signal SIGSEGV")

	if len(j.events) != 1 {
		t.Fatalf("expected 1 warning, got %d events", len(j.events))
	}

	warn, ok := j.events[0].(*healmon.EventWarning)
	if !ok || warn.Component != "notify" {
		t.Errorf("unexpected event %#v", j.events[0])
	}
}

type recordJournal struct {
	events []healmon.Event
}

func (j *recordJournal) Write(ev healmon.Event) error {
	j.events = append(j.events, ev)
	return nil
}
