// Package notify implements the crash notifier. The only transport is email
// over SMTP; delivery failures are journaled as warnings and never block the
// restart path.
package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/pkg/errors"
)

// rateLimit is the minimum spacing between two notifications of the same
// kind for the same process.
const rateLimit = 60 * time.Second

// Email sends crash and restart-failure notifications over SMTP. A zero
// or disabled configuration yields a notifier whose methods do nothing.
type Email struct {
	cfg healmon.EmailConfig
	j   healmon.Journaler

	send func(subject, body string) error
	now  func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

var _ healmon.Notifier = (*Email)(nil)

// NewEmail creates an email notifier from the given configuration. Warnings
// about failed deliveries are written into j.
func NewEmail(cfg healmon.EmailConfig, j healmon.Journaler) *Email {
	e := &Email{
		cfg:  cfg,
		j:    j,
		now:  time.Now,
		last: map[string]time.Time{},
	}
	e.send = e.sendSMTP
	return e
}

// NotifyCrash reports that name's process crashed with the given cause and is
// about to be restarted.
func (e *Email) NotifyCrash(name string, pid int, cause string) {
	host, _ := os.Hostname()

	e.notify("crash:"+name,
		fmt.Sprintf("[healmon] %s crashed on %s", name, host),
		fmt.Sprintf(
			"Process %q (PID %d) exited abnormally (%s) and is being restarted.\n\nHost: %s\nTime: %s\n",
			name, pid, cause, host, e.now().Format(time.RFC1123)))
}

// NotifyRestartFailed reports that restarting name did not produce a living
// process.
func (e *Email) NotifyRestartFailed(name, reason string) {
	host, _ := os.Hostname()

	e.notify("restart-failed:"+name,
		fmt.Sprintf("[healmon] failed to restart %s on %s", name, host),
		fmt.Sprintf(
			"Process %q could not be restarted: %s\n\nHost: %s\nTime: %s\n",
			name, reason, host, e.now().Format(time.RFC1123)))
}

func (e *Email) notify(key, subject, body string) {
	if !e.cfg.Enabled {
		return
	}

	if !e.allow(key) {
		return
	}

	if err := e.send(subject, body); err != nil {
		e.j.Write(&healmon.EventWarning{
			Component: "notify",
			Error:     err.Error(),
		})
	}
}

// allow applies the per-key rate limit.
func (e *Email) allow(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.last[key]; ok && now.Sub(last) < rateLimit {
		return false
	}

	e.last[key] = now
	return true
}

func (e *Email) sendSMTP(subject, body string) error {
	addr := net.JoinHostPort(e.cfg.SMTPServer, strconv.Itoa(e.cfg.SMTPPort))

	msg := []byte(
		"From: " + e.cfg.Sender + "\r\n" +
			"To: " + e.cfg.Receiver + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.SMTPServer)

	if !e.cfg.UseSSL {
		// Plain dial; net/smtp upgrades with STARTTLS when the server
		// offers it.
		return errors.Wrap(
			smtp.SendMail(addr, auth, e.cfg.Sender, []string{e.cfg.Receiver}, msg),
			"failed to send mail")
	}

	// Implicit TLS (typically port 465) needs a manual dial, since
	// smtp.SendMail only speaks STARTTLS.
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.cfg.SMTPServer})
	if err != nil {
		return errors.Wrap(err, "failed to dial SMTP over TLS")
	}

	c, err := smtp.NewClient(conn, e.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to create SMTP client")
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return errors.Wrap(err, "failed to authenticate")
	}
	if err := c.Mail(e.cfg.Sender); err != nil {
		return errors.Wrap(err, "failed to set sender")
	}
	if err := c.Rcpt(e.cfg.Receiver); err != nil {
		return errors.Wrap(err, "failed to set receiver")
	}

	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "failed to open data writer")
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return errors.Wrap(err, "failed to write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish message")
	}

	return errors.Wrap(c.Quit(), "failed to quit")
}
