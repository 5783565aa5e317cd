// Package healmon is the core of the healmon supervisor: it keeps a declared
// list of processes alive, restarting them when they crash while deliberately
// leaving them down when they exited on their own or were killed on purpose.
//
// Mechanism of Operation
//
// Crash or Intentional Exit
//
// When a monitored process disappears, the one place the answer still exists
// is the process's terminated-but-unreaped record in /proc: for a zombie, the
// exit_code field of /proc/<pid>/stat encodes either the voluntary exit value
// or the signal that killed it. The kernel discards that record as soon as the
// parent collects it, so healmon races it with a short bounded busy-poll and
// decodes whatever it catches. A crash-class signal (SIGSEGV, SIGABRT, SIGBUS,
// SIGFPE, SIGILL) means restart; a voluntary exit or an explicit kill (SIGTERM,
// SIGKILL) means the user wanted it gone, so healmon suppresses the restart
// until a new instance is seen running.
//
// When the record is gone before it can be read, the evidence is lost for
// good. healmon then refuses to restart: absence of evidence never triggers a
// restart. If a replacement instance of the same name is already running, it
// is adopted instead, on the theory that a replacement already answers the
// restart question.
//
// The Journal
//
// Every decision the supervisor makes is written as a typed event to an
// append-only journal of line-delimited JSON. The journal doubles as the
// supervisor's memory: a new instance reads it backwards to find the last
// known PID of each process and adopts the ones that are still alive.
package healmon
