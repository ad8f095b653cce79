// Package audit appends a best-effort, non-transactional record of every
// core operation invocation to interactions.jsonl. It is deliberately
// outside the Mutation Protocol's transaction: a write here never rolls
// back a mutation, and a failure here never fails one either. The events
// table (internal/storage/sqlite) is the transactional, queryable history;
// this log is the append-only trail of what was asked for, including
// operations that errored before ever reaching a transaction.
package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
)

// Entry is one line of interactions.jsonl.
type Entry struct {
	Ts        time.Time `json:"ts"`
	Session   string    `json:"session,omitempty"`
	Operation string    `json:"operation"`
	Actor     string    `json:"actor,omitempty"`
	IssueID   string    `json:"issue_id,omitempty"`
	Args      string    `json:"args,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Logger appends entries to a fixed path. The zero value is unusable;
// construct with Open.
type Logger struct {
	path string
}

// Open returns a Logger targeting path. The file is created lazily on the
// first Append so an uninitialized workspace doesn't grow a stray file.
func Open(path string) *Logger {
	return &Logger{path: path}
}

// Append writes one entry as a single JSON line and fsyncs it. Callers
// treat a non-nil error as advisory: the log is diagnostic, not part of
// the mutation contract, so a full disk here must never fail a command
// that otherwise succeeded.
func (l *Logger) Append(e *Entry) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return beadserr.Wrap(beadserr.KindInternal, err, "encoding audit entry")
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "opening audit log %s", l.path)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "appending to audit log %s", l.path)
	}
	return f.Sync()
}

// Record is a convenience for the common case: log operation on issueID by
// actor, recording opErr's message (if any) without altering control flow.
// Callers discard Record's own return value in all but test code.
func (l *Logger) Record(operation, actor, issueID string, opErr error) error {
	e := &Entry{Operation: operation, Actor: actor, IssueID: issueID}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	return l.Append(e)
}

// RecordSession is Record with a session identifier attached, so every
// invocation made by one process groups together in the log the way the
// teacher's daemon groups requests by connection.
func (l *Logger) RecordSession(session, operation, actor, issueID string, opErr error) error {
	e := &Entry{Session: session, Operation: operation, Actor: actor, IssueID: issueID}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	return l.Append(e)
}
