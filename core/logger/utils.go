package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Outcome of a directive, mirrors output.Outcome plus OutcomeError.
const (
	OutcomeOK         = "ok"
	OutcomeMismatch   = "exit_code_mismatch"
	OutcomeTerminated = "terminated"
	OutcomeError      = "error"
)

// LogEntry describes one directive execution.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id"`

	Chapter    string   `json:"chapter,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
	Mode       string   `json:"mode"`
	Raw        string   `json:"raw"`
	Words      []string `json:"words,omitempty"`
	Command    string   `json:"command,omitempty"`

	ExpectedCode *int   `json:"expected_code,omitempty"`
	ExitCode     *int   `json:"exit_code,omitempty"`
	Stdout       string `json:"stdout,omitempty"`
	Stderr       string `json:"stderr,omitempty"`

	DurationMicros int64  `json:"duration_micros"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures a trace of directive executions.
type Logger struct {
	Record LogRecorder
	// Now is the time source for entry timestamps.
	Now func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
		Now: time.Now,
	}
}

// NewNopLogger creates a Logger that drops every entry.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(*LogEntry) error { return nil },
		Now:    time.Now,
	}
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.New().String()}
}

// SessionLogger logs entries with a shared session ID, one session per
// preprocessor run.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every entry.
func (s *SessionLogger) SessionID() string {
	return s.sessionID
}

// RecordEntry stamps the entry with the session and time, then records it.
func (s *SessionLogger) RecordEntry(le *LogEntry) error {
	le.SessionID = s.sessionID
	le.TimestampMicros = s.Now().UnixNano() / int64(time.Microsecond)
	return s.Record(le)
}
