package logger

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// TraceFile is an append-only trace log that can be shared by concurrent
// preprocessor processes, e.g. one per renderer.
type TraceFile struct {
	fd   *os.File
	lock *flock.Flock
}

// OpenTraceFile opens path for appending, creating it if needed.
func OpenTraceFile(path string) (*TraceFile, error) {
	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &TraceFile{
		fd:   fd,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Write appends p while holding an exclusive lock on the trace.
func (t *TraceFile) Write(p []byte) (int, error) {
	if err := t.lock.Lock(); err != nil {
		return 0, fmt.Errorf("failed to acquire lock on %s: %w", t.lock.Path(), err)
	}
	defer t.lock.Unlock()

	return t.fd.Write(p)
}

// Name returns the path of the trace file.
func (t *TraceFile) Name() string {
	return t.fd.Name()
}

// Close closes the trace file.
func (t *TraceFile) Close() error {
	return t.fd.Close()
}
