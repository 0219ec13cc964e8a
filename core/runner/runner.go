// Package runner executes directive commands through the platform shell.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"

	"github.com/josephlewis42/mdcmdrun/core/platform"
)

// Result is the captured outcome of one command.
type Result struct {
	Stdout []byte
	Stderr []byte

	exitCode int
	exited   bool
}

// NewResult creates a Result for a process that exited with code.
func NewResult(stdout, stderr []byte, code int) *Result {
	return &Result{Stdout: stdout, Stderr: stderr, exitCode: code, exited: true}
}

// NewTerminatedResult creates a Result for a process that ended without an
// exit code, e.g. because it was killed by a signal.
func NewTerminatedResult(stdout, stderr []byte) *Result {
	return &Result{Stdout: stdout, Stderr: stderr}
}

// ExitCode returns the process exit code, ok is false if the process didn't
// exit normally.
func (r *Result) ExitCode() (code int, ok bool) {
	return r.exitCode, r.exited
}

// ExecutionError is returned when the shell itself couldn't be started.
type ExecutionError struct {
	Command string
	Dir     string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to run shell for %q in %q: %v", e.Command, e.Dir, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Runner runs a shell command line in a directory.
type Runner interface {
	Run(dir, command string) (*Result, error)
}

// ShellRunner runs commands with the platform's shell, inheriting the
// environment of the current process.
type ShellRunner struct {
	Platform platform.Platform
}

var _ Runner = (*ShellRunner)(nil)

// NewShellRunner creates a runner for the given platform.
func NewShellRunner(p platform.Platform) *ShellRunner {
	return &ShellRunner{Platform: p}
}

// Run blocks until the command completes. A non-zero exit status is reported
// through the Result, not as an error.
func (s *ShellRunner) Run(dir, command string) (*Result, error) {
	cmd := exec.Command(s.Platform.Shell, s.Platform.ShellFlag, command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, &ExecutionError{Command: command, Dir: dir, Err: err}
	}

	if !cmd.ProcessState.Exited() {
		return NewTerminatedResult(stdout.Bytes(), stderr.Bytes()), nil
	}
	return NewResult(stdout.Bytes(), stderr.Bytes(), cmd.ProcessState.ExitCode()), nil
}
