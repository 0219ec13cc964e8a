// Package runnertest provides a scripted runner for tests that shouldn't
// spawn processes.
package runnertest

import (
	"fmt"

	"github.com/josephlewis42/mdcmdrun/core/runner"
)

// Call records a single invocation of the fake runner.
type Call struct {
	Dir     string
	Command string
}

// Fake returns canned results keyed by the rebuilt command line.
type Fake struct {
	// Results maps a command line to its result.
	Results map[string]*runner.Result
	// Errors maps a command line to a spawn error.
	Errors map[string]error
	// Calls holds every invocation in order.
	Calls []Call
}

var _ runner.Runner = (*Fake)(nil)

// NewFake creates an empty fake runner.
func NewFake() *Fake {
	return &Fake{
		Results: make(map[string]*runner.Result),
		Errors:  make(map[string]error),
	}
}

// Stdout registers a command that prints out and exits with code.
func (f *Fake) Stdout(command, out string, code int) *Fake {
	f.Results[command] = runner.NewResult([]byte(out), nil, code)
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(dir, command string) (*runner.Result, error) {
	f.Calls = append(f.Calls, Call{Dir: dir, Command: command})

	if err, ok := f.Errors[command]; ok {
		return nil, &runner.ExecutionError{Command: command, Dir: dir, Err: err}
	}
	if res, ok := f.Results[command]; ok {
		return res, nil
	}
	return nil, &runner.ExecutionError{Command: command, Dir: dir, Err: fmt.Errorf("no scripted result")}
}
