// Package output turns captured command output into replacement text.
package output

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/josephlewis42/mdcmdrun/core/directive"
	"github.com/josephlewis42/mdcmdrun/core/platform"
	"github.com/josephlewis42/mdcmdrun/core/runner"
)

// Outcome classifies how a command's result was turned into text.
type Outcome string

const (
	// OutcomeOK means the formatted stdout was used.
	OutcomeOK Outcome = "ok"
	// OutcomeMismatch means the exit code didn't match and a banner was used.
	OutcomeMismatch Outcome = "exit_code_mismatch"
	// OutcomeTerminated means the process ended without an exit code.
	OutcomeTerminated Outcome = "terminated"
)

// decode converts raw output to text, replacing invalid UTF-8.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// lines splits s on "\n", dropping one trailing "\r" from each line and the
// empty line after a final terminator.
func lines(s string) []string {
	if s == "" {
		return nil
	}

	out := strings.Split(s, "\n")
	if out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for i, line := range out {
		out[i] = strings.TrimSuffix(line, "\r")
	}
	return out
}

// Format normalizes captured stdout for the given substitution mode.
//
// Inline output never keeps trailing whitespace. On CRLF platforms every line
// terminator is rewritten to "\r\n" and line-consuming output ends with
// exactly one terminator.
func Format(stdout []byte, mode directive.Mode, p platform.Platform) string {
	text := decode(stdout)
	if mode == directive.Inline {
		text = strings.TrimRightFunc(text, unicode.IsSpace)
	}

	if !p.CRLF {
		return text
	}

	res := strings.Join(lines(text), "\r\n")
	if mode == directive.LineConsuming && res != "" {
		res += "\r\n"
	}
	return res
}

// Compose chooses the replacement text for a finished command: its formatted
// output, a banner describing an unexpected exit code, or a note that the
// process never finished.
func Compose(command string, expected *int, res *runner.Result, mode directive.Mode, p platform.Platform) (string, Outcome) {
	code, exited := res.ExitCode()
	if !exited {
		return fmt.Sprintf("'%q' was ended before completing.", command), OutcomeTerminated
	}

	stdout := Format(res.Stdout, mode, p)
	if expected == nil || *expected == code {
		return stdout, OutcomeOK
	}

	return Banner(command, code, *expected, stdout, decode(res.Stderr)), OutcomeMismatch
}

// Banner renders the visible error put in place of output when a command
// exits with the wrong code.
func Banner(command string, actual, expected int, stdout, stderr string) string {
	return fmt.Sprintf("**cmdrun error**: '%s' returned exit code %d instead of %d.\n%s\n%s",
		command, actual, expected, stdout, stderr)
}
