package commands

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/mdcmdrun/core/shellwords"
	getopt "github.com/pborman/getopt/v2"
)

const (
	flagStrict = "strict"
	flagExpect = "expect-return-code"
)

// ArgumentError is returned when a directive's command line is invalid.
type ArgumentError struct {
	// Msg is shown to the author as the build error.
	Msg string
	// Help is set when the author asked for usage instead of running anything.
	Help bool
	Err  error
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ParsedCommand is a directive command line split into its exit code policy
// and the words to run.
type ParsedCommand struct {
	// Words holds the command to run, possibly sanitized by shellwords.Sanitize.
	Words []string
	// ExpectedCode is the exit code the command must return, nil accepts any.
	ExpectedCode *int
}

// Command rebuilds the shell command line to execute.
func (p *ParsedCommand) Command() (string, error) {
	return shellwords.Join(p.Words)
}

// Expectation describes the exit code policy for humans.
func (p *ParsedCommand) Expectation() string {
	if p.ExpectedCode == nil {
		return "any"
	}
	return strconv.Itoa(*p.ExpectedCode)
}

type cmdrunOptions struct {
	cmd    *SimpleCommand
	strict getopt.Option
	expect getopt.Option
	code   int
	help   *bool
}

func newCmdrunOptions() *cmdrunOptions {
	opts := &cmdrunOptions{
		cmd: &SimpleCommand{
			Use:   "cmdrun [--strict | --expect-return-code N] COMMAND...",
			Short: "Run a command and put its output into the book.",
		},
	}

	flags := opts.cmd.Flags()
	flags.SetProgram("cmdrun")
	flags.SetParameters("COMMAND...")
	opts.help = flags.BoolLong("help", 'h', "show this help and exit")
	opts.expect = flags.FlagLong(&opts.code, flagExpect, 0, "require the specific return code N", "N")
	var strict bool
	opts.strict = flags.FlagLong(&strict, flagStrict, 0, "require command to return the successful exit code 0")

	return opts
}

func (o *cmdrunOptions) parse(words []string) error {
	if err := o.cmd.Flags().Getopt(append([]string{"cmdrun"}, words...), nil); err != nil {
		return &ArgumentError{Msg: fmt.Sprintf("invalid cmdrun arguments: %v", err), Err: err}
	}
	return nil
}

// Usage returns the help text for directive command lines.
func Usage() string {
	var buf bytes.Buffer
	newCmdrunOptions().cmd.PrintHelp(&buf)
	return buf.String()
}

// ParseArgs interprets the words of a directive as
// `[--strict | --expect-return-code N] COMMAND...`.
//
// Options end at the first word that isn't one, everything after it belongs to
// the command. A run of expectation options at the very end of the command is
// also honored unless the options were terminated with "--".
func ParseArgs(words []string) (*ParsedCommand, error) {
	opts := newCmdrunOptions()
	if err := opts.parse(words); err != nil {
		return nil, err
	}

	if *opts.help {
		return nil, &ArgumentError{Msg: Usage(), Help: true}
	}

	payload := opts.cmd.Flags().Args()
	leading := words[:len(words)-len(payload)]

	if len(leading) == 0 || leading[len(leading)-1] != "--" {
		var trailing []string
		payload, trailing = splitTrailingOptions(payload)
		if len(trailing) > 0 {
			opts = newCmdrunOptions()
			combined := append(append([]string{}, leading...), trailing...)
			if err := opts.parse(combined); err != nil {
				return nil, err
			}
		}
	}

	if len(payload) == 0 {
		return nil, &ArgumentError{Msg: "invalid cmdrun arguments: a COMMAND to run is required"}
	}

	if opts.strict.Seen() && opts.expect.Seen() {
		return nil, &ArgumentError{
			Msg: fmt.Sprintf("invalid cmdrun arguments: --%s can't be used with --%s", flagStrict, flagExpect),
		}
	}

	parsed := &ParsedCommand{Words: payload}
	switch {
	case opts.strict.Seen():
		zero := 0
		parsed.ExpectedCode = &zero
	case opts.expect.Seen():
		code := opts.code
		parsed.ExpectedCode = &code
	}

	return parsed, nil
}

// splitTrailingOptions separates expectation options written after the
// command. At least one command word is always kept.
func splitTrailingOptions(words []string) (payload, options []string) {
	i := len(words)
	for i > 1 {
		switch {
		case words[i-1] == "--"+flagStrict, strings.HasPrefix(words[i-1], "--"+flagExpect+"="):
			i--
		case i > 2 && words[i-2] == "--"+flagExpect:
			i -= 2
		default:
			return words[:i], words[i:]
		}
	}
	return words[:i], words[i:]
}
