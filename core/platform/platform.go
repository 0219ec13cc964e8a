// Package platform holds the per-OS capabilities the preprocessor switches on:
// which shell runs a directive and which line terminator output is rewritten to.
package platform

// Platform describes how commands are launched and how their output is
// normalized on a target OS.
type Platform struct {
	// Shell is the interpreter binary, e.g. "sh".
	Shell string
	// ShellFlag makes Shell run its next argument as a command string.
	ShellFlag string
	// CRLF is set when captured output is rewritten to "\r\n" terminators.
	CRLF bool
}

var (
	// Unix launches commands through the POSIX shell and leaves output alone.
	Unix = Platform{Shell: "sh", ShellFlag: "-c"}
	// Windows launches commands through cmd.exe and rewrites newlines to CRLF.
	Windows = Platform{Shell: "cmd", ShellFlag: "/C", CRLF: true}
)

// Terminator returns the line terminator output is normalized to.
func (p Platform) Terminator() string {
	if p.CRLF {
		return "\r\n"
	}
	return "\n"
}

// WithShell returns a copy of p launching commands with the given shell and
// flag instead. Empty values keep the current setting.
func (p Platform) WithShell(shell, flag string) Platform {
	if shell != "" {
		p.Shell = shell
	}
	if flag != "" {
		p.ShellFlag = flag
	}
	return p
}
