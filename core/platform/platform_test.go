package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminator(t *testing.T) {
	assert.Equal(t, "\n", Unix.Terminator())
	assert.Equal(t, "\r\n", Windows.Terminator())
}

func TestWithShell(t *testing.T) {
	bash := Unix.WithShell("bash", "")
	assert.Equal(t, "bash", bash.Shell)
	assert.Equal(t, "-c", bash.ShellFlag)
	assert.False(t, bash.CRLF)

	// The package-level value is untouched.
	assert.Equal(t, "sh", Unix.Shell)

	pwsh := Windows.WithShell("pwsh", "-Command")
	assert.Equal(t, Platform{Shell: "pwsh", ShellFlag: "-Command", CRLF: true}, pwsh)
}
