package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func TestParseArgs(t *testing.T) {
	cases := map[string]struct {
		words        []string
		expectedCmd  []string
		expectedCode *int
	}{
		"plain":            {[]string{"seq", "1", "10"}, []string{"seq", "1", "10"}, nil},
		"strict":           {[]string{"--strict", "ls"}, []string{"ls"}, intPtr(0)},
		"expect":           {[]string{"--expect-return-code", "2", "ls", "nope"}, []string{"ls", "nope"}, intPtr(2)},
		"expect-equals":    {[]string{"--expect-return-code=3", "false"}, []string{"false"}, intPtr(3)},
		"command-flags":    {[]string{"ls", "-la", "--color"}, []string{"ls", "-la", "--color"}, nil},
		"dash-dash":        {[]string{"--", "--strict"}, []string{"--strict"}, nil},
		"trailing-expect":  {[]string{"false", "--expect-return-code", "0"}, []string{"false"}, intPtr(0)},
		"trailing-strict":  {[]string{"ls", "-l", "--strict"}, []string{"ls", "-l"}, intPtr(0)},
		"trailing-equals":  {[]string{"exit", "4", "--expect-return-code=4"}, []string{"exit", "4"}, intPtr(4)},
		"dash-dash-keeps":  {[]string{"--", "echo", "--strict"}, []string{"echo", "--strict"}, nil},
		"sanitized-word":   {[]string{"echo", "'hello world'"}, []string{"echo", "'hello world'"}, nil},
		"option-then-dash": {[]string{"--strict", "--", "-v"}, []string{"-v"}, intPtr(0)},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := ParseArgs(tc.words)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedCmd, actual.Words)
			assert.Equal(t, tc.expectedCode, actual.ExpectedCode)
		})
	}
}

func TestParseArgs_errors(t *testing.T) {
	cases := map[string][]string{
		"empty":             nil,
		"only-strict":       {"--strict"},
		"only-options":      {"--strict", "--strict"},
		"conflict":          {"--strict", "--expect-return-code", "1", "ls"},
		"conflict-trailing": {"--strict", "ls", "--expect-return-code", "1"},
		"not-a-number":      {"--expect-return-code", "one", "ls"},
		"missing-number":    {"--expect-return-code"},
		"unknown-option":    {"--loud", "ls"},
	}

	for tn, words := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := ParseArgs(words)
			assert.Nil(t, actual)

			var argErr *ArgumentError
			require.True(t, errors.As(err, &argErr), "got %v", err)
			assert.False(t, argErr.Help)
			assert.NotEmpty(t, argErr.Error())
		})
	}
}

func TestParseArgs_conflictMessage(t *testing.T) {
	_, err := ParseArgs([]string{"--strict", "--expect-return-code", "0", "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--strict")
	assert.Contains(t, err.Error(), "--expect-return-code")
}

func TestParseArgs_help(t *testing.T) {
	_, err := ParseArgs([]string{"--help"})

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.True(t, argErr.Help)
	assert.Equal(t, Usage(), argErr.Msg)
}

func TestUsage(t *testing.T) {
	usage := Usage()

	assert.True(t, strings.HasPrefix(usage, "usage: cmdrun"))
	assert.Contains(t, usage, "--expect-return-code")
	assert.Contains(t, usage, "--strict")
}

func TestParsedCommand(t *testing.T) {
	t.Run("any", func(t *testing.T) {
		p := &ParsedCommand{Words: []string{"echo", "'hello world'"}}

		cmd, err := p.Command()
		require.NoError(t, err)
		assert.Equal(t, "echo 'hello world'", cmd)
		assert.Equal(t, "any", p.Expectation())
	})

	t.Run("expected", func(t *testing.T) {
		p := &ParsedCommand{Words: []string{"false"}, ExpectedCode: intPtr(1)}
		assert.Equal(t, "1", p.Expectation())
	})
}

func TestSplitTrailingOptions(t *testing.T) {
	cases := []struct {
		words    []string
		payload  []string
		trailing []string
	}{
		{[]string{"ls"}, []string{"ls"}, []string{}},
		{[]string{"--strict"}, []string{"--strict"}, []string{}},
		{[]string{"a", "--strict"}, []string{"a"}, []string{"--strict"}},
		{[]string{"a", "--expect-return-code", "2", "--strict"}, []string{"a"}, []string{"--expect-return-code", "2", "--strict"}},
		{[]string{"--expect-return-code", "2"}, []string{"--expect-return-code", "2"}, []string{}},
		{[]string{"a", "--strict", "b"}, []string{"a", "--strict", "b"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(strings.Join(tc.words, " "), func(t *testing.T) {
			payload, trailing := splitTrailingOptions(tc.words)
			assert.Equal(t, tc.payload, payload)
			assert.Equal(t, tc.trailing, trailing)
		})
	}
}
