// Package shellwords converts between raw directive text and shell words.
//
// Sanitize marks words holding whitespace by wrapping them in single quotes
// and Join strips one such wrapping before quoting for the shell. Join can't
// tell a sanitized word from one that literally starts and ends with a quote
// around whitespace, so passing unsanitized words is lossy: "'a b'" comes
// back as a b. Sanitize first to keep such words intact.
package shellwords

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
	"mvdan.cc/sh/v3/syntax"
)

// bareOperator matches words the shell must see unquoted for pipelines and
// redirections to keep working.
var bareOperator = regexp.MustCompile(`^(\|\|?|&&?|;;?|[0-9]*(<<?|>>?|<>|>\|)(&[0-9]+|&-)?|&>>?)$`)

// TokenizationError is returned when a directive's command text can't be
// split into words, usually because of unbalanced quotes.
type TokenizationError struct {
	Input string
	Err   error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("couldn't split %q into shell words: %v", e.Input, e.Err)
}

func (e *TokenizationError) Unwrap() error {
	return e.Err
}

// Split breaks raw into words following POSIX shell quoting and escaping rules.
func Split(raw string) ([]string, error) {
	words, err := shlex.Split(raw, true)
	if err != nil {
		return nil, &TokenizationError{Input: raw, Err: err}
	}
	return words, nil
}

// Sanitize wraps every word containing whitespace in single quotes so later
// stages can tell it was a single word.
func Sanitize(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if strings.IndexFunc(w, unicode.IsSpace) >= 0 {
			w = "'" + w + "'"
		}
		out[i] = w
	}
	return out
}

// unsanitize reverses Sanitize for a single word.
func unsanitize(w string) string {
	if len(w) >= 2 && w[0] == '\'' && w[len(w)-1] == '\'' {
		inner := w[1 : len(w)-1]
		if strings.IndexFunc(inner, unicode.IsSpace) >= 0 {
			return inner
		}
	}
	return w
}

// Split followed by Sanitize.
func SplitSanitized(raw string) ([]string, error) {
	words, err := Split(raw)
	if err != nil {
		return nil, err
	}
	return Sanitize(words), nil
}

// Join rebuilds a single shell command line from (possibly sanitized) words,
// quoting each one so the shell sees the same words again.
func Join(words []string) (string, error) {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = unsanitize(w)
		if bareOperator.MatchString(w) {
			quoted = append(quoted, w)
			continue
		}

		q, err := quote(w)
		if err != nil {
			return "", &TokenizationError{Input: w, Err: err}
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}

// quote falls back to plain single quoting for printable-but-unusual words
// like ones holding tabs, which POSIX Quote rejects. NUL can't be quoted.
func quote(w string) (string, error) {
	q, err := syntax.Quote(w, syntax.LangPOSIX)
	if err == nil {
		return q, nil
	}
	if strings.ContainsRune(w, 0) {
		return "", err
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'", nil
}
