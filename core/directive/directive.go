// Package directive finds `<!-- cmdrun ... -->` markers in markdown and
// substitutes them with generated text.
package directive

import (
	"regexp"
	"strings"
)

// Mode is how a directive's replacement is spliced into the text.
type Mode int

const (
	// LineConsuming directives sit alone at the end of a line; the marker and
	// its line terminator are replaced together.
	LineConsuming Mode = iota
	// Inline directives replace only the marker text.
	Inline
)

func (m Mode) String() string {
	switch m {
	case LineConsuming:
		return "line"
	case Inline:
		return "inline"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var marker = regexp.MustCompile(`<!--[ \t]*cmdrun[ \t](.*?)-->`)

// Directive is a single marker located in a block of text.
type Directive struct {
	// Raw is the untrimmed command text between the keyword and "-->".
	Raw string `json:"raw"`
	// Start and End are byte offsets of the replaced span. For LineConsuming
	// directives End includes the line terminator.
	Start int  `json:"start"`
	End   int  `json:"end"`
	Mode  Mode `json:"mode"`
}

// Line returns the 1-based line number the directive starts on within text.
func (d Directive) Line(text string) int {
	return strings.Count(text[:d.Start], "\n") + 1
}

// Scan returns every directive in text in order of appearance.
func Scan(text string) []Directive {
	var out []Directive
	for _, loc := range marker.FindAllStringSubmatchIndex(text, -1) {
		d := Directive{
			Raw:   text[loc[2]:loc[3]],
			Start: loc[0],
			End:   loc[1],
			Mode:  Inline,
		}

		rest := text[d.End:]
		switch {
		case strings.HasPrefix(rest, "\n"):
			d.End++
			d.Mode = LineConsuming
		case strings.HasPrefix(rest, "\r\n"):
			d.End += 2
			d.Mode = LineConsuming
		}

		out = append(out, d)
	}
	return out
}

// ReplaceFunc produces the replacement text for a directive.
type ReplaceFunc func(d Directive) (string, error)

// Substitute replaces every directive in text.
//
// Line-consuming directives are all replaced first, then the result is scanned
// again for inline directives. The first error stops substitution and no text
// is returned.
func Substitute(text string, fn ReplaceFunc) (string, error) {
	out, err := replaceMode(text, LineConsuming, fn)
	if err != nil {
		return "", err
	}

	return replaceMode(out, Inline, fn)
}

func replaceMode(text string, mode Mode, fn ReplaceFunc) (string, error) {
	var sb strings.Builder
	last := 0
	for _, d := range Scan(text) {
		if mode == Inline {
			// Anything left over from the line pass is spliced inline, terminator
			// untouched.
			d.End = d.Start + len(marker.FindString(text[d.Start:]))
			d.Mode = Inline
		} else if d.Mode != mode {
			continue
		}

		replacement, err := fn(d)
		if err != nil {
			return "", err
		}

		sb.WriteString(text[last:d.Start])
		sb.WriteString(replacement)
		last = d.End
	}

	if last == 0 {
		return text, nil
	}

	sb.WriteString(text[last:])
	return sb.String(), nil
}
