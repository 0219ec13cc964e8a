package core

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/josephlewis42/mdcmdrun/commands"
	"github.com/josephlewis42/mdcmdrun/core/book"
	"github.com/josephlewis42/mdcmdrun/core/config"
	"github.com/josephlewis42/mdcmdrun/core/directive"
	"github.com/josephlewis42/mdcmdrun/core/logger"
	"github.com/josephlewis42/mdcmdrun/core/output"
	"github.com/josephlewis42/mdcmdrun/core/platform"
	"github.com/josephlewis42/mdcmdrun/core/runner"
	"github.com/josephlewis42/mdcmdrun/core/shellwords"
)

// Name is the preprocessor name mdBook knows this binary by.
const Name = "cmdrun"

// DirectiveError is returned when a directive can't be run at all. It aborts
// the whole book.
type DirectiveError struct {
	// Unit names the chapter being processed, empty if unknown.
	Unit string
	Raw  string
	Err  error
}

func (e *DirectiveError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("cmdrun %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("%s: cmdrun %q: %v", e.Unit, e.Raw, e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// Preprocessor replaces directives in chapters with the output of their
// commands. Directives run one at a time in the order they're substituted.
type Preprocessor struct {
	configuration *config.Configuration
	platform      platform.Platform
	runner        runner.Runner
	trace         *logger.SessionLogger
	logger        *log.Logger
}

// NewPreprocessor creates a preprocessor for the configuration. Every
// directive is recorded to trace, which may be nil. Operator warnings go to
// logDest.
func NewPreprocessor(configuration *config.Configuration, trace *logger.Logger, logDest io.Writer) *Preprocessor {
	if trace == nil {
		trace = logger.NewNopLogger()
	}

	p := configuration.Platform()
	return &Preprocessor{
		configuration: configuration,
		platform:      p,
		runner:        runner.NewShellRunner(p),
		trace:         trace.NewSession(),
		logger:        log.New(logDest, "[cmdrun] ", 0),
	}
}

// SessionID identifies this run in the trace log.
func (p *Preprocessor) SessionID() string {
	return p.trace.SessionID()
}

// SupportsRenderer reports whether the preprocessor runs for renderer.
func (p *Preprocessor) SupportsRenderer(renderer string) bool {
	return p.configuration.SupportsRenderer(renderer)
}

// WorkingDir returns the directory commands in the chapter at chapterPath run
// in. Chapters without a path run in the source root.
func (p *Preprocessor) WorkingDir(chapterPath *string) string {
	src := p.configuration.SourcePath()
	if chapterPath == nil || *chapterPath == "" {
		return src
	}
	return filepath.Dir(filepath.Join(src, *chapterPath))
}

// Run processes every chapter of the book in order. Processing stops at the
// first chapter that fails.
func (p *Preprocessor) Run(b *book.Book) error {
	return b.ForEachChapter(p.RunOnChapter)
}

// RunOnChapter replaces the directives in a single chapter. The chapter is
// left untouched on error.
func (p *Preprocessor) RunOnChapter(chapter *book.Chapter) error {
	unit := chapter.Name
	if chapter.Path != nil && *chapter.Path != "" {
		unit = *chapter.Path
	}

	content, err := p.runOnContent(unit, chapter.Content, p.WorkingDir(chapter.Path))
	if err != nil {
		return err
	}

	chapter.Content = content
	return nil
}

// RunOnContent returns content with every directive replaced, running
// commands in workingDir. Either every directive is replaced or an error is
// returned.
func (p *Preprocessor) RunOnContent(content, workingDir string) (string, error) {
	return p.runOnContent("", content, workingDir)
}

func (p *Preprocessor) runOnContent(unit, content, workingDir string) (string, error) {
	return directive.Substitute(content, func(d directive.Directive) (string, error) {
		return p.runDirective(unit, d, workingDir)
	})
}

// RunDirective runs the raw command text of a single directive and returns
// its replacement text.
func (p *Preprocessor) RunDirective(raw, workingDir string, mode directive.Mode) (string, error) {
	return p.runDirective("", directive.Directive{Raw: raw, Mode: mode}, workingDir)
}

func (p *Preprocessor) runDirective(unit string, d directive.Directive, workingDir string) (string, error) {
	entry := &logger.LogEntry{
		Chapter:    unit,
		WorkingDir: workingDir,
		Mode:       d.Mode.String(),
		Raw:        d.Raw,
	}

	start := time.Now()
	text, err := p.execute(entry, d, workingDir)
	entry.DurationMicros = time.Since(start).Microseconds()
	if err != nil {
		entry.Outcome = logger.OutcomeError
		entry.Error = err.Error()
	}

	if recErr := p.trace.RecordEntry(entry); recErr != nil {
		p.logger.Printf("Couldn't write trace entry: %v", recErr)
	}

	if err != nil {
		return "", &DirectiveError{Unit: unit, Raw: d.Raw, Err: err}
	}
	return text, nil
}

func (p *Preprocessor) execute(entry *logger.LogEntry, d directive.Directive, workingDir string) (string, error) {
	words, err := shellwords.SplitSanitized(d.Raw)
	if err != nil {
		return "", err
	}
	entry.Words = words

	parsed, err := commands.ParseArgs(words)
	if err != nil {
		return "", err
	}
	entry.ExpectedCode = parsed.ExpectedCode

	command, err := parsed.Command()
	if err != nil {
		return "", err
	}
	entry.Command = command

	res, err := p.runner.Run(workingDir, command)
	if err != nil {
		return "", err
	}

	if code, ok := res.ExitCode(); ok {
		entry.ExitCode = &code
	}
	entry.Stdout = string(res.Stdout)
	entry.Stderr = string(res.Stderr)

	text, outcome := output.Compose(command, parsed.ExpectedCode, res, d.Mode, p.platform)
	entry.Outcome = string(outcome)

	switch outcome {
	case output.OutcomeMismatch:
		p.logger.Printf("%s%q exited with %d, expected %s", unitPrefix(entry.Chapter), command, *entry.ExitCode, parsed.Expectation())
	case output.OutcomeTerminated:
		p.logger.Printf("%s%q was ended before completing", unitPrefix(entry.Chapter), command)
	}

	return text, nil
}

func unitPrefix(unit string) string {
	if unit == "" {
		return ""
	}
	return unit + ": "
}
