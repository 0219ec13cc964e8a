package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/josephlewis42/mdcmdrun/core"
	"github.com/josephlewis42/mdcmdrun/core/book"
	"github.com/josephlewis42/mdcmdrun/core/config"
	"github.com/josephlewis42/mdcmdrun/core/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	bookDir  string
	traceLog string

	// appFs is the filesystem configuration and markdown files are read from.
	appFs = afero.NewOsFs()
)

// errUnsupportedRenderer makes the process exit 1 without printing anything.
var errUnsupportedRenderer = errors.New("renderer not supported")

func newLogger(cmd *cobra.Command) *log.Logger {
	return log.New(cmd.ErrOrStderr(), "[cmdrun] ", 0)
}

// loadConfig loads the book.toml in dir, falling back to --book-dir.
func loadConfig(dir string, logger *log.Logger) (*config.Configuration, error) {
	if bookDir != "" {
		dir = bookDir
	}
	if dir == "" {
		dir = "."
	}

	configuration, err := config.Load(appFs, dir, logger)
	if err != nil {
		return nil, err
	}

	if traceLog != "" {
		// Relative to the working directory rather than the book.
		path, err := filepath.Abs(traceLog)
		if err != nil {
			return nil, err
		}
		configuration = configuration.WithTraceLog(path)
	}
	return configuration, nil
}

// newPreprocessor creates a preprocessor that traces to the configured log.
// The returned function closes the trace.
func newPreprocessor(cmd *cobra.Command, configuration *config.Configuration) (*core.Preprocessor, func(), error) {
	path := configuration.TraceLogPath()
	if path == "" {
		return core.NewPreprocessor(configuration, nil, cmd.ErrOrStderr()), func() {}, nil
	}

	fd, err := logger.OpenTraceFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open trace log: %w", err)
	}

	p := core.NewPreprocessor(configuration, logger.NewJsonLinesLogRecorder(fd), cmd.ErrOrStderr())
	return p, func() { fd.Close() }, nil
}

// rootCmd speaks the mdBook preprocessor protocol when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "mdcmdrun",
	Short: "mdBook preprocessor that runs shell commands in your book",
	Long: `Replaces <!-- cmdrun COMMAND --> directives in every chapter with the
output of COMMAND, run through the shell in the chapter's directory.

Without a subcommand it reads [context, book] JSON from stdin and writes the
processed book to stdout, the way mdbook build invokes preprocessors.`,
	Args:             cobra.NoArgs,
	SilenceErrors:    true,
	TraverseChildren: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := newLogger(cmd)

		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			logger.Println("Waiting for book JSON on stdin; this command is normally run by mdbook.")
		}

		ctx, b, err := book.ParseInput(cmd.InOrStdin())
		if err != nil {
			return err
		}

		if !ctx.CompatibleVersion() {
			logger.Printf(
				"Warning: %s was built against mdbook %s but is being called from mdbook %s",
				core.Name,
				book.SupportedMdbookVersion,
				ctx.MdbookVersion,
			)
		}

		configuration, err := loadConfig(ctx.Root, logger)
		if err != nil {
			return err
		}

		p, closeTrace, err := newPreprocessor(cmd, configuration)
		if err != nil {
			return err
		}
		defer closeTrace()

		if err := p.Run(b); err != nil {
			return err
		}

		return book.WriteBook(cmd.OutOrStdout(), b)
	},
}

// printError writes err to w, in bold red when w is a terminal.
func printError(w io.Writer, err error) {
	c := color.New(color.FgRed, color.Bold)
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	c.Fprint(w, "Error:")
	fmt.Fprintf(w, " %v\n", err)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUnsupportedRenderer) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bookDir, "book-dir", "", "directory holding book.toml (default: the book root or the working directory)")
	rootCmd.PersistentFlags().StringVar(&traceLog, "trace-log", "", "append a JSON lines trace of every directive to this file")
}
