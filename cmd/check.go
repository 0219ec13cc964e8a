package cmd

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/mdcmdrun/commands"
	"github.com/josephlewis42/mdcmdrun/core/directive"
	"github.com/josephlewis42/mdcmdrun/core/shellwords"
	"github.com/spf13/cobra"
)

// parseWords interprets already split words the way a directive's text is
// interpreted. Help requests are printed to the command's output.
func parseWords(cmd *cobra.Command, words []string) (*commands.ParsedCommand, error) {
	parsed, err := commands.ParseArgs(shellwords.Sanitize(words))

	var argErr *commands.ArgumentError
	if errors.As(err, &argErr) && argErr.Help {
		fmt.Fprint(cmd.OutOrStdout(), argErr.Msg)
		return nil, nil
	}
	return parsed, err
}

var checkCmd = &cobra.Command{
	Use:   "check [--strict | --expect-return-code N] COMMAND...",
	Short: "Show how a directive's command line is interpreted without running it.",
	// Everything belongs to the directive, including --help.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		parsed, err := parseWords(cmd, args)
		if err != nil || parsed == nil {
			return err
		}

		command, err := parsed.Command()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "expect: %s\n", parsed.Expectation())
		fmt.Fprintf(w, "command: %s\n", command)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [--strict | --expect-return-code N] COMMAND...",
	Short: "Run a single directive in the working directory and print its replacement text.",
	// Everything belongs to the directive, including --help.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if parsed, err := parseWords(cmd, args); err != nil || parsed == nil {
			return err
		}

		configuration, err := loadConfig(".", newLogger(cmd))
		if err != nil {
			return err
		}

		p, closeTrace, err := newPreprocessor(cmd, configuration)
		if err != nil {
			return err
		}
		defer closeTrace()

		raw, err := shellwords.Join(shellwords.Sanitize(args))
		if err != nil {
			return err
		}

		text, err := p.RunDirective(raw, ".", directive.LineConsuming)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runCmd)
}
