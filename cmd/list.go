package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/josephlewis42/mdcmdrun/commands"
	"github.com/josephlewis42/mdcmdrun/core/directive"
	"github.com/josephlewis42/mdcmdrun/core/shellwords"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var listFormat string

// listing describes a directive found in a file without running it.
type listing struct {
	File    string         `json:"file"`
	Line    int            `json:"line"`
	Mode    directive.Mode `json:"mode"`
	Raw     string         `json:"raw"`
	Command string         `json:"command,omitempty"`
	Expect  string         `json:"expect,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func listDirectives(path, content string) []listing {
	var out []listing
	for _, d := range directive.Scan(content) {
		entry := listing{
			File: path,
			Line: d.Line(content),
			Mode: d.Mode,
			Raw:  d.Raw,
		}

		if err := describe(&entry); err != nil {
			entry.Error = err.Error()
		}
		out = append(out, entry)
	}
	return out
}

func describe(entry *listing) error {
	words, err := shellwords.SplitSanitized(entry.Raw)
	if err != nil {
		return err
	}

	parsed, err := commands.ParseArgs(words)
	if err != nil {
		return err
	}

	entry.Command, err = parsed.Command()
	if err != nil {
		return err
	}
	entry.Expect = parsed.Expectation()
	return nil
}

func writeListings(w io.Writer, format string, listings []listing) error {
	if listings == nil {
		listings = []listing{}
	}

	switch format {
	case "text":
		for _, l := range listings {
			if l.Error != "" {
				fmt.Fprintf(w, "%s:%d: %s: error: %s\n", l.File, l.Line, l.Mode, l.Error)
				continue
			}
			fmt.Fprintf(w, "%s:%d: %s: %s (expect %s)\n", l.File, l.Line, l.Mode, l.Command, l.Expect)
		}
		return nil

	case "json":
		out, err := json.MarshalIndent(listings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil

	case "yaml":
		out, err := yaml.Marshal(listings)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(out))
		return nil

	default:
		return fmt.Errorf("unknown format %q, expected text, json or yaml", format)
	}
}

var listCmd = &cobra.Command{
	Use:   "list [--format text|json|yaml] FILE...",
	Short: "List the directives in markdown files without running them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var listings []listing
		for _, path := range args {
			content, err := afero.ReadFile(appFs, path)
			if err != nil {
				return err
			}
			listings = append(listings, listDirectives(path, string(content))...)
		}

		return writeListings(cmd.OutOrStdout(), listFormat, listings)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "text", "output format: text, json or yaml")
}
