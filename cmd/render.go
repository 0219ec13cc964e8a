package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown approximates mdBook's renderer; raw HTML in chapters is kept.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Replace the directives in a markdown file and preview it as HTML.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(".", newLogger(cmd))
		if err != nil {
			return err
		}

		p, closeTrace, err := newPreprocessor(cmd, configuration)
		if err != nil {
			return err
		}
		defer closeTrace()

		path := args[0]
		content, err := afero.ReadFile(appFs, path)
		if err != nil {
			return err
		}

		out, err := p.RunOnContent(string(content), filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := markdown.Convert([]byte(out), &buf); err != nil {
			return err
		}

		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
