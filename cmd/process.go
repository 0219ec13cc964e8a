package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var inPlace bool

// writeFileAtomic replaces path with data by renaming a sibling temp file
// over it, keeping the original permissions.
func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	info, err := fsys.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".cmdrun-*")
	if err != nil {
		return err
	}
	defer fsys.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := fsys.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}

	return fsys.Rename(tmp.Name(), path)
}

var processCmd = &cobra.Command{
	Use:   "process [--in-place] FILE...",
	Short: "Replace the directives in markdown files outside of mdbook.",
	Long: `Replaces the directives in each markdown FILE, running commands in the
file's directory. Results are printed to stdout unless --in-place is set.
Nothing is written for a file that fails.`,
	Args: cobra.MinimumNArgs(1),
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

		for _, path := range args {
			content, err := afero.ReadFile(appFs, path)
			if err != nil {
				return err
			}

			out, err := p.RunOnContent(string(content), filepath.Dir(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if !inPlace {
				fmt.Fprint(cmd.OutOrStdout(), out)
				continue
			}

			if err := writeFileAtomic(appFs, path, []byte(out)); err != nil {
				return fmt.Errorf("couldn't update %s: %w", path, err)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "rewrite each file instead of printing it")
}
