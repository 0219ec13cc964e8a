package cmd

import (
	"github.com/spf13/cobra"
)

var supportsCmd = &cobra.Command{
	Use:   "supports RENDERER",
	Short: "Exit 0 if the preprocessor should run for RENDERER, 1 otherwise.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(".", newLogger(cmd))
		if err != nil {
			return err
		}

		if !configuration.SupportsRenderer(args[0]) {
			return errUnsupportedRenderer
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(supportsCmd)
}
