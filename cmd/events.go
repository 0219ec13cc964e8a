package cmd

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/mdcmdrun/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the directive trace log.",
}

var reportCommand = &cobra.Command{
	Use:   "report [TRACE_LOG]",
	Short: "Show a report of traced directives.",
	Long: `Summarizes a trace log: runs, outcomes, exit codes, programs, failures
and the slowest command. Defaults to the trace-log configured in book.toml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var path string
		if len(args) > 0 {
			path = args[0]
		} else {
			configuration, err := loadConfig(".", newLogger(cmd))
			if err != nil {
				return err
			}
			path = configuration.TraceLogPath()
		}
		if path == "" {
			return errors.New("no trace log given and none configured")
		}

		fd, err := appFs.Open(path)
		if err != nil {
			return err
		}
		defer fd.Close()

		report := logger.NewReport()
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
}
