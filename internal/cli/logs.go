package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/shutter/internal/config"
	"github.com/five82/shutter/internal/logtail"
)

func newLogsCmd(r *root) *cobra.Command {
	var lines int
	var raw bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the end of the shutter log",
		Long: `Print the last lines of the log file, formatted for reading.

Examples:
  shutter logs           # Last 50 lines
  shutter logs -n 200    # Last 200 lines
  shutter logs --raw     # JSON records as written`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadUnchecked(r.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			entries, err := logtail.Read(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "no log entries in %s\n", cfg.LogFile)
				return nil
			}
			if !raw {
				entries = logtail.ColorizeLines(entries)
			}
			for _, line := range entries {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "tail", "n", 50, "number of lines to show (0 for all)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print records without formatting")
	return cmd
}
