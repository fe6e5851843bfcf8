package cmd

import (
	"github.com/spf13/cobra"
)

func ScanCommand() *cobra.Command {
	var flags matchFlags

	command := &cobra.Command{
		Use:   "scan DIR...",
		Short: "Report files that could be hardlinked",
		Long:  `This command scans the given directories and reports which files could be replaced by hardlinks, without modifying anything.`,
		Example: `  hardlinkable scan /data/media
  hardlinkable scan -v --same-name --min-size 1M /data/a /data/b`,
		Args: cobra.MinimumNArgs(1),
	}

	addMatchFlags(command, &flags)

	command.Run = func(cmd *cobra.Command, args []string) {
		runMatching(cmd, "scan", args, &flags, false)
	}

	return command
}
