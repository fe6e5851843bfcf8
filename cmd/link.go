package cmd

import (
	"github.com/spf13/cobra"
)

func LinkCommand() *cobra.Command {
	var flags matchFlags

	command := &cobra.Command{
		Use:   "link DIR...",
		Short: "Replace identical files with hardlinks",
		Long: `This command scans the given directories and replaces files with identical contents by hardlinks to a single inode.
Use --dry-run to see the result without modifying the filesystem.`,
		Example: `  hardlinkable link /data/media
  hardlinkable link --dry-run --content-only /data/media`,
		Args: cobra.MinimumNArgs(1),
	}

	addMatchFlags(command, &flags)

	command.Run = func(cmd *cobra.Command, args []string) {
		runMatching(cmd, "link", args, &flags, true)
	}

	return command
}
