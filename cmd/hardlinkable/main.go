package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/hardlinkable/cmd"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "hardlinkable",
		Short: "Find identical files and replace them with hardlinks",
		Long: `A CLI application that scans directory trees for files with identical contents
and metadata, and saves space by hardlinking them together.
`,
	}

	// Parse persistent flags
	rootCmd.PersistentFlags().StringVar(&cmd.FlagConfigFolder, "config-dir", cmd.FlagConfigFolder, "Config folder")
	rootCmd.PersistentFlags().StringVar(&cmd.FlagConfigFile, "config", cmd.FlagConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagLogFile, "log", "l", cmd.FlagLogFile, "Log file")
	rootCmd.PersistentFlags().CountVarP(&cmd.FlagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.PersistentFlags().BoolVar(&cmd.FlagDryRun, "dry-run", false, "Dry run mode")

	rootCmd.AddCommand(cmd.ScanCommand())
	rootCmd.AddCommand(cmd.LinkCommand())
	rootCmd.AddCommand(cmd.UpdateCommand())
	rootCmd.AddCommand(cmd.VersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
