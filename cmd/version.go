package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wayhost/wayhost/internal/logger"
)

var (
	// Commit and Date are set during build
	Commit = "unknown"
	Date   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("wayhost %s", Version)
		logger.Infof("commit: %s", Commit)
		logger.Infof("built: %s", Date)
	},
}
