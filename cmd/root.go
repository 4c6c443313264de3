package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "wayhost",
		Short: "Wayhost - Wayland embedder for the Flutter engine",
		Long: `Wayhost hosts a Flutter application bundle inside a Wayland session.
It owns the compositor connection, creates an EGL-backed toplevel window,
feeds pointer/touch/keyboard input to the engine and services the engine's
rendering, task-scheduling and platform-channel callbacks.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
