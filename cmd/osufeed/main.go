// Package main is the entry point for the osufeed CLI.
//
// osufeed can be used either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	osufeed run -c config.yaml      # Attach to the companion feed
//	osufeed validate -c config.yaml # Validate configuration
//	osufeed version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "osufeed",
	Short: "A live telemetry client for an osu! memory reader",
	Long: `osufeed attaches to a tosu style companion process and follows the
game in real time.

It connects to the companion's WebSocket snapshot feed, optionally
launching and supervising the companion process itself, and logs every
change to the tracked values (status, score, combo, mods, beatmap, ...).

Quick start:
  1. Create a config file (osufeed.yaml)
  2. Run: osufeed run -c osufeed.yaml

Example config:
  executable: ${TOSU_PATH:-C:\tools\tosu\tosu.exe}
  auto_start: true
  auto_restart: true
  port: 24050`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this osufeed binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("osufeed %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
