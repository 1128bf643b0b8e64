package main

import (
	"fmt"

	"github.com/OniNezuko/osufeed/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting a session.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an osufeed configuration file without starting a session.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  osufeed validate -c config.yaml
  osufeed validate --config /etc/osufeed/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mode := "attach"
	if cfg.AutoStart {
		mode = "supervise"
	}

	// show what a Manager built from this file would actually use
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 24050
	}
	feedPath := cfg.FeedPath
	if feedPath == "" {
		feedPath = "/websocket/v2"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Mode:       %s\n", mode)
	if cfg.Executable != "" {
		fmt.Printf("  Executable: %s\n", cfg.Executable)
	}
	fmt.Printf("  Feed:       ws://%s:%d%s\n", host, port, feedPath)

	return nil
}
