package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kucukaslan/activity/config"
	"kucukaslan/activity/logging"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "activity",
	Short: "Storefront activity tracking service",
	Long: `Activity records what visitors and customers do on the storefront,
buffers the events into ClickHouse and serves analytics over them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $"+config.ConfigPathEnvVar+")")
}

// GetRootCmd returns the root command (used in tests).
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig reads the layered configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})
	return cfg, nil
}
