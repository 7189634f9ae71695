package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"propoflash/internal/common/config"
	"propoflash/internal/common/logger"
	"propoflash/pkg/registry"
)

var rootCmd = &cobra.Command{
	Use:   "propoflash",
	Short: "PropoFlash turns conversational briefs into proposal documents",
	Long: `PropoFlash serves the proposal chat and style endpoints over HTTP and can run
the same operations as Zeebe job workers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().String("registry", "", "Path to an activity registry JSON file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func loadRegistry(cmd *cobra.Command) (*registry.ActivityRegistry, error) {
	path, _ := cmd.Flags().GetString("registry")
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadRegistry(path)
}

// newLogger returns the structured logger and its underlying zap logger,
// which the caller must Sync.
func newLogger(cfg *config.Config) (logger.Logger, *zap.Logger) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	return logger.NewZapAdapter(zapLog), zapLog
}
