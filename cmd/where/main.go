package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "where",
	Short:         "Where backend: locations, ratings, comments and likes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	conf := zap.NewProductionConfig()
	if verbose {
		conf.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return conf.Build()
}

// bootstrap loads config and sets up the global logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(log)

	conf, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if conf.S5.AdminKey == "" {
		log.Warn("S5_ADMIN_API_KEY is not set; uploads will fail")
	}
	return conf, log, nil
}
