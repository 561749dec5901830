package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ironlog/ironlog/internal/config"
	"github.com/ironlog/ironlog/internal/logging"
	"github.com/ironlog/ironlog/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the IronLog CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ironlog",
		Short: "IronLog - training log and gym analytics",
		Long: `IronLog serves the training log web app behind cookie sessions,
with invite-only registration and a bootstrapped administrator.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/ironlog/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBootstrapAdminCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig layers the config file, environment and flags of cmd, then
// installs the default logger for the chosen format.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path := configFile
	if path == "" {
		found, ok, err := xdg.FindConfigFile()
		if err != nil {
			return config.Config{}, nil, err
		}
		if ok {
			path = found
		}
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "ironlog",
		Version: version,
		Format:  cfg.Log.Format,
	})
	return cfg, logger, nil
}
