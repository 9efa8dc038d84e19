// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fleetgrid",
	Short: "FleetGrid is a management tool for auto-service businesses",
	Long: `FleetGrid is a management tool for auto-service businesses that
provides permission-controlled access to vehicles, quotes, invoices, and
payments, with a compliance-grade audit trail for every authorization
decision.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindEnv("config", "FLEETGRID_CONFIG")
}

// resolveConfigPath returns the configuration directory from the flag or
// the FLEETGRID_CONFIG environment variable, empty for the default.
func resolveConfigPath() string {
	return viper.GetString("config")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
