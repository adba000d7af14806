// Package cmd holds the dumpctl commands.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "dumpctl",
	Short: "Client for the ST22 dump analysis gateway",
	Long: `dumpctl talks to the dump analysis HTTP API.

Examples:
  # analyze a dump exported as JSON
  dumpctl submit dump.json

  # show the stored analysis
  dumpctl get DMP1

  # list the 10 newest analyses
  dumpctl list --limit 10`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("api-url", "u", "http://localhost:8000", "gateway base URL")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")

	// DUMPCTL_API_URL, DUMPCTL_OUTPUT
	viper.SetEnvPrefix("dumpctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(submitCmd, getCmd, listCmd, healthCmd)
}
