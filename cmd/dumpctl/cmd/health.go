package cmd

import "github.com/spf13/cobra"

var checkReady bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway liveness, or readiness with --ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := NewClient().Health(cmd.Context(), checkReady)
		if err != nil {
			return err
		}
		return NewPrinter().PrintMap(status)
	},
}

func init() {
	healthCmd.Flags().BoolVar(&checkReady, "ready", false, "also check the store")
}
