package cmd

import "github.com/spf13/cobra"

var getCmd = &cobra.Command{
	Use:   "get <dump-id>",
	Short: "Show the stored analysis of a dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := NewClient().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return NewPrinter().PrintAnalysis(a)
	},
}
