package cmd

import "github.com/spf13/cobra"

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the most recent analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := NewClient().List(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		return NewPrinter().PrintList(items)
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of analyses (server default 50)")
}
