package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file|->",
	Short: "Analyze a dump payload read from a JSON file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		a, err := NewClient().Submit(cmd.Context(), data)
		if err != nil {
			return err
		}
		return NewPrinter().PrintAnalysis(a)
	},
}
