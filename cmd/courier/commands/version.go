package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/courier/version"
)

func newVersionCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			switch output {
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), info)
			case "short":
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Short())
				return err
			default:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return err
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, short or json")
	return cmd
}
