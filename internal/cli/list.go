package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/scientia/internal/roster"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known scientists",
	Long:  `Print the numbered list of known scientists accepted by 'scientia lookup --number'.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), roster.Menu())
		return err
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
