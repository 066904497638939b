package internal

import (
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Import every installed Python binding",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, done, err := newInstaller(cmd)
		if err != nil {
			return err
		}
		defer done()
		return in.Test(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
