package internal

import (
	"github.com/spf13/cobra"
)

var guidanceCmd = &cobra.Command{
	Use:   "guidance",
	Short: "Print the PYTHONPATH line for your shell",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, done, err := newInstaller(cmd)
		if err != nil {
			return err
		}
		defer done()
		return in.Guidance(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(guidanceCmd)
}
