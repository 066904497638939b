package internal

import (
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what install would do",
	Long:  `Plan prints the prefix, environment, tools and per-target commands of an install without running them.`,
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, done, err := newInstaller(cmd)
		if err != nil {
			return err
		}
		defer done()
		p, err := in.Plan(cmd.Context())
		if err != nil {
			return err
		}
		p.Print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
