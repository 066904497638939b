package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installResume bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Build and install E-Cell 4",
	Long: `Install checks dependencies, bootstraps pip and cython, builds every selected
target with waf into the prefix and prints the shell line that makes the
Python bindings importable.`,
	Args: noArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installResume, "resume", false, "Skip targets installed by the last failed run")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	in, done, err := newInstaller(cmd)
	if err != nil {
		return err
	}
	defer done()
	in.Resume = installResume

	rep, err := in.Install(cmd.Context())
	if err != nil {
		return err
	}
	in.Log.Info().Str("run", rep.RunID).Strs("targets", rep.Targets).Strs("resumed", rep.Resumed).Msg("installed")
	if len(rep.Resumed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Resumed after %d already installed targets\n", len(rep.Resumed))
	}
	return nil
}
