package internal

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/receipt"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest install run",
	Args:  noArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	in, done, err := newInstaller(cmd)
	if err != nil {
		return err
	}
	defer done()

	f, err := in.LoadFormula(formula.Vars{})
	if err != nil {
		return err
	}
	run, phases, err := in.LatestRun(f.Name)
	if errors.Is(err, receipt.ErrNoRun) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has never been installed\n", f.Name)
		return nil
	}
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), run, phases)
	return nil
}

func printStatus(w io.Writer, run *receipt.Run, phases []receipt.Phase) {
	fmt.Fprintf(w, "%s %s: %s\n", run.Formula, run.Version, run.Status)
	fmt.Fprintf(w, "run:     %s\n", run.ID)
	fmt.Fprintf(w, "prefix:  %s\n", run.Prefix)
	fmt.Fprintf(w, "started: %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "took:    %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", run.Error)
	}
	for _, p := range phases {
		fmt.Fprintf(w, "  %-20s %-10s %-8s %s\n", p.Target, p.Phase, p.Status, p.Duration)
	}
}
