package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ecell/ecellbrew/internal/config"
	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/internal/installer"
	"github.com/ecell/ecellbrew/internal/logging"
	"github.com/ecell/ecellbrew/internal/receipt"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the flags shared by every command.
type options struct {
	configPath     string
	formula        string
	verbosity      int
	prefix         string
	homebrewPrefix string
	root           string
	python         string
	shell          string
	enable         []string
	sudo           string
	skipDeps       bool
}

var globals options

var closeLog = func() {}

var rootCmd = &cobra.Command{
	Use:   "ecellbrew",
	Short: "ecellbrew installs the E-Cell 4 simulation framework",
	Long: `ecellbrew checks the libraries E-Cell 4 depends on, bootstraps the Python
tools its build needs, builds every sub-module with waf and tells you how to
make the Python bindings importable.`,
	Args:          noArgs,
	RunE:          func(cmd *cobra.Command, args []string) error { return cmd.Help() },
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		closeLog = logging.SetupLogger(globals.verbosity)
	},
}

func init() {
	registerFlags(rootCmd.PersistentFlags(), &globals)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
}

func registerFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/ecellbrew/config.toml)")
	fs.StringVar(&o.formula, "formula", "", "Recipe file used instead of the built-in E-Cell 4 formula")
	fs.CountVarP(&o.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	fs.StringVar(&o.prefix, "prefix", "", "Install prefix (default <homebrew-prefix>/Cellar/ecell4/<version>)")
	fs.StringVar(&o.homebrewPrefix, "homebrew-prefix", "", "Homebrew prefix (default $HOMEBREW_PREFIX or /usr/local)")
	fs.StringVar(&o.root, "root", "", "Unpacked E-Cell 4 source tree (default .)")
	fs.StringVar(&o.python, "python", "", "Python interpreter (default python)")
	fs.StringVar(&o.shell, "shell", "", "Login shell used for guidance (default $SHELL)")
	fs.StringSliceVar(&o.enable, "enable", nil, "Optional targets to build, e.g. egfrd,egfrd_python")
	fs.StringVar(&o.sudo, "sudo", "", "Privilege command replacing sudo in tool installs")
	fs.BoolVar(&o.skipDeps, "skip-deps", false, "Skip the Homebrew dependency check")
}

// apply overrides cfg with the flags set on fs.
func (o *options) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("formula") {
		cfg.Formula = o.formula
	}
	if fs.Changed("prefix") {
		cfg.Prefix = o.prefix
	}
	if fs.Changed("homebrew-prefix") {
		cfg.HomebrewPrefix = o.homebrewPrefix
	}
	if fs.Changed("root") {
		cfg.Root = o.root
	}
	if fs.Changed("python") {
		cfg.Python = o.python
	}
	if fs.Changed("shell") {
		cfg.Shell = env.ShellName(o.shell)
	}
	if fs.Changed("enable") {
		cfg.Enable = o.enable
	}
	if fs.Changed("sudo") {
		cfg.Sudo = o.sudo
	}
	if fs.Changed("skip-deps") {
		cfg.SkipDependencyCheck = o.skipDeps
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	globals.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, &config.Error{Err: err}
	}
	return cfg, nil
}

// newInstaller wires an Installer to the real host. The returned function
// releases the receipt database.
func newInstaller(cmd *cobra.Command) (*installer.Installer, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	state, err := env.StateDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get state dir: %w", err)
	}
	store, err := receipt.Open(filepath.Join(state, "receipts.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open receipts: %w", err)
	}
	in := &installer.Installer{
		Config:   cfg,
		Runner:   runner.Exec{},
		Receipts: store,
		LockFile: filepath.Join(state, "install.lock"),
		Out:      cmd.OutOrStdout(),
		Stdin:    os.Stdin,
		Log:      logging.GetLogger("installer"),
	}
	return in, func() { store.Close() }, nil
}

// Execute runs the root command and returns the process exit code.
// This is called by main.main().
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	closeLog()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return ExitCode(err)
}
