// Package cli implements the regorus-builder command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/config"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// Populated by the root PersistentPreRunE before any command runs.
	appConfig *config.Config
	logger    *log.Logger
	buildID   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "regorus-builder",
	Short: "Build typed celine-regorus wheels from upstream regorus releases",
	Long: `regorus-builder tracks microsoft/regorus releases, builds the Python
bindings with maturin and repackages every wheel with a .pyi stub, a
py.typed marker and a package initializer.

Configuration is read from .regorus-builder/config.yml and REGORUS_BUILDER_*
environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("Command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .regorus-builder/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress bars")
}

func setup(cmd *cobra.Command, args []string) error {
	buildID = uuid.NewString()
	logger = newLogger(cmd.Name(), verbose)

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	appConfig, err = config.NewLoader(wd, opts...).Load()
	if err != nil {
		return err
	}

	logger.Debug("Configuration loaded", "repo", appConfig.Upstream.Repo, "package", appConfig.Package.PypiName, "build_id", buildID)
	return nil
}

func newLogger(prefix string, verbose bool) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return l
}
