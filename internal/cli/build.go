package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/build"
	"github.com/celine/regorus-builder/internal/config"
)

var (
	buildTagFlag        string
	buildForceFlag      bool
	buildDryRunFlag     bool
	buildRustTargetFlag string
	buildPostTSFlag     string
	buildOutputDirFlag  string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Clone, compile and repackage typed wheels",
	Long: `Build clones the upstream tag, patches pyproject.toml for the PyPI
package, runs maturin and injects the .pyi stub into every wheel.

The stub is taken from <stub_dir>/<tag>.pyi when checked in, otherwise it is
generated from the bindings' Rust source. Nothing is built when PyPI is
already up to date, unless --force is given. Forced builds get a
.postYYYYmmddHHMMSS version; pass --post-ts to share one stamp across
platform jobs.

Examples:
  regorus-builder build
  regorus-builder build --tag regorus-v0.5.0 --rust-target aarch64-apple-darwin
  regorus-builder build --force --post-ts 20250102030405
`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildTagFlag, "tag", "", "upstream tag (default: latest release)")
	buildCmd.Flags().BoolVar(&buildForceFlag, "force", false, "build even when PyPI is up to date")
	buildCmd.Flags().BoolVar(&buildDryRunFlag, "dry-run", false, "log what would be built and stop")
	buildCmd.Flags().StringVar(&buildRustTargetFlag, "rust-target", "", "Rust target triple passed to maturin")
	buildCmd.Flags().StringVar(&buildPostTSFlag, "post-ts", "", "fixed post-release timestamp (YYYYmmddHHMMSS)")
	buildCmd.Flags().StringVar(&buildOutputDirFlag, "output-dir", "", "wheel output directory (default: build.output_dir)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runLog := logger.With("build_id", buildID)

	res, err := decide(ctx, newGitHubClient(appConfig), newPyPIClient(appConfig),
		appConfig.Package.PypiName, buildTagFlag, buildForceFlag, runLog)
	if err != nil {
		return err
	}
	if !res.ShouldBuild {
		runLog.Info("No build needed")
		return nil
	}

	cfg := builderConfig(appConfig)
	cfg.Force = buildForceFlag
	cfg.DryRun = buildDryRunFlag
	cfg.PublishedVersion = res.Published
	if buildRustTargetFlag != "" {
		cfg.RustTarget = buildRustTargetFlag
	}
	if buildPostTSFlag != "" {
		cfg.PostTS = buildPostTSFlag
	}
	outDir := appConfig.Build.OutputDir
	if buildOutputDirFlag != "" {
		outDir = buildOutputDirFlag
	}

	b := build.New(cfg,
		build.WithLogger(runLog),
		build.WithToolchain(build.Maturin{Binary: appConfig.Build.Maturin, Stdout: os.Stderr, Stderr: os.Stderr}),
		build.WithProgress(newProgressReporter(cmd.ErrOrStderr(), quiet)),
	)
	result, err := b.Build(ctx, res.Tag, outDir)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if result.DryRun {
		return nil
	}

	out := cmd.OutOrStdout()
	for _, w := range result.Wheels {
		fmt.Fprintln(out, w)
	}
	runLog.Info("Build completed", "version", result.Version, "count", len(result.Wheels), "stub", string(result.StubOrigin))
	return writeOutputs(os.Getenv(githubOutputEnv), buildOutputs(true, res.Tag, res.Version)...)
}

// builderConfig maps the loaded configuration onto a build.Config.
func builderConfig(cfg *config.Config) build.Config {
	return build.Config{
		Repo:        cfg.Upstream.Repo,
		BindingsDir: cfg.Upstream.BindingsDir,
		SourceFile:  cfg.Upstream.SourceFile,
		PypiName:    cfg.Package.PypiName,
		ModuleName:  cfg.Package.ModuleName,
		TypeName:    cfg.Package.TypeName,
		Readme:      cfg.Package.Readme,
		StubDir:     cfg.Package.StubDir,
		RustTarget:  cfg.Build.RustTarget,
		PostTS:      cfg.Build.PostTS,
	}
}
