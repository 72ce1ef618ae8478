package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/build"
)

var (
	prepareTagFlag    string
	prepareForceFlag  bool
	preparePostTSFlag string
	prepareDirFlag    string
)

// prepareCmd represents the prepare command
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clone and patch the upstream bindings without compiling",
	Long: `Prepare clones the upstream tag into --dir and patches pyproject.toml,
leaving the bindings ready for an external builder such as maturin-action.

The bindings path is printed on stdout. An existing clone in --dir is
replaced.

Examples:
  regorus-builder prepare --dir /tmp/regorus-src
  regorus-builder prepare --tag regorus-v0.5.0 --force --post-ts 20250102030405
`,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVar(&prepareTagFlag, "tag", "", "upstream tag (default: latest release)")
	prepareCmd.Flags().BoolVar(&prepareForceFlag, "force", false, "stamp a post-release version")
	prepareCmd.Flags().StringVar(&preparePostTSFlag, "post-ts", "", "fixed post-release timestamp (YYYYmmddHHMMSS)")
	prepareCmd.Flags().StringVar(&prepareDirFlag, "dir", "", "clone destination (default: build.prepare_dir)")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runLog := logger.With("build_id", buildID)

	tag, err := resolveTag(ctx, newGitHubClient(appConfig), prepareTagFlag)
	if err != nil {
		return fmt.Errorf("failed to determine upstream tag: %w", err)
	}

	cfg := builderConfig(appConfig)
	cfg.Force = prepareForceFlag
	if preparePostTSFlag != "" {
		cfg.PostTS = preparePostTSFlag
	}
	if cfg.Force {
		published, err := newPyPIClient(appConfig).LatestVersion(ctx, cfg.PypiName)
		if err != nil {
			return fmt.Errorf("failed to query published version: %w", err)
		}
		cfg.PublishedVersion = published
	}

	dir := appConfig.Build.PrepareDir
	if prepareDirFlag != "" {
		dir = prepareDirFlag
	}

	prep, err := prepareSource(ctx, cfg, tag, dir, build.WithLogger(runLog))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), prep.BindingsDir)
	return writeOutputs(os.Getenv(githubOutputEnv), buildOutputs(true, prep.Tag, prep.Version)...)
}

// prepareSource clears any previous clone below dir and prepares tag there.
func prepareSource(ctx context.Context, cfg build.Config, tag, dir string, opts ...build.Option) (*build.Prepared, error) {
	if err := os.RemoveAll(filepath.Join(dir, cfg.ModuleName)); err != nil {
		return nil, fmt.Errorf("failed to clear previous clone: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return build.New(cfg, opts...).Prepare(ctx, tag, dir)
}
