package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/versions"
)

var (
	checkTagFlag   string
	checkForceFlag bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Decide whether the upstream tag still needs a build",
	Long: `Check compares the newest upstream regorus tag (or --tag) with the
latest version published on PyPI.

A build is needed when nothing is published yet or the tag is newer than the
published version. --force always builds. Under GitHub Actions the decision
is written to $GITHUB_OUTPUT as should_build, tag, version and build_id.

Examples:
  regorus-builder check
  regorus-builder check --tag regorus-v0.5.0
`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkTagFlag, "tag", "", "upstream tag (default: latest release)")
	checkCmd.Flags().BoolVar(&checkForceFlag, "force", false, "always report a build as needed")
}

// checkResult is the outcome of a build decision.
type checkResult struct {
	Tag         string
	Version     string // upstream X.Y.Z of Tag
	Published   string // "" when never published
	ShouldBuild bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	res, err := decide(ctx, newGitHubClient(appConfig), newPyPIClient(appConfig),
		appConfig.Package.PypiName, checkTagFlag, checkForceFlag, logger)
	if err != nil {
		return err
	}

	printCheck(cmd.OutOrStdout(), res)
	return writeOutputs(os.Getenv(githubOutputEnv), buildOutputs(res.ShouldBuild, res.Tag, res.Version)...)
}

// decide resolves the tag and compares it with the published version.
func decide(ctx context.Context, tags tagResolver, index versionLookup, pkg, tag string, force bool, logger *log.Logger) (*checkResult, error) {
	tag, err := resolveTag(ctx, tags, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to determine upstream tag: %w", err)
	}
	version, err := versions.TagToVersion(tag)
	if err != nil {
		return nil, err
	}

	published, err := index.LatestVersion(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to query published version: %w", err)
	}

	res := &checkResult{Tag: tag, Version: version, Published: published}
	switch {
	case force:
		logger.Info("Forced build", "tag", tag)
		res.ShouldBuild = true
	case published == "":
		logger.Info("Package not published yet, build needed", "package", pkg)
		res.ShouldBuild = true
	case versions.NeedsBuild(tag, published):
		logger.Info("New upstream version", "tag", tag, "published", published)
		res.ShouldBuild = true
	default:
		logger.Info("Published version is up to date", "version", published)
	}
	return res, nil
}

func printCheck(w io.Writer, res *checkResult) {
	published := res.Published
	if published == "" {
		published = "(none)"
	}
	fmt.Fprintf(w, "Upstream tag:  %s (%s)\n", res.Tag, res.Version)
	fmt.Fprintf(w, "Published:     %s\n", published)
	fmt.Fprintf(w, "Build needed:  %t\n", res.ShouldBuild)
}
