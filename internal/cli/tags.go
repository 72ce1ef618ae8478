package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagsLimitFlag int

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List upstream semver tags, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := newGitHubClient(appConfig).ListTags(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		if tagsLimitFlag > 0 && len(tags) > tagsLimitFlag {
			tags = tags[:tagsLimitFlag]
		}
		out := cmd.OutOrStdout()
		for _, t := range tags {
			fmt.Fprintln(out, t)
		}
		logger.Debug("Listed tags", "count", len(tags))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().IntVarP(&tagsLimitFlag, "limit", "n", 0, "show at most n tags (0 for all)")
}
