package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/wheel"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <wheel>...",
	Short: "Check every wheel member against its RECORD entry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyWheels(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyWheels reports each wheel and returns the joined failures.
func verifyWheels(w io.Writer, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := wheel.Verify(p); err != nil {
			fmt.Fprintf(w, "✗ %s\n", p)
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", p)
	}
	return errors.Join(errs...)
}
