package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/build"
	"github.com/celine/regorus-builder/internal/wheel"
)

var (
	injectStubFlag    string
	injectVerifyFlag  bool
	injectPackageFlag string
	injectTypeFlag    string
)

// injectCmd represents the inject command
var injectCmd = &cobra.Command{
	Use:   "inject <wheel>...",
	Short: "Add a .pyi stub, py.typed and __init__.py to existing wheels",
	Long: `Inject rewrites each wheel in place: the stub, a py.typed marker and a
package initializer are written into the package directory and RECORD is
regenerated. Wheels are processed one at a time under a per-file lock.

Examples:
  regorus-builder inject dist/*.whl --stub stubs/regorus-v0.5.0.pyi
  regorus-builder inject dist/*.whl --stub regorus.pyi --verify
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)
	injectCmd.Flags().StringVar(&injectStubFlag, "stub", "", "stub file to inject (required)")
	injectCmd.Flags().BoolVar(&injectVerifyFlag, "verify", false, "re-check RECORD after rewriting")
	injectCmd.Flags().StringVar(&injectPackageFlag, "package", "", "package directory in the wheel (default: package.module_name)")
	injectCmd.Flags().StringVar(&injectTypeFlag, "type", "", "class re-exported by __init__.py (default: package.type_name)")
	_ = injectCmd.MarkFlagRequired("stub")
}

func runInject(cmd *cobra.Command, args []string) error {
	stub, err := os.ReadFile(injectStubFlag)
	if err != nil {
		return fmt.Errorf("failed to read stub: %w", err)
	}

	opts := wheel.Options{Package: appConfig.Package.ModuleName, TypeName: appConfig.Package.TypeName}
	if injectPackageFlag != "" {
		opts.Package = injectPackageFlag
	}
	if injectTypeFlag != "" {
		opts.TypeName = injectTypeFlag
	}

	progress := newProgressReporter(cmd.ErrOrStderr(), quiet)
	if err := build.InjectWheels(args, stub, opts, injectVerifyFlag, progress); err != nil {
		if errors.Is(err, wheel.ErrArchiveBusy) {
			logger.Warn("Another process is rewriting the wheel; retry when it finishes")
		}
		return err
	}
	logger.Info("Injected stub", "count", len(args), "stub", injectStubFlag)
	return nil
}
