package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/celine/regorus-builder/internal/diff"
	"github.com/celine/regorus-builder/internal/stubgen"
	"github.com/celine/regorus-builder/internal/watcher"
)

// ErrStubDrift is returned by stubgen --diff when the stubs differ.
var ErrStubDrift = errors.New("stub differs from generated output")

var stubgenFlags stubgenOptions

// stubgenCmd represents the stubgen command
var stubgenCmd = &cobra.Command{
	Use:   "stubgen <lib.rs>",
	Short: "Generate a .pyi stub from PyO3 bindings source",
	Long: `Stubgen scans the #[pymethods] impl of the exposed type in a Rust source
file and renders a Python type stub.

The stub goes to stdout unless --out is given. --diff compares the result
with an existing stub and fails when they differ. --audit cross-checks the
scanner against a full Rust parse and warns about methods it missed.
--watch regenerates --out whenever the source changes.

Examples:
  regorus-builder stubgen bindings/python/src/lib.rs --out regorus.pyi
  regorus-builder stubgen src/lib.rs --diff stubs/regorus-v0.5.0.pyi
  regorus-builder stubgen src/lib.rs --out regorus.pyi --watch
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := stubgenFlags
		opts.Source = args[0]
		if opts.TypeName == "" {
			opts.TypeName = appConfig.Package.TypeName
		}
		return runStubgen(cmd.Context(), opts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(stubgenCmd)
	stubgenCmd.Flags().StringVarP(&stubgenFlags.Out, "out", "o", "", "write the stub to this file")
	stubgenCmd.Flags().StringVar(&stubgenFlags.TypeName, "type", "", "exposed Rust type (default: package.type_name)")
	stubgenCmd.Flags().StringVar(&stubgenFlags.DiffAgainst, "diff", "", "compare with an existing stub")
	stubgenCmd.Flags().BoolVar(&stubgenFlags.Audit, "audit", false, "report methods the scanner missed")
	stubgenCmd.Flags().BoolVarP(&stubgenFlags.Watch, "watch", "w", false, "regenerate --out when the source changes")
}

type stubgenOptions struct {
	Source      string
	Out         string
	TypeName    string
	DiffAgainst string
	Audit       bool
	Watch       bool
}

func (o stubgenOptions) stubOptions() stubgen.Options {
	so := stubgen.DefaultOptions()
	if o.TypeName != "" {
		so.TypeName = o.TypeName
	}
	return so
}

func runStubgen(ctx context.Context, opts stubgenOptions, stdout io.Writer, logger *log.Logger) error {
	if opts.Watch && opts.Out == "" {
		return errors.New("--watch requires --out")
	}

	data, err := generateStub(opts, logger)
	if err != nil {
		return err
	}

	if opts.DiffAgainst != "" {
		return diffStub(opts.DiffAgainst, data, stdout, logger)
	}

	if err := emitStub(opts.Out, data, stdout); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watchStub(ctx, opts, logger)
}

func generateStub(opts stubgenOptions, logger *log.Logger) ([]byte, error) {
	so := opts.stubOptions()
	src, err := os.ReadFile(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stubgen.ErrSourceUnavailable, err)
	}

	decls := stubgen.Extract(src, so)
	logger.Debug("Extracted declarations", "path", opts.Source, "count", len(decls))

	if opts.Audit {
		findings, err := stubgen.Audit(src, so)
		if err != nil {
			return nil, fmt.Errorf("audit failed: %w", err)
		}
		for _, f := range findings {
			logger.Warn("Method not picked up by the scanner", "method", f.Name, "path", opts.Source, "line", f.Line)
		}
		if len(findings) == 0 {
			logger.Info("Audit clean", "path", opts.Source)
		}
	}

	return stubgen.Render(decls, so), nil
}

func diffStub(oldPath string, generated []byte, stdout io.Writer, logger *log.Logger) error {
	old, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", oldPath, err)
	}
	patch, err := diff.Unified(oldPath, "generated", old, generated, diff.DefaultContext)
	if err != nil {
		return fmt.Errorf("failed to diff: %w", err)
	}
	if patch == "" {
		logger.Info("Stub is up to date", "path", oldPath)
		return nil
	}
	fmt.Fprint(stdout, patch)
	return fmt.Errorf("%w: %s", ErrStubDrift, oldPath)
}

func emitStub(out string, data []byte, stdout io.Writer) error {
	if out == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stub: %w", err)
	}
	return nil
}

func watchStub(ctx context.Context, opts stubgenOptions, logger *log.Logger) error {
	fw, err := watcher.NewFileWatcher([]string{opts.Source}, watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.Source, err)
	}
	defer fw.Stop()

	regenerate := func(files []string) {
		data, err := generateStub(opts, logger)
		if err != nil {
			logger.Error("Regeneration failed", "error", err)
			return
		}
		if err := emitStub(opts.Out, data, nil); err != nil {
			logger.Error("Write failed", "error", err)
			return
		}
		logger.Info("Stub regenerated", "path", opts.Out)
	}
	if err := fw.Start(ctx, regenerate); err != nil {
		return err
	}

	logger.Info("Watching for changes", "path", opts.Source)
	<-ctx.Done()
	return nil
}
