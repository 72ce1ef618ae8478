package build

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Toolchain compiles the Python bindings into wheels under
// <dir>/target/wheels.
type Toolchain interface {
	Build(ctx context.Context, dir, rustTarget string) error
}

// Maturin runs `maturin build --release`.
type Maturin struct {
	// Binary defaults to "maturin" on PATH.
	Binary string

	Stdout io.Writer
	Stderr io.Writer
}

// Args returns the maturin command line for rustTarget.
func (m Maturin) Args(rustTarget string) []string {
	args := []string{"build", "--release"}
	if rustTarget != "" {
		args = append(args, "--target", rustTarget)
	}
	return args
}

func (m Maturin) Build(ctx context.Context, dir, rustTarget string) error {
	bin := m.Binary
	if bin == "" {
		bin = "maturin"
	}

	cmd := exec.CommandContext(ctx, bin, m.Args(rustTarget)...)
	cmd.Dir = dir
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s build failed: %w", bin, err)
	}
	return nil
}
