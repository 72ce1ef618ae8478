package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/celine/regorus-builder/internal/build"
)

// CLIProgressReporter shows wheel injection progress as a bar.
type CLIProgressReporter struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	total int
}

var _ build.ProgressReporter = (*CLIProgressReporter)(nil)

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

// newProgressReporter returns a bar reporter unless quiet is set.
func newProgressReporter(out io.Writer, quiet bool) build.ProgressReporter {
	if quiet {
		return &build.NoOpProgressReporter{}
	}
	return NewCLIProgressReporter(out)
}

func (c *CLIProgressReporter) OnInjectStart(total int) {
	c.total = total
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Injecting stubs"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnWheelInjected(path string) {
	if c.bar == nil {
		return
	}
	c.bar.Describe(filepath.Base(path))
	_ = c.bar.Add(1)
}

func (c *CLIProgressReporter) OnInjectComplete(duration time.Duration) {
	if c.bar != nil {
		_ = c.bar.Finish()
	}
	fmt.Fprintf(c.out, "✓ Injected %d wheel(s) in %.1fs\n", c.total, duration.Seconds())
}
