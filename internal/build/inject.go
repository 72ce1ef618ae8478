package build

import (
	"fmt"
	"time"

	"github.com/celine/regorus-builder/internal/wheel"
)

// InjectWheels rewrites each wheel with stub under its advisory lock. It
// stops at the first failure; wheels already rewritten stay rewritten.
// With verify set every rewritten wheel is re-read and its RECORD checked.
func InjectWheels(paths []string, stub []byte, opts wheel.Options, verify bool, progress ProgressReporter) error {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	start := time.Now()
	progress.OnInjectStart(len(paths))

	for _, p := range paths {
		if err := injectOne(p, stub, opts, verify); err != nil {
			return fmt.Errorf("failed to inject %s: %w", p, err)
		}
		progress.OnWheelInjected(p)
	}

	progress.OnInjectComplete(time.Since(start))
	return nil
}

func injectOne(path string, stub []byte, opts wheel.Options, verify bool) error {
	unlock, err := wheel.Lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := wheel.Inject(path, stub, opts); err != nil {
		return err
	}
	if verify {
		return wheel.Verify(path)
	}
	return nil
}
