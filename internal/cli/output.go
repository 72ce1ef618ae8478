package cli

import (
	"fmt"
	"os"
	"strings"
)

// githubOutputEnv names the file GitHub Actions reads step outputs from.
const githubOutputEnv = "GITHUB_OUTPUT"

// output is one key=value step output.
type output struct {
	Key   string
	Value string
}

// writeOutputs appends outputs to path in GitHub Actions format. An empty
// path means not running under Actions and is a no-op.
func writeOutputs(path string, outputs ...output) error {
	if path == "" {
		return nil
	}

	var b strings.Builder
	for _, o := range outputs {
		if strings.ContainsAny(o.Value, "\r\n") {
			return fmt.Errorf("output %s: multi-line values are not supported", o.Key)
		}
		fmt.Fprintf(&b, "%s=%s\n", o.Key, o.Value)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", githubOutputEnv, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", githubOutputEnv, err)
	}
	return f.Close()
}

// buildOutputs are the outputs shared by check, prepare and build.
func buildOutputs(shouldBuild bool, tag, version string) []output {
	return []output{
		{Key: "should_build", Value: fmt.Sprintf("%t", shouldBuild)},
		{Key: "tag", Value: tag},
		{Key: "version", Value: version},
		{Key: "build_id", Value: buildID},
	}
}
