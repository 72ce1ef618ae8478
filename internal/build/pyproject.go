package build

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrPyprojectPatch is returned when the patched pyproject.toml does not
// carry the requested name, version or module name.
var ErrPyprojectPatch = errors.New("pyproject.toml patch did not apply")

// PatchOptions describes the packaging identity written into pyproject.toml.
type PatchOptions struct {
	// UpstreamName is the [project] name shipped upstream. Defaults to ModuleName.
	UpstreamName string

	// PypiName replaces UpstreamName.
	PypiName string

	// ModuleName is enforced as [tool.maturin] module-name.
	ModuleName string

	// Version is written as a static [project] version.
	Version string

	// Readme adds readme = "README.md" to [project] when none is declared.
	Readme bool
}

var (
	versionKeyRe    = regexp.MustCompile(`(?m)^[ \t]*version[ \t]*=`)
	versionLineRe   = regexp.MustCompile(`(?m)^[ \t]*version[ \t]*=[ \t]*"[^"]*"[ \t]*$`)
	dynamicRe       = regexp.MustCompile(`(?m)^[ \t]*dynamic[ \t]*=[ \t]*\[(.*?)\][ \t]*$`)
	maturinGluedRe  = regexp.MustCompile(`(?m)^\[tool\.maturin\](\S)`)
	maturinHeaderRe = regexp.MustCompile(`(?m)^\[tool\.maturin\][ \t]*$`)
	moduleKeyRe     = regexp.MustCompile(`(?m)^[ \t]*module-name[ \t]*=`)
	moduleLineRe    = regexp.MustCompile(`(?m)^[ \t]*module-name[ \t]*=[ \t]*"[^"]*"[ \t]*$`)
	projectHeaderRe = regexp.MustCompile(`(?m)^\[project\][ \t]*$`)
	readmeKeyRe     = regexp.MustCompile(`(?m)^[ \t]*readme[ \t]*=`)
)

// PatchPyproject rewrites the pyproject.toml at path in place and checks the
// result by parsing it.
func PatchPyproject(path string, opts PatchOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pyproject: %w", err)
	}

	patched := PatchPyprojectContent(string(data), opts)
	if err := verifyPyproject(patched, opts); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return fmt.Errorf("failed to write pyproject: %w", err)
	}
	return nil
}

// PatchPyprojectContent applies the textual edits without touching disk.
// Unrelated lines and comments are preserved byte for byte.
func PatchPyprojectContent(content string, opts PatchOptions) string {
	if opts.UpstreamName == "" {
		opts.UpstreamName = opts.ModuleName
	}
	nameLine := fmt.Sprintf("name = %q", opts.PypiName)
	versionLine := fmt.Sprintf("version = %q", opts.Version)
	moduleLine := fmt.Sprintf("module-name = %q", opts.ModuleName)

	upstreamNameRe := regexp.MustCompile(`(?m)^[ \t]*name[ \t]*=[ \t]*"` + regexp.QuoteMeta(opts.UpstreamName) + `"[ \t]*$`)
	content = upstreamNameRe.ReplaceAllLiteralString(content, nameLine)

	if versionKeyRe.MatchString(content) {
		content = versionLineRe.ReplaceAllLiteralString(content, versionLine)
	} else {
		pypiNameRe := regexp.MustCompile(`(?m)^[ \t]*name[ \t]*=[ \t]*"` + regexp.QuoteMeta(opts.PypiName) + `"[ \t]*$`)
		content = replaceFirst(pypiNameRe, content, nameLine+"\n"+versionLine)
	}

	content = dynamicRe.ReplaceAllStringFunc(content, func(line string) string {
		m := dynamicRe.FindStringSubmatch(line)
		var kept []string
		for _, item := range strings.Split(m[1], ",") {
			item = strings.TrimSpace(item)
			if strings.Trim(item, `"' `) == "version" {
				continue
			}
			kept = append(kept, item)
		}
		return "dynamic = [" + strings.Join(kept, ", ") + "]"
	})

	content = maturinGluedRe.ReplaceAllString(content, "[tool.maturin]\n${1}")

	if maturinHeaderRe.MatchString(content) {
		if moduleKeyRe.MatchString(content) {
			content = moduleLineRe.ReplaceAllLiteralString(content, moduleLine)
		} else {
			content = replaceFirst(maturinHeaderRe, content, "[tool.maturin]\n"+moduleLine)
		}
	} else {
		content = strings.TrimRight(content, " \t\r\n") + "\n\n[tool.maturin]\n" + moduleLine + "\n"
	}

	if opts.Readme && !readmeKeyRe.MatchString(content) {
		content = replaceFirst(projectHeaderRe, content, "[project]\nreadme = \"README.md\"")
	}

	return content
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

type pyproject struct {
	Project struct {
		Name    string   `toml:"name"`
		Version string   `toml:"version"`
		Dynamic []string `toml:"dynamic"`
	} `toml:"project"`
	Tool struct {
		Maturin struct {
			ModuleName string `toml:"module-name"`
		} `toml:"maturin"`
	} `toml:"tool"`
}

func verifyPyproject(content string, opts PatchOptions) error {
	var p pyproject
	if err := toml.Unmarshal([]byte(content), &p); err != nil {
		return fmt.Errorf("%w: patched file is not valid TOML: %w", ErrPyprojectPatch, err)
	}

	var errs []error
	if p.Project.Name != opts.PypiName {
		errs = append(errs, fmt.Errorf("%w: project.name is %q, want %q", ErrPyprojectPatch, p.Project.Name, opts.PypiName))
	}
	if p.Project.Version != opts.Version {
		errs = append(errs, fmt.Errorf("%w: project.version is %q, want %q", ErrPyprojectPatch, p.Project.Version, opts.Version))
	}
	if slices.Contains(p.Project.Dynamic, "version") {
		errs = append(errs, fmt.Errorf("%w: version is still dynamic", ErrPyprojectPatch))
	}
	if p.Tool.Maturin.ModuleName != opts.ModuleName {
		errs = append(errs, fmt.Errorf("%w: tool.maturin.module-name is %q, want %q", ErrPyprojectPatch, p.Tool.Maturin.ModuleName, opts.ModuleName))
	}
	return errors.Join(errs...)
}
