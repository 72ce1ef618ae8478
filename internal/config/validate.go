package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/celine/regorus-builder/internal/versions"
)

var (
	// ErrInvalidRepo indicates a repository that is not owner/name
	ErrInvalidRepo = errors.New("invalid upstream repository")

	// ErrEmptyField indicates a required setting is blank
	ErrEmptyField = errors.New("empty required field")

	// ErrInvalidIdentifier indicates a module or type name Python cannot import
	ErrInvalidIdentifier = errors.New("invalid python identifier")

	// ErrInvalidURL indicates an unusable API base URL
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidTimeout indicates a non-positive HTTP timeout
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPostTS indicates a post-release stamp not shaped YYYYmmddHHMMSS
	ErrInvalidPostTS = errors.New("invalid post-release timestamp")
)

var (
	repoRe       = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if !repoRe.MatchString(cfg.Upstream.Repo) {
		errs = append(errs, fmt.Errorf("%w: must be owner/name, got '%s'", ErrInvalidRepo, cfg.Upstream.Repo))
	}
	if strings.TrimSpace(cfg.Upstream.BindingsDir) == "" {
		errs = append(errs, fmt.Errorf("%w: upstream.bindings_dir is required", ErrEmptyField))
	}
	if strings.TrimSpace(cfg.Upstream.SourceFile) == "" {
		errs = append(errs, fmt.Errorf("%w: upstream.source_file is required", ErrEmptyField))
	}

	if strings.TrimSpace(cfg.Package.PypiName) == "" {
		errs = append(errs, fmt.Errorf("%w: package.pypi_name is required", ErrEmptyField))
	}
	if !identifierRe.MatchString(cfg.Package.ModuleName) {
		errs = append(errs, fmt.Errorf("%w: package.module_name '%s'", ErrInvalidIdentifier, cfg.Package.ModuleName))
	}
	if !identifierRe.MatchString(cfg.Package.TypeName) {
		errs = append(errs, fmt.Errorf("%w: package.type_name '%s'", ErrInvalidIdentifier, cfg.Package.TypeName))
	}

	if cfg.Build.PostTS != "" && !versions.ValidPostTimestamp(cfg.Build.PostTS) {
		errs = append(errs, fmt.Errorf("%w: build.post_ts must be YYYYmmddHHMMSS, got '%s'", ErrInvalidPostTS, cfg.Build.PostTS))
	}

	for key, raw := range map[string]string{"github.api_url": cfg.GitHub.APIURL, "pypi.base_url": cfg.PyPI.BaseURL} {
		if err := validateURL(key, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: http.timeout must be positive, got %s", ErrInvalidTimeout, cfg.HTTP.Timeout))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute URL, got '%s'", ErrInvalidURL, key, raw)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The individual errors stay matchable with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationErrors{errs: errs}
}

type validationErrors struct {
	errs []error
}

func (v *validationErrors) Error() string {
	msgs := make([]string, 0, len(v.errs))
	for _, err := range v.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (v *validationErrors) Unwrap() []error {
	return v.errs
}
