package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project configuration directory.
const DirName = ".regorus-builder"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REGORUS_BUILDER"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithConfigFile reads exactly this file instead of searching rootDir.
// A missing file is then an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) { l.configFile = path }
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{rootDir: rootDir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (REGORUS_BUILDER_*, plus GITHUB_TOKEN)
// 2. Config file (.regorus-builder/config.yml or .yaml, or --config)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., REGORUS_BUILDER_BUILD_RUST_TARGET)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"upstream.repo", "upstream.bindings_dir", "upstream.source_file",
		"package.pypi_name", "package.module_name", "package.type_name", "package.readme", "package.stub_dir",
		"build.output_dir", "build.prepare_dir", "build.rust_target", "build.maturin", "build.post_ts",
		"github.api_url", "pypi.base_url", "http.timeout",
	} {
		_ = v.BindEnv(key)
	}
	// The CI-provided token is honored without the prefix.
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("upstream.repo", d.Upstream.Repo)
	v.SetDefault("upstream.bindings_dir", d.Upstream.BindingsDir)
	v.SetDefault("upstream.source_file", d.Upstream.SourceFile)

	v.SetDefault("package.pypi_name", d.Package.PypiName)
	v.SetDefault("package.module_name", d.Package.ModuleName)
	v.SetDefault("package.type_name", d.Package.TypeName)
	v.SetDefault("package.readme", d.Package.Readme)
	v.SetDefault("package.stub_dir", d.Package.StubDir)

	v.SetDefault("build.output_dir", d.Build.OutputDir)
	v.SetDefault("build.prepare_dir", d.Build.PrepareDir)
	v.SetDefault("build.rust_target", d.Build.RustTarget)
	v.SetDefault("build.maturin", d.Build.Maturin)
	v.SetDefault("build.post_ts", d.Build.PostTS)

	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("pypi.base_url", d.PyPI.BaseURL)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}
