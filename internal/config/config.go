// Package config loads regorus-builder settings from
// .regorus-builder/config.yml with REGORUS_BUILDER_* environment overrides.
package config

import "time"

// Config is the complete builder configuration.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	Package  PackageConfig  `yaml:"package" mapstructure:"package"`
	Build    BuildConfig    `yaml:"build" mapstructure:"build"`
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
	PyPI     PyPIConfig     `yaml:"pypi" mapstructure:"pypi"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
}

// UpstreamConfig locates the Rust project and its Python bindings.
type UpstreamConfig struct {
	Repo        string `yaml:"repo" mapstructure:"repo"`                 // owner/name on GitHub
	BindingsDir string `yaml:"bindings_dir" mapstructure:"bindings_dir"` // relative to the clone root
	SourceFile  string `yaml:"source_file" mapstructure:"source_file"`   // relative to bindings_dir
}

// PackageConfig is the published identity of the wheel.
type PackageConfig struct {
	PypiName   string `yaml:"pypi_name" mapstructure:"pypi_name"`     // distribution name on PyPI
	ModuleName string `yaml:"module_name" mapstructure:"module_name"` // import name, also the package dir in the wheel
	TypeName   string `yaml:"type_name" mapstructure:"type_name"`     // exposed pyclass
	Readme     string `yaml:"readme" mapstructure:"readme"`           // shipped as README.md when present
	StubDir    string `yaml:"stub_dir" mapstructure:"stub_dir"`       // checked-in <tag>.pyi files
}

// BuildConfig controls compilation.
type BuildConfig struct {
	OutputDir  string `yaml:"output_dir" mapstructure:"output_dir"`
	PrepareDir string `yaml:"prepare_dir" mapstructure:"prepare_dir"`
	RustTarget string `yaml:"rust_target" mapstructure:"rust_target"` // empty builds for the host
	Maturin    string `yaml:"maturin" mapstructure:"maturin"`         // maturin binary
	PostTS     string `yaml:"post_ts" mapstructure:"post_ts"`         // fixed YYYYmmddHHMMSS for forced builds
}

// GitHubConfig configures the release lookup.
type GitHubConfig struct {
	APIURL string `yaml:"api_url" mapstructure:"api_url"`
	Token  string `yaml:"token" mapstructure:"token"`
}

// PyPIConfig configures the published-version lookup.
type PyPIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HTTPConfig applies to both remote lookups.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			Repo:        "microsoft/regorus",
			BindingsDir: "bindings/python",
			SourceFile:  "src/lib.rs",
		},
		Package: PackageConfig{
			PypiName:   "celine-regorus",
			ModuleName: "regorus",
			TypeName:   "Engine",
			Readme:     "stubs/README.dist.md",
			StubDir:    "stubs",
		},
		Build: BuildConfig{
			OutputDir:  "dist",
			PrepareDir: "/tmp/regorus-src",
			Maturin:    "maturin",
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		PyPI: PyPIConfig{
			BaseURL: "https://pypi.org",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
	}
}
