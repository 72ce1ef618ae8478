// Package build turns an upstream tag into typed wheels: clone, patch
// pyproject.toml, compile, then inject the stub into every wheel.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"

	"github.com/celine/regorus-builder/internal/git"
	"github.com/celine/regorus-builder/internal/stubgen"
	"github.com/celine/regorus-builder/internal/versions"
	"github.com/celine/regorus-builder/internal/wheel"
)

var (
	// ErrBindingsNotFound is returned when the clone has no Python bindings directory.
	ErrBindingsNotFound = errors.New("python bindings not found")

	// ErrNoWheels is returned when the toolchain produced nothing.
	ErrNoWheels = errors.New("no wheel files found after build")
)

var wheelGlob = glob.MustCompile("*.whl")

// Config is everything a build needs besides the tag.
type Config struct {
	Repo        string // owner/name
	BindingsDir string // relative to the clone root
	SourceFile  string // relative to BindingsDir

	PypiName   string
	ModuleName string
	TypeName   string

	// Readme is copied into the bindings as README.md when it exists.
	Readme  string
	StubDir string

	RustTarget string
	PostTS     string
	Force      bool
	DryRun     bool

	// PublishedVersion is the latest version on the index, used to reuse a
	// post-release stamp on forced rebuilds.
	PublishedVersion string
}

// Prepared is a cloned and patched source tree.
type Prepared struct {
	Tag         string
	Version     string
	Commit      string
	RepoDir     string
	BindingsDir string
}

// Result describes a finished build.
type Result struct {
	Tag        string
	Version    string
	Wheels     []string
	StubOrigin StubOrigin
	DryRun     bool
}

// Builder runs the clone/patch/compile/inject pipeline.
type Builder struct {
	cfg       Config
	git       git.Operations
	toolchain Toolchain
	logger    *log.Logger
	progress  ProgressReporter
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithGit replaces the git implementation.
func WithGit(ops git.Operations) Option {
	return func(b *Builder) { b.git = ops }
}

// WithToolchain replaces the wheel compiler.
func WithToolchain(tc Toolchain) Option {
	return func(b *Builder) { b.toolchain = tc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithProgress sets the injection progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(b *Builder) { b.progress = p }
}

// WithClock sets the time source used for post-release stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder. Without options it shells out to git and maturin
// and logs nowhere.
func New(cfg Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		git:       git.NewOperations(),
		toolchain: Maturin{Stdout: os.Stderr, Stderr: os.Stderr},
		logger:    log.New(io.Discard),
		progress:  &NoOpProgressReporter{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Version returns the version the tag will be published as.
func (b *Builder) Version(tag string) (string, error) {
	upstream, err := versions.TagToVersion(tag)
	if err != nil {
		return "", err
	}
	v := versions.EffectiveVersion(upstream, b.cfg.Force, b.cfg.PostTS, b.cfg.PublishedVersion, b.now())
	if v != upstream && v == b.cfg.PublishedVersion {
		b.logger.Info("Reusing existing post-release version", "version", v)
	}
	return v, nil
}

// Prepare clones tag into dir and patches the bindings for publishing.
func (b *Builder) Prepare(ctx context.Context, tag, dir string) (*Prepared, error) {
	version, err := b.Version(tag)
	if err != nil {
		return nil, err
	}

	repoDir := filepath.Join(dir, b.cfg.ModuleName)
	b.logger.Info("Cloning upstream", "repo", b.cfg.Repo, "tag", tag)
	if err := b.git.Clone(ctx, git.RepoURL(b.cfg.Repo), tag, repoDir); err != nil {
		return nil, err
	}
	commit, err := b.git.HeadCommit(ctx, repoDir)
	if err != nil {
		b.logger.Warn("Could not resolve HEAD", "error", err)
	}

	bindings := filepath.Join(repoDir, filepath.FromSlash(b.cfg.BindingsDir))
	if info, err := os.Stat(bindings); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w at %s", ErrBindingsNotFound, bindings)
	}

	readme := b.readmeAvailable()

	pyproject := filepath.Join(bindings, "pyproject.toml")
	if _, err := os.Stat(pyproject); err == nil {
		err := PatchPyproject(pyproject, PatchOptions{
			PypiName:   b.cfg.PypiName,
			ModuleName: b.cfg.ModuleName,
			Version:    version,
			Readme:     readme,
		})
		if err != nil {
			return nil, err
		}
		b.logger.Info("Updated pyproject.toml", "package", b.cfg.PypiName, "version", version)
	} else {
		b.logger.Warn("No pyproject.toml in bindings", "path", bindings)
	}

	if readme {
		if err := copyFile(b.cfg.Readme, filepath.Join(bindings, "README.md")); err != nil {
			return nil, err
		}
	}

	b.logger.Info("Source ready", "path", bindings)
	return &Prepared{
		Tag:         tag,
		Version:     version,
		Commit:      commit,
		RepoDir:     repoDir,
		BindingsDir: bindings,
	}, nil
}

// Build prepares tag in a scratch directory, compiles it and writes typed
// wheels into outDir.
func (b *Builder) Build(ctx context.Context, tag, outDir string) (*Result, error) {
	if b.cfg.DryRun {
		b.logger.Info("Dry run: would clone and build", "tag", tag, "output", outDir)
		return &Result{Tag: tag, DryRun: true}, nil
	}

	scratch, err := os.MkdirTemp("", "regorus-build-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create build dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	prep, err := b.Prepare(ctx, tag, scratch)
	if err != nil {
		return nil, err
	}

	if b.cfg.RustTarget != "" {
		b.logger.Info("Cross-compiling", "target", b.cfg.RustTarget)
	}
	b.logger.Info("Building wheels")
	if err := b.toolchain.Build(ctx, prep.BindingsDir, b.cfg.RustTarget); err != nil {
		return nil, err
	}

	built, err := CollectWheels(filepath.Join(prep.BindingsDir, "target", "wheels"))
	if err != nil {
		return nil, err
	}

	src := StubSource{
		Dir:     b.cfg.StubDir,
		Options: stubgen.Options{TypeName: b.cfg.TypeName, Docstring: stubgen.DefaultOptions().Docstring},
	}
	stub, err := src.Select(tag, filepath.Join(prep.BindingsDir, filepath.FromSlash(b.cfg.SourceFile)))
	if err != nil {
		return nil, err
	}
	if stub.Origin == StubGenerated {
		b.logger.Warn("No checked-in stub, generated from source", "tag", tag, "path", stub.Path)
	} else {
		b.logger.Info("Using checked-in stub", "path", stub.Path)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	dests := make([]string, 0, len(built))
	for _, w := range built {
		dest := filepath.Join(outDir, filepath.Base(w))
		if err := copyFile(w, dest); err != nil {
			return nil, err
		}
		dests = append(dests, dest)
	}

	opts := wheel.Options{Package: b.cfg.ModuleName, TypeName: b.cfg.TypeName}
	if err := InjectWheels(dests, stub.Data, opts, false, b.progress); err != nil {
		return nil, err
	}
	for _, d := range dests {
		b.logger.Info("Built typed wheel", "wheel", filepath.Base(d))
	}

	return &Result{
		Tag:        tag,
		Version:    prep.Version,
		Wheels:     dests,
		StubOrigin: stub.Origin,
	}, nil
}

func (b *Builder) readmeAvailable() bool {
	if b.cfg.Readme == "" {
		return false
	}
	info, err := os.Stat(b.cfg.Readme)
	return err == nil && !info.IsDir()
}

// CollectWheels lists *.whl files directly inside dir in name order.
func CollectWheels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var wheels []string
	for _, e := range entries {
		if !e.IsDir() && wheelGlob.Match(e.Name()) {
			wheels = append(wheels, filepath.Join(dir, e.Name()))
		}
	}
	if len(wheels) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoWheels, dir)
	}
	sort.Strings(wheels)
	return wheels, nil
}

// copyFile copies src to dst keeping the permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
