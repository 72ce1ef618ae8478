package build

// Test Plan for Builder:
// - Prepare clones the tag, patches pyproject.toml and copies the readme
// - Prepare fails with ErrBindingsNotFound when the bindings dir is absent
// - Build compiles, injects a generated stub and writes verified wheels to outDir
// - Build prefers a checked-in <tag>.pyi over generation
// - Build fails with ErrNoWheels when the toolchain produces nothing
// - DryRun never clones
// - Forced builds get a post-release version; a fixed stamp wins
// - StubSource fails with stubgen.ErrSourceUnavailable when nothing is available
// - Maturin.Args adds --target only when set

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celine/regorus-builder/internal/git"
	"github.com/celine/regorus-builder/internal/stubgen"
	"github.com/celine/regorus-builder/internal/wheel"
)

const testTag = "regorus-v0.5.0"

const libRS = `use pyo3::prelude::*;

#[pymethods]
impl Engine {
    #[new]
    pub fn new() -> Self {
        Self {}
    }

    pub fn add_policy(&mut self, path: String, rego: String) -> PyResult<String> {
        todo!()
    }
}
`

// fakeToolchain drops prebuilt wheels into <dir>/target/wheels.
type fakeToolchain struct {
	wheels  []string
	err     error
	targets []string
}

func (f *fakeToolchain) Build(ctx context.Context, dir, rustTarget string) error {
	f.targets = append(f.targets, rustTarget)
	if f.err != nil {
		return f.err
	}
	out := filepath.Join(dir, "target", "wheels")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, name := range f.wheels {
		if err := os.WriteFile(filepath.Join(out, name), rawWheel(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func rawWheel() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"regorus/regorus.abi3.so":                 "native",
		"celine_regorus-0.5.0.dist-info/METADATA": "Name: celine-regorus\n",
		"celine_regorus-0.5.0.dist-info/RECORD":   "",
	} {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(content))
	}
	_ = zw.Close()
	return buf.Bytes()
}

func testConfig() Config {
	return Config{
		Repo:        "microsoft/regorus",
		BindingsDir: "bindings/python",
		SourceFile:  "src/lib.rs",
		PypiName:    "celine-regorus",
		ModuleName:  "regorus",
		TypeName:    "Engine",
	}
}

func upstreamGit() *git.MockGitOps {
	m := git.NewMockGitOps()
	m.AddFile(testTag, "bindings/python/pyproject.toml", upstreamPyproject)
	m.AddFile(testTag, "bindings/python/src/lib.rs", libRS)
	return m
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	readme := filepath.Join(t.TempDir(), "README.dist.md")
	require.NoError(t, os.WriteFile(readme, []byte("# celine-regorus\n"), 0o644))

	cfg := testConfig()
	cfg.Readme = readme
	g := upstreamGit()
	b := New(cfg, WithGit(g))

	dir := t.TempDir()
	prep, err := b.Prepare(context.Background(), testTag, dir)
	require.NoError(t, err)

	assert.Equal(t, "0.5.0", prep.Version)
	assert.Equal(t, g.Commit, prep.Commit)
	assert.Equal(t, filepath.Join(dir, "regorus", "bindings", "python"), prep.BindingsDir)

	require.Len(t, g.Clones, 1)
	assert.Equal(t, "https://github.com/microsoft/regorus.git", g.Clones[0].URL)
	assert.Equal(t, testTag, g.Clones[0].Tag)

	pyproject, err := os.ReadFile(filepath.Join(prep.BindingsDir, "pyproject.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(pyproject), `name = "celine-regorus"`)
	assert.Contains(t, string(pyproject), `version = "0.5.0"`)
	assert.Contains(t, string(pyproject), `readme = "README.md"`)

	copied, err := os.ReadFile(filepath.Join(prep.BindingsDir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# celine-regorus\n", string(copied))
}

func TestPrepare_NoBindings(t *testing.T) {
	t.Parallel()

	g := git.NewMockGitOps()
	g.AddFile(testTag, "README.md", "upstream")

	_, err := New(testConfig(), WithGit(g)).Prepare(context.Background(), testTag, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBindingsNotFound))
}

func TestPrepare_BadTag(t *testing.T) {
	t.Parallel()

	g := upstreamGit()
	_, err := New(testConfig(), WithGit(g)).Prepare(context.Background(), "nightly", t.TempDir())
	require.Error(t, err)
	assert.Empty(t, g.Clones)
}

func TestBuild_GeneratedStub(t *testing.T) {
	t.Parallel()

	tc := &fakeToolchain{wheels: []string{
		"celine_regorus-0.5.0-cp38-abi3-manylinux_2_17_x86_64.whl",
		"celine_regorus-0.5.0-cp38-abi3-macosx_11_0_arm64.whl",
	}}
	cfg := testConfig()
	cfg.RustTarget = "aarch64-apple-darwin"
	b := New(cfg, WithGit(upstreamGit()), WithToolchain(tc))

	out := filepath.Join(t.TempDir(), "dist")
	res, err := b.Build(context.Background(), testTag, out)
	require.NoError(t, err)

	assert.Equal(t, "0.5.0", res.Version)
	assert.Equal(t, StubGenerated, res.StubOrigin)
	assert.Equal(t, []string{"aarch64-apple-darwin"}, tc.targets)
	require.Len(t, res.Wheels, 2)

	want := stubgen.Generate([]byte(libRS), stubgen.DefaultOptions())
	for _, w := range res.Wheels {
		assert.Equal(t, out, filepath.Dir(w))
		require.NoError(t, wheel.Verify(w))
		assert.Equal(t, string(want), readMember(t, w, "regorus/regorus.pyi"))
	}
}

func TestBuild_CheckedInStub(t *testing.T) {
	t.Parallel()

	stubDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stubDir, testTag+".pyi"), []byte("# curated\n"), 0o644))

	cfg := testConfig()
	cfg.StubDir = stubDir
	tc := &fakeToolchain{wheels: []string{"celine_regorus-0.5.0-cp38-abi3-win_amd64.whl"}}

	res, err := New(cfg, WithGit(upstreamGit()), WithToolchain(tc)).Build(context.Background(), testTag, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StubCheckedIn, res.StubOrigin)
	assert.Equal(t, "# curated\n", readMember(t, res.Wheels[0], "regorus/regorus.pyi"))
}

func TestBuild_NoWheels(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), WithGit(upstreamGit()), WithToolchain(&fakeToolchain{})).
		Build(context.Background(), testTag, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoWheels))
}

func TestBuild_ToolchainFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("linker exploded")
	_, err := New(testConfig(), WithGit(upstreamGit()), WithToolchain(&fakeToolchain{err: boom})).
		Build(context.Background(), testTag, t.TempDir())
	assert.True(t, errors.Is(err, boom))
}

func TestBuild_DryRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DryRun = true
	g := upstreamGit()

	res, err := New(cfg, WithGit(g)).Build(context.Background(), testTag, t.TempDir())
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Empty(t, g.Clones)
}

func TestVersion_Forced(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Force = true
	v, err := New(cfg, WithClock(fixedClock)).Version(testTag)
	require.NoError(t, err)
	assert.Equal(t, "0.5.0.post20250102030405", v)

	cfg.PostTS = "20240101000000"
	v, err = New(cfg, WithClock(fixedClock)).Version(testTag)
	require.NoError(t, err)
	assert.Equal(t, "0.5.0.post20240101000000", v)

	cfg.PostTS = ""
	cfg.PublishedVersion = "0.5.0.post20231111000000"
	v, err = New(cfg, WithClock(fixedClock)).Version(testTag)
	require.NoError(t, err)
	assert.Equal(t, "0.5.0.post20231111000000", v)
}

func TestStubSource_Unavailable(t *testing.T) {
	t.Parallel()

	_, err := StubSource{Dir: t.TempDir()}.Select(testTag, filepath.Join(t.TempDir(), "lib.rs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, stubgen.ErrSourceUnavailable))
}

func TestCollectWheels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.whl", "a.whl", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.whl"), 0o755))

	got, err := CollectWheels(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.whl"), filepath.Join(dir, "b.whl")}, got)

	_, err = CollectWheels(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrNoWheels))
}

func TestMaturinArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"build", "--release"}, Maturin{}.Args(""))
	assert.Equal(t, []string{"build", "--release", "--target", "x86_64-unknown-linux-musl"},
		Maturin{}.Args("x86_64-unknown-linux-musl"))
}

func readMember(t *testing.T, archive, name string) string {
	t.Helper()

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		return buf.String()
	}
	t.Fatalf("%s not found in %s", name, archive)
	return ""
}
