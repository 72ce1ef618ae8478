package wheel

// Test Plan for Inject:
// - Injected stub, py.typed and __init__.py land in the package directory
// - Every RECORD row matches a fresh hash of its member (Verify passes)
// - RECORD's own row is unsigned
// - Re-injecting the same stub yields byte-identical injected entries and archive
// - A missing package directory fails with ErrPackageLayoutMismatch and leaves
//   the original archive byte-for-byte unchanged
// - Zero or two dist-info directories fail with ErrManifestDirMismatch
// - Entries escaping the archive root are rejected as I/O failures
// - A missing archive is an I/O failure that still matches fs.ErrNotExist
// - A wheel without a RECORD file gets one with the self-row appended

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStub = "from __future__ import annotations\n\nclass Engine:\n    ...\n"

func baseEntries() map[string]string {
	return map[string]string{
		"regorus/regorus.cpython-312-x86_64-linux-gnu.so": "\x7fELF native",
		"regorus-0.5.0.dist-info/METADATA":                "Name: celine-regorus\nVersion: 0.5.0\n",
		"regorus-0.5.0.dist-info/WHEEL":                   "Wheel-Version: 1.0\n",
		"regorus-0.5.0.dist-info/RECORD":                  "stale,,\n",
	}
}

// writeWheel creates a zip at dir/name holding entries, in map order.
func writeWheel(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for path, content := range entries {
		w, err := zw.Create(path)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func readWheel(t *testing.T, path string) map[string][]byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = data
	}
	return out
}

func TestInject_RoundTrip(t *testing.T) {
	t.Parallel()

	path := writeWheel(t, t.TempDir(), "regorus-0.5.0-cp312-linux_x86_64.whl", baseEntries())

	require.NoError(t, Inject(path, []byte(testStub), DefaultOptions()))

	members := readWheel(t, path)
	assert.Equal(t, testStub, string(members["regorus/regorus.pyi"]))
	assert.Empty(t, members["regorus/py.typed"])
	assert.Contains(t, members, "regorus/py.typed")
	assert.Equal(t, string(InitModule(DefaultOptions())), string(members["regorus/__init__.py"]))
	assert.Equal(t, "\x7fELF native", string(members["regorus/regorus.cpython-312-x86_64-linux-gnu.so"]))

	rows, err := ReadRecord(bytes.NewReader(members["regorus-0.5.0.dist-info/RECORD"]))
	require.NoError(t, err)
	require.Len(t, rows, len(members))

	for _, row := range rows {
		if row.Path == "regorus-0.5.0.dist-info/RECORD" {
			assert.True(t, row.Unsigned())
			continue
		}
		assert.Equal(t, HashRow(row.Path, members[row.Path]), row, row.Path)
	}

	assert.NoError(t, Verify(path))
	assert.NoFileExists(t, path+tmpSuffix)
}

func TestInject_Idempotent(t *testing.T) {
	t.Parallel()

	path := writeWheel(t, t.TempDir(), "w.whl", baseEntries())

	require.NoError(t, Inject(path, []byte(testStub), DefaultOptions()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	firstMembers := readWheel(t, path)

	require.NoError(t, Inject(path, []byte(testStub), DefaultOptions()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	secondMembers := readWheel(t, path)

	for _, name := range []string{"regorus/regorus.pyi", "regorus/py.typed", "regorus/__init__.py"} {
		assert.Equal(t, firstMembers[name], secondMembers[name], name)
	}
	assert.Equal(t, first, second)
}

func TestInject_MissingPackageLeavesArchiveUntouched(t *testing.T) {
	t.Parallel()

	entries := baseEntries()
	delete(entries, "regorus/regorus.cpython-312-x86_64-linux-gnu.so")
	entries["other/mod.py"] = "x = 1\n"

	path := writeWheel(t, t.TempDir(), "w.whl", entries)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Inject(path, []byte(testStub), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPackageLayoutMismatch))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, path+tmpSuffix)
}

func TestInject_PackageIsAFile(t *testing.T) {
	t.Parallel()

	entries := baseEntries()
	delete(entries, "regorus/regorus.cpython-312-x86_64-linux-gnu.so")
	entries["regorus"] = "not a dir"

	path := writeWheel(t, t.TempDir(), "w.whl", entries)
	err := Inject(path, []byte(testStub), DefaultOptions())
	assert.True(t, errors.Is(err, ErrPackageLayoutMismatch))
}

func TestInject_DistInfoCount(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		path := writeWheel(t, t.TempDir(), "w.whl", map[string]string{
			"regorus/regorus.so": "bin",
		})
		err := Inject(path, []byte(testStub), DefaultOptions())
		assert.True(t, errors.Is(err, ErrManifestDirMismatch))
	})

	t.Run("two", func(t *testing.T) {
		t.Parallel()
		entries := baseEntries()
		entries["extra-1.0.dist-info/METADATA"] = "Name: extra\n"
		path := writeWheel(t, t.TempDir(), "w.whl", entries)

		before, err := os.ReadFile(path)
		require.NoError(t, err)

		err = Inject(path, []byte(testStub), DefaultOptions())
		assert.True(t, errors.Is(err, ErrManifestDirMismatch))

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestInject_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	entries := baseEntries()
	entries["../escape.txt"] = "nope"
	path := writeWheel(t, t.TempDir(), "w.whl", entries)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Inject(path, []byte(testStub), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIOFailure))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInject_MissingArchive(t *testing.T) {
	t.Parallel()

	err := Inject(filepath.Join(t.TempDir(), "absent.whl"), []byte(testStub), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIOFailure))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestInject_CreatesMissingRecord(t *testing.T) {
	t.Parallel()

	entries := baseEntries()
	delete(entries, "regorus-0.5.0.dist-info/RECORD")
	path := writeWheel(t, t.TempDir(), "w.whl", entries)

	require.NoError(t, Inject(path, []byte(testStub), DefaultOptions()))

	members := readWheel(t, path)
	rows, err := ReadRecord(bytes.NewReader(members["regorus-0.5.0.dist-info/RECORD"]))
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "regorus-0.5.0.dist-info/RECORD", last.Path)
	assert.True(t, last.Unsigned())
	assert.NoError(t, Verify(path))
}

func TestInject_CustomPackage(t *testing.T) {
	t.Parallel()

	path := writeWheel(t, t.TempDir(), "w.whl", map[string]string{
		"policy/policy.so":            "bin",
		"policy-1.0.dist-info/RECORD": "",
	})
	opts := Options{Package: "policy", TypeName: "Policy"}
	require.NoError(t, Inject(path, []byte("stub"), opts))

	members := readWheel(t, path)
	assert.Equal(t, "stub", string(members["policy/policy.pyi"]))
	assert.Contains(t, string(members["policy/__init__.py"]), "Policy = _native.Policy")
}

func TestInitModule_Default(t *testing.T) {
	t.Parallel()

	want := "\nfrom __future__ import annotations\n\n" +
		"from . import regorus as _native  # the compiled extension\n\n" +
		"# Re-export the API you want at top-level\n" +
		"Engine = _native.Engine\n\n" +
		"__all__ = [\"Engine\"]\n"
	assert.Equal(t, want, string(InitModule(Options{})))
}
