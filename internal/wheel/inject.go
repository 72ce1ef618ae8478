// Package wheel rewrites built Python wheels in place: it adds a type stub,
// the PEP 561 py.typed marker and a package initializer, then regenerates
// RECORD and swaps the rebuilt archive over the original.
package wheel

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const (
	// MarkerName is the empty file announcing inline type information.
	MarkerName = "py.typed"

	// InitName is the package initializer.
	InitName = "__init__.py"

	tmpSuffix = ".tmp"
)

// Options names the package inside the wheel.
type Options struct {
	// Package is the top-level package directory and native module name.
	Package string

	// StubName is the stub file written into Package. Defaults to <Package>.pyi.
	StubName string

	// TypeName is the native class re-exported by the initializer.
	TypeName string
}

// DefaultOptions returns the layout of the regorus wheel.
func DefaultOptions() Options {
	return Options{Package: "regorus", TypeName: "Engine"}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Package == "" {
		o.Package = "regorus"
	}
	if o.StubName == "" {
		o.StubName = o.Package + ".pyi"
	}
	if o.TypeName == "" {
		o.TypeName = "Engine"
	}
	return o
}

// InitModule renders the __init__.py that re-exports the native type.
func InitModule(opts Options) []byte {
	opts = opts.withDefaults()
	var b bytes.Buffer
	b.WriteString("\nfrom __future__ import annotations\n\n")
	fmt.Fprintf(&b, "from . import %s as _native  # the compiled extension\n\n", opts.Package)
	b.WriteString("# Re-export the API you want at top-level\n")
	fmt.Fprintf(&b, "%s = _native.%s\n\n", opts.TypeName, opts.TypeName)
	fmt.Fprintf(&b, "__all__ = [%q]\n", opts.TypeName)
	return b.Bytes()
}

// Inject adds stub, py.typed and __init__.py to the package directory of the
// wheel at archivePath and rewrites RECORD. The archive is replaced only
// after the rebuilt copy is complete; on any error it is left untouched.
//
// Concurrent calls on the same path must be serialized by the caller (see Lock).
func Inject(archivePath string, stub []byte, opts Options) error {
	opts = opts.withDefaults()

	ws, err := os.MkdirTemp("", "regorus-wheel-*")
	if err != nil {
		return ioFailure("create workspace", err)
	}
	defer os.RemoveAll(ws)

	if err := unpack(archivePath, ws); err != nil {
		return err
	}

	layout, err := probeLayout(ws, opts.Package)
	if err != nil {
		return err
	}

	pkgDir := filepath.Join(ws, layout.PackageDir)
	injected := map[string][]byte{
		opts.StubName: stub,
		MarkerName:    nil,
		InitName:      InitModule(opts),
	}
	for name, data := range injected {
		if err := os.WriteFile(filepath.Join(pkgDir, name), data, 0o644); err != nil {
			return ioFailure("write "+name, err)
		}
	}

	if err := rewriteRecord(ws, layout); err != nil {
		return err
	}

	files, err := walkFiles(ws)
	if err != nil {
		return err
	}

	tmp := archivePath + tmpSuffix
	if err := pack(ws, files, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, archivePath); err != nil {
		os.Remove(tmp)
		return ioFailure("replace archive", err)
	}
	return nil
}

// BuildRecord hashes every file below root. The row for recordPath is left
// unsigned and appended if the file does not exist yet.
func BuildRecord(root string, recordPath string) ([]RecordRow, error) {
	files, err := walkFiles(root)
	if err != nil {
		return nil, err
	}

	rows := make([]RecordRow, 0, len(files)+1)
	for _, rel := range files {
		if rel == recordPath {
			rows = append(rows, RecordRow{Path: rel})
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, ioFailure("hash "+rel, err)
		}
		rows = append(rows, HashRow(rel, data))
	}
	if !slices.Contains(files, recordPath) {
		rows = append(rows, RecordRow{Path: recordPath})
	}
	return rows, nil
}

func rewriteRecord(root string, layout Layout) error {
	rows, err := BuildRecord(root, layout.RecordPath())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteRecord(&buf, rows); err != nil {
		return ioFailure("encode RECORD", err)
	}
	path := filepath.Join(root, filepath.FromSlash(layout.RecordPath()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return ioFailure("write RECORD", err)
	}
	return nil
}
