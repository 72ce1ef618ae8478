package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/celine/regorus-builder/internal/stubgen"
)

// StubOrigin says where a stub came from.
type StubOrigin string

const (
	// StubCheckedIn is a hand-maintained <stub_dir>/<tag>.pyi.
	StubCheckedIn StubOrigin = "checked-in"

	// StubGenerated was rendered from the upstream Rust source.
	StubGenerated StubOrigin = "generated"
)

// StubSource picks the stub injected into the wheels of one tag.
type StubSource struct {
	// Dir holds checked-in stubs named <tag>.pyi.
	Dir string

	// Options drive generation when no checked-in stub exists.
	Options stubgen.Options
}

// Stub is the selected stub and the file it came from.
type Stub struct {
	Data   []byte
	Path   string
	Origin StubOrigin
}

// Select prefers Dir/<tag>.pyi and otherwise generates from sourceFile.
// It fails with stubgen.ErrSourceUnavailable when neither can be read.
func (s StubSource) Select(tag, sourceFile string) (Stub, error) {
	if s.Dir != "" {
		path := filepath.Join(s.Dir, tag+".pyi")
		data, err := os.ReadFile(path)
		if err == nil {
			return Stub{Data: data, Path: path, Origin: StubCheckedIn}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Stub{}, fmt.Errorf("failed to read stub %s: %w", path, err)
		}
	}

	decls, err := stubgen.ExtractFile(sourceFile, s.Options)
	if err != nil {
		return Stub{}, fmt.Errorf("no stub for %s and cannot generate one: %w", tag, err)
	}
	return Stub{
		Data:   stubgen.Render(decls, s.Options),
		Path:   sourceFile,
		Origin: StubGenerated,
	}, nil
}
