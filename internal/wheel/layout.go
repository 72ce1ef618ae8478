package wheel

import (
	"fmt"
	"os"
	"sort"

	"github.com/gobwas/glob"
)

var distInfoGlob = glob.MustCompile("*.dist-info", '/')

// Layout names the two top-level directories Inject mutates, relative to the
// unpacked root.
type Layout struct {
	PackageDir  string
	DistInfoDir string
}

// RecordPath is the slash-separated path of the RECORD file.
func (l Layout) RecordPath() string {
	return l.DistInfoDir + "/" + RecordName
}

// probeLayout inspects the top level of an unpacked wheel.
func probeLayout(root, pkg string) (Layout, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Layout{}, ioFailure("read workspace", err)
	}

	var pkgDirs, distInfos []string
	for _, e := range entries {
		if e.Name() == pkg {
			pkgDirs = append(pkgDirs, e.Name())
			if !e.IsDir() {
				return Layout{}, fmt.Errorf("%w: %q is not a directory", ErrPackageLayoutMismatch, pkg)
			}
		}
		if e.IsDir() && distInfoGlob.Match(e.Name()) {
			distInfos = append(distInfos, e.Name())
		}
	}

	if len(pkgDirs) != 1 {
		return Layout{}, fmt.Errorf("%w: expected package dir %q, found %d", ErrPackageLayoutMismatch, pkg, len(pkgDirs))
	}
	if len(distInfos) != 1 {
		sort.Strings(distInfos)
		return Layout{}, fmt.Errorf("%w: expected 1 dist-info dir, found %v", ErrManifestDirMismatch, distInfos)
	}

	return Layout{PackageDir: pkgDirs[0], DistInfoDir: distInfos[0]}, nil
}
