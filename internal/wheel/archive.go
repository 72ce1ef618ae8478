package wheel

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FixedZipTime is stamped on every rebuilt entry so identical inputs give
// identical archives (1980-01-01 UTC, the zip epoch).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// unpack extracts every entry of archivePath below dest.
func unpack(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if zr != nil {
			zr.Close()
		}
		return ioFailure("open archive", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := extractEntry(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	name := filepath.FromSlash(strings.TrimSuffix(f.Name, "/"))
	if !filepath.IsLocal(name) {
		return ioFailure("extract", fmt.Errorf("entry %q escapes archive root", f.Name))
	}
	target := filepath.Join(dest, name)

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return ioFailure("extract", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ioFailure("extract", err)
	}

	rc, err := f.Open()
	if err != nil {
		return ioFailure("extract "+f.Name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm() | 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return ioFailure("extract", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return ioFailure("extract "+f.Name, err)
	}
	if err := out.Close(); err != nil {
		return ioFailure("extract", err)
	}
	return nil
}

// walkFiles lists regular files below root as slash-separated relative
// paths in sorted order.
func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ioFailure("walk workspace", err)
	}
	sort.Strings(files)
	return files, nil
}

// pack writes files (relative to root) into a new archive at dst.
func pack(root string, files []string, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return ioFailure("create archive", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = ioFailure("close archive", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, rel := range files {
		if err := addFile(zw, root, rel); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return ioFailure("finish archive", err)
	}
	return nil
}

func addFile(zw *zip.Writer, root, rel string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return ioFailure("stat", err)
	}

	h := &zip.FileHeader{Name: rel, Method: zip.Deflate}
	if info.Mode()&0o111 != 0 {
		h.SetMode(0o755)
	} else {
		h.SetMode(0o644)
	}
	h.Modified = FixedZipTime

	w, err := zw.CreateHeader(h)
	if err != nil {
		return ioFailure("create "+rel, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return ioFailure("open", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return ioFailure("write "+rel, err)
	}
	return nil
}
