package wheel

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
)

// Verify checks that the RECORD of the wheel at archivePath lists every
// member with a matching digest and size, lists nothing else, and leaves its
// own row unsigned. All mismatches are reported together.
func Verify(archivePath string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return ioFailure("open archive", err)
	}
	defer zr.Close()

	members := make(map[string]*zip.File)
	var records []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members[f.Name] = f
		dir, base := path.Split(f.Name)
		if base == RecordName && distInfoGlob.Match(path.Clean(dir)) {
			records = append(records, f.Name)
		}
	}
	if len(records) != 1 {
		sort.Strings(records)
		return fmt.Errorf("%w: expected 1 RECORD, found %v", ErrManifestDirMismatch, records)
	}
	recordPath := records[0]

	data, err := readMember(members[recordPath])
	if err != nil {
		return err
	}
	rows, err := ReadRecord(bytes.NewReader(data))
	if err != nil {
		return err
	}

	var errs []error
	listed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if listed[row.Path] {
			errs = append(errs, fmt.Errorf("%w: %s listed twice", ErrRecordMismatch, row.Path))
			continue
		}
		listed[row.Path] = true

		if row.Path == recordPath {
			if !row.Unsigned() {
				errs = append(errs, fmt.Errorf("%w: %s must not carry a digest", ErrRecordMismatch, row.Path))
			}
			continue
		}

		f, ok := members[row.Path]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s listed but not in archive", ErrRecordMismatch, row.Path))
			continue
		}
		content, err := readMember(f)
		if err != nil {
			return err
		}
		if got := Digest(content); got != row.Digest {
			errs = append(errs, fmt.Errorf("%w: %s digest %s, RECORD says %s", ErrRecordMismatch, row.Path, got, row.Digest))
		}
		if got := strconv.Itoa(len(content)); got != row.Size {
			errs = append(errs, fmt.Errorf("%w: %s size %s, RECORD says %s", ErrRecordMismatch, row.Path, got, row.Size))
		}
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !listed[name] {
			errs = append(errs, fmt.Errorf("%w: %s missing from RECORD", ErrRecordMismatch, name))
		}
	}

	return errors.Join(errs...)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, ioFailure("open "+f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, ioFailure("read "+f.Name, err)
	}
	return data, nil
}
