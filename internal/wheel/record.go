package wheel

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// RecordName is the manifest file inside the dist-info directory.
const RecordName = "RECORD"

const digestPrefix = "sha256="

// RecordRow is one line of a wheel RECORD file.
// The RECORD file's own row leaves Digest and Size empty.
type RecordRow struct {
	Path   string
	Digest string
	Size   string
}

// Unsigned reports whether the row carries no digest, as the RECORD self-row does.
func (r RecordRow) Unsigned() bool {
	return r.Digest == "" && r.Size == ""
}

// HashRow builds the signed row for a file at path holding data.
func HashRow(path string, data []byte) RecordRow {
	return RecordRow{
		Path:   path,
		Digest: Digest(data),
		Size:   strconv.Itoa(len(data)),
	}
}

// Digest returns "sha256=" followed by the unpadded url-safe base64 of the hash.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return digestPrefix + base64.RawURLEncoding.EncodeToString(sum[:])
}

// WriteRecord serializes rows as headerless CSV, one row per line.
func WriteRecord(w io.Writer, rows []RecordRow) error {
	cw := csv.NewWriter(w)
	for _, r := range rows {
		if err := cw.Write([]string{r.Path, r.Digest, r.Size}); err != nil {
			return fmt.Errorf("write record row %s: %w", r.Path, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecord parses a RECORD file. Every row must have exactly three fields.
func ReadRecord(r io.Reader) ([]RecordRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse RECORD: %w", ErrRecordMismatch, err)
	}

	rows := make([]RecordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, RecordRow{Path: rec[0], Digest: rec[1], Size: rec[2]})
	}
	return rows, nil
}
