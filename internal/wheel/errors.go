package wheel

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageLayoutMismatch means the archive has no single top-level
	// directory named after the native module.
	ErrPackageLayoutMismatch = errors.New("package layout mismatch")

	// ErrManifestDirMismatch means the archive does not hold exactly one
	// *.dist-info directory.
	ErrManifestDirMismatch = errors.New("manifest directory mismatch")

	// ErrIOFailure wraps every read, write or rename failure.
	ErrIOFailure = errors.New("wheel i/o failure")

	// ErrRecordMismatch is returned by Verify when RECORD and archive disagree.
	ErrRecordMismatch = errors.New("record mismatch")

	// ErrArchiveBusy is returned by Lock when another process holds the archive.
	ErrArchiveBusy = errors.New("archive is locked by another process")
)

// ioFailure tags err as ErrIOFailure while keeping it matchable.
func ioFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIOFailure, op, err)
}
