package wheel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockPath returns the advisory lock file guarding archivePath. It lives in
// the temp dir so wheel directories only ever hold wheels.
func LockPath(archivePath string) string {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		abs = archivePath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "regorus-builder-"+hex.EncodeToString(sum[:6])+".lock")
}

// Lock takes a non-blocking exclusive lock on archivePath. It returns
// ErrArchiveBusy if another process already holds it.
func Lock(archivePath string) (unlock func() error, err error) {
	fl := flock.New(LockPath(archivePath))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrArchiveBusy, archivePath)
	}
	return fl.Unlock, nil
}
