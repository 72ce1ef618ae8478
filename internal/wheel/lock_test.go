package wheel

// Test Plan for Lock:
// - A second lock on the same archive fails with ErrArchiveBusy until released
// - Different archives lock independently
// - LockPath is stable for a given path and lives outside the wheel directory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.whl")
	b := filepath.Join(dir, "b.whl")

	unlockA, err := Lock(a)
	require.NoError(t, err)

	_, err = Lock(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArchiveBusy))

	unlockB, err := Lock(b)
	require.NoError(t, err)
	require.NoError(t, unlockB())

	require.NoError(t, unlockA())

	unlockA, err = Lock(a)
	require.NoError(t, err)
	require.NoError(t, unlockA())
}

func TestLockPath(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "x.whl")
	assert.Equal(t, LockPath(p), LockPath(p))
	assert.NotEqual(t, LockPath(p), LockPath(p+"2"))
	assert.Equal(t, filepath.Clean(os.TempDir()), filepath.Dir(LockPath(p)))
}
