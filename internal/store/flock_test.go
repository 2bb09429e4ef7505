//go:build unix

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_BlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFileName)

	f1, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f1.Close()
	require.NoError(t, lockFile(f1))

	f2, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f2.Close()
	assert.Error(t, tryLockFile(f2))

	unlockFile(f1)
	require.NoError(t, tryLockFile(f2))
	unlockFile(f2)
}

func TestFileLock_ReleasedAfterIndexWrite(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), IndexFileName))
	require.NoError(t, ix.Associate(sumOf("a"), "a"))

	f, err := os.OpenFile(ix.Path(), os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tryLockFile(f))
	unlockFile(f)
}
