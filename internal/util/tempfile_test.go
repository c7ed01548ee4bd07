package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempDirAndCleanup(t *testing.T) {
	base := t.TempDir()
	td, err := CreateTempDir(base, "wandarr")
	require.NoError(t, err)
	assert.DirExists(t, td.Path())
	require.NoError(t, td.Cleanup())
	assert.NoDirExists(t, td.Path())
}

func TestCreateTempFileAndCleanup(t *testing.T) {
	base := t.TempDir()
	tf, err := CreateTempFile(base, "job", "log")
	require.NoError(t, err)
	assert.FileExists(t, tf.path)
	require.NoError(t, tf.Cleanup())
	assert.NoFileExists(t, tf.path)
}

func TestCreateTempFilePathDoesNotCreateFile(t *testing.T) {
	base := t.TempDir()
	path, err := CreateTempFilePath(base, "job", "tmp")
	require.NoError(t, err)
	assert.NoFileExists(t, path)
	assert.Equal(t, base, filepath.Dir(path))
}

func TestEnsureDirectoryWritableRejectsMissingDir(t *testing.T) {
	err := EnsureDirectoryWritable(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEncoderLogPathIsUniquePerCall(t *testing.T) {
	p1, err := EncoderLogPath("/tmp", "worker-1")
	require.NoError(t, err)
	p2, err := EncoderLogPath("/tmp", "worker-1")
	require.NoError(t, err)
	assert.Contains(t, p1, "wandarr-worker-1-")
	assert.NotEqual(t, p1, p2)
}

func TestCleanupStaleTempFilesRemovesOldOnes(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "job_abcd1234.tmp")
	fresh := filepath.Join(dir, "job_ef567890.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	n, err := CleanupStaleTempFiles(dir, "job", 24)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}
