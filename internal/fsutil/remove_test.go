package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("temp upload"), 0o644))

	require.NoError(t, RemoveFile(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveFile_Nonexistent(t *testing.T) {
	// Already-gone files are a success, not an error.
	assert.NoError(t, RemoveFile(filepath.Join(t.TempDir(), "never-existed.pdf")))
}

func TestRemovalDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, removalDelay(0))
	assert.Equal(t, 200*time.Millisecond, removalDelay(5<<20))
	assert.Equal(t, 500*time.Millisecond, removalDelay(50<<20))
	assert.Equal(t, time.Second, removalDelay(200<<20))
}
