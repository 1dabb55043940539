package remotefetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteCreatesAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	store := NewFileStore(path)

	require.NoError(t, store.Write([]byte("first: a much longer value")))
	require.NoError(t, store.Write([]byte("second: b")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second: b", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreWriteEmptyBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	store := NewFileStore(path)

	require.NoError(t, store.Write(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileStoreWriteFollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.yml")
	link := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(target, []byte("old: value"), 0644))
	require.NoError(t, os.Symlink(target, link))

	require.NoError(t, NewFileStore(link).Write([]byte("new: value")))

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link must survive the write")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new: value", string(data))
}

func TestFileStoreWriteKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("old: value"), 0600))
	require.NoError(t, os.Chmod(path, 0600))

	require.NoError(t, NewFileStore(path).Write([]byte("new: value")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreLoadFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	store := NewFileStore(path)

	data, ok, err := store.LoadFallback()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.NoFileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("test: testvalue"), 0644))

	data, ok, err = store.LoadFallback()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "test: testvalue", string(data))
}

func TestFileStoreLoadFallbackUnreadable(t *testing.T) {
	// a directory at the target path exists but cannot be read as a file
	path := t.TempDir()
	store := NewFileStore(path)

	_, ok, err := store.LoadFallback()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestFileStoreDisabled(t *testing.T) {
	store := NewFileStore("")

	assert.False(t, store.Enabled())
	assert.NoError(t, store.Write([]byte("ignored")))

	data, ok, err := store.LoadFallback()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
