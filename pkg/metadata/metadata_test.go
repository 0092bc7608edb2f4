package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("hi")
const hiSHA256 = "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestAlgorithmSum(t *testing.T) {
	t.Run("SHA256", func(t *testing.T) {
		sum, err := SHA256.Sum(strings.NewReader("hi"))
		require.NoError(t, err)
		assert.Equal(t, hiSHA256, sum)
		assert.NoError(t, SHA256.ValidateEncoded(sum))
	})

	t.Run("BLAKE3", func(t *testing.T) {
		sum, err := BLAKE3.Sum(strings.NewReader("hi"))
		require.NoError(t, err)
		assert.Len(t, sum, HexLength)
		assert.NotEqual(t, hiSHA256, sum)
		assert.NoError(t, BLAKE3.ValidateEncoded(sum))
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Algorithm("md5").Sum(strings.NewReader("hi"))
		assert.ErrorIs(t, err, ErrUnknownAlgorithm)
		assert.ErrorIs(t, Algorithm("md5").Validate(), ErrUnknownAlgorithm)
	})

	t.Run("RejectsShortDigest", func(t *testing.T) {
		assert.Error(t, SHA256.ValidateEncoded("abcd"))
		assert.Error(t, BLAKE3.ValidateEncoded("abcd"))
	})
}

func TestExtract_RegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	writeFile(t, path, "hi")

	rec, err := Extract(path, SHA256)
	require.NoError(t, err)

	assert.Equal(t, hiSHA256, rec.Hash)
	assert.True(t, rec.HasDigest())
	assert.True(t, rec.IsRegular())
	assert.False(t, rec.IsDir)
	assert.False(t, rec.IsSymlink)
	assert.Equal(t, uint64(2), rec.Length)
	assert.Equal(t, uint32(syscall.S_IFREG), rec.Permissions&syscall.S_IFMT)
	assert.Equal(t, os.FileMode(0644), rec.FileMode())

	info, err := os.Lstat(path)
	require.NoError(t, err)
	assert.True(t, rec.SameModified(info.ModTime()))
}

func TestExtract_Directory(t *testing.T) {
	dir := t.TempDir()

	rec, err := Extract(dir, SHA256)
	require.NoError(t, err)

	assert.True(t, rec.IsDir)
	assert.False(t, rec.HasDigest())
}

func TestExtract_SymlinkIsNotFollowed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	link := filepath.Join(dir, "link")
	writeFile(t, target, "hi")
	require.NoError(t, os.Symlink("target.txt", link))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, old, old))

	rec, err := Extract(link, SHA256)
	require.NoError(t, err)

	assert.True(t, rec.IsSymlink)
	assert.False(t, rec.HasDigest())
	assert.False(t, rec.SameModified(old), "modified must come from the link, not its target")
}

func TestExtract_Missing(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "nope"), SHA256)
	assert.Error(t, err)
}

func TestLive(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	writeFile(t, target, "hi")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("target.txt", link))

	isDir, sum, err := Live(link, SHA256)
	require.NoError(t, err)
	assert.False(t, isDir)
	assert.Equal(t, hiSHA256, sum)

	isDir, sum, err = Live(dir, SHA256)
	require.NoError(t, err)
	assert.True(t, isDir)
	assert.Empty(t, sum)

	require.NoError(t, os.Remove(target))
	_, _, err = Live(link, SHA256)
	assert.Error(t, err, "dangling link has no content")
}
