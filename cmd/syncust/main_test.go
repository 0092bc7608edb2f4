package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/syncust/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helpers
// ============================================================================

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "ERROR"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// ============================================================================
// Commands
// ============================================================================

func TestCLI_InitAddStatus(t *testing.T) {
	root := t.TempDir()
	hello := filepath.Join(root, "hello.txt")
	require.NoError(t, os.WriteFile(hello, []byte("hi"), 0644))

	_, err := run(t, "init", root)
	require.NoError(t, err)

	out, err := run(t, "status", "-C", root)
	require.NoError(t, err)
	assert.Equal(t, "Paths Tracked: 0\nUntracked Paths:\n\thello.txt\n", out)

	_, err = run(t, "add", "-C", root, root)
	require.NoError(t, err)

	out, err = run(t, "status", "-C", root)
	require.NoError(t, err)
	assert.Equal(t, "Paths Tracked: 2\n", out)

	require.NoError(t, os.WriteFile(hello, []byte("bye"), 0644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(hello, later, later))

	out, err = run(t, "status", "-C", root, "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tracked_count": 2, "untracked_paths": [], "changed_paths": ["hello.txt"]}`, out)
}

func TestCLI_RelativePathsFollowRepositoryFlag(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0644))

	_, err := run(t, "init", root)
	require.NoError(t, err)

	// the test binary runs from the package directory, outside root
	_, err = run(t, "add", "-C", root, "sub")
	require.NoError(t, err)

	out, err := run(t, "status", "-C", root, "--output", "json", "sub")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tracked_count": 2, "untracked_paths": [], "changed_paths": []}`, out)

	out, err = run(t, "status", "-C", root, "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tracked_count": 2, "untracked_paths": ["b.txt"], "changed_paths": []}`, out)
}

func TestCLI_InitTwiceFails(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, "init", root)
	require.NoError(t, err)

	_, err = run(t, "init", root)
	assert.ErrorIs(t, err, repository.ErrAlreadyInitialized)
}

func TestCLI_StatusNotInitialized(t *testing.T) {
	_, err := run(t, "status", "-C", t.TempDir())
	assert.ErrorIs(t, err, repository.ErrNotInitialized)
}

func TestCLI_Clone(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))

	_, err := run(t, "init", src)
	require.NoError(t, err)
	_, err = run(t, "add", "-C", src)
	require.NoError(t, err)
	_, err = run(t, "intern", "-C", src)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "copy")
	_, err = run(t, "clone", src, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestCLI_UnsupportedCommands(t *testing.T) {
	for _, name := range []string{"remote", "sync", "get", "drop", "type"} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, name, "anything")
			assert.ErrorIs(t, err, repository.ErrNotSupported)
		})
	}
}

func TestCLI_UnknownOutputFormat(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, "init", root)
	require.NoError(t, err)

	_, err = run(t, "status", "-C", root, "--output", "xml")
	assert.Error(t, err)
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = run(t, "--config", path, "config", "init")
	assert.Error(t, err)

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestDefaultDestination(t *testing.T) {
	assert.Equal(t, "data", defaultDestination("/srv/data/"))
	assert.Equal(t, "data", defaultDestination("file:///srv/data"))
	assert.Equal(t, "repo", defaultDestination("alice@example.com:repo"))
}
