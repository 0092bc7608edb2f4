package status

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/syncust/pkg/ingest"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// Test Helpers
// ============================================================================

type fixture struct {
	root    string
	dataDir string
	idx     *index.Index
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, ".syncust")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	idx, err := index.Open(context.Background(), filepath.Join(dataDir, "index.badger"), index.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return &fixture{root: root, dataDir: dataDir, idx: idx}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) add(t *testing.T, paths ...string) {
	t.Helper()
	p := ingest.New(f.root, f.dataDir, index.NewLocked(f.idx), ingest.Options{Workers: 2})
	_, err := p.Run(context.Background(), paths)
	require.NoError(t, err)
}

func (f *fixture) scan(t *testing.T, targets ...string) *RepoStatus {
	t.Helper()
	st, err := New(f.root, f.dataDir, f.idx, metadata.SHA256).Scan(context.Background(), targets)
	require.NoError(t, err)
	return st
}

func touch(t *testing.T, path string) {
	t.Helper()
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
}

// ============================================================================
// Classification
// ============================================================================

func TestScan_Untracked(t *testing.T) {
	f := newFixture(t)
	f.write(t, "new.txt", "new")

	st := f.scan(t)
	assert.Equal(t, []string{"new.txt"}, st.Untracked)
	assert.Empty(t, st.Changed)
	assert.Zero(t, st.TrackedCount)
}

func TestScan_UnchangedIsClean(t *testing.T) {
	f := newFixture(t)
	f.write(t, "hello.txt", "hi")
	f.add(t, f.root)

	st := f.scan(t)
	assert.True(t, st.Clean())
	assert.Equal(t, uint64(2), st.TrackedCount)
}

func TestScan_TouchedSameContentIsClean(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "hello.txt", "hi")
	f.add(t, f.root)

	touch(t, path)

	st := f.scan(t)
	assert.Empty(t, st.Changed)
	assert.Empty(t, st.Untracked)
}

func TestScan_ModifiedContentIsChanged(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "hello.txt", "hi")
	f.add(t, f.root)

	require.NoError(t, os.WriteFile(path, []byte("bye"), 0644))
	touch(t, path)

	st := f.scan(t)
	assert.Equal(t, []string{"hello.txt"}, st.Changed)
	assert.Empty(t, st.Untracked)
}

func TestScan_FileReplacedByDirectory(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "thing", "file")
	f.add(t, path)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0755))
	touch(t, path)

	st := f.scan(t)
	assert.Contains(t, st.Changed, "thing")
}

func TestScan_SymlinkFollowedForRegularRecord(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "hello.txt", "hi")
	f.add(t, path)

	// Replace the file with a link to identical content, as interning does
	stored := f.write(t, "elsewhere/copy", "hi")
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Symlink(stored, path))

	st := f.scan(t, path)
	assert.Empty(t, st.Changed)
}

func TestScan_DanglingLinkIsChanged(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "hello.txt", "hi")
	f.add(t, path)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Symlink(filepath.Join(f.root, "gone"), path))

	st := f.scan(t, path)
	assert.Equal(t, []string{"hello.txt"}, st.Changed)
}

func TestScan_SkipsRootAndDataDir(t *testing.T) {
	f := newFixture(t)
	st := f.scan(t)

	assert.Empty(t, st.Untracked, "neither the root nor .syncust should be reported")
}

func TestScan_TrackedCountIsGlobal(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a/one.txt", "1")
	f.write(t, "b/two.txt", "2")
	f.add(t, f.root)

	st := f.scan(t, filepath.Join(f.root, "a"))
	assert.Equal(t, uint64(5), st.TrackedCount)
}

func TestScan_SortedAndDeduplicated(t *testing.T) {
	f := newFixture(t)
	f.write(t, "b.txt", "b")
	f.write(t, "a.txt", "a")

	st := f.scan(t, filepath.Join(f.root, "b.txt"), f.root)
	assert.Equal(t, []string{"a.txt", "b.txt"}, st.Untracked)
}

func TestScan_MissingTarget(t *testing.T) {
	f := newFixture(t)
	_, err := New(f.root, f.dataDir, f.idx, metadata.SHA256).Scan(context.Background(), []string{filepath.Join(f.root, "nope")})
	assert.Error(t, err)
}

// ============================================================================
// Rendering
// ============================================================================

func TestString(t *testing.T) {
	st := &RepoStatus{TrackedCount: 2}
	assert.Equal(t, "Paths Tracked: 2\n", st.String())

	st.Untracked = []string{"a", "b"}
	st.Changed = []string{"c"}
	assert.Equal(t, "Paths Tracked: 2\nUntracked Paths:\n\ta\n\tb\nChanged Paths:\n\tc\n", st.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &RepoStatus{TrackedCount: 1, Changed: []string{"x"}}, FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(1), got["tracked_count"])
	assert.Equal(t, []any{}, got["untracked_paths"])
	assert.Equal(t, []any{"x"}, got["changed_paths"])
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &RepoStatus{TrackedCount: 3, Untracked: []string{"u"}}, FormatYAML))

	var got RepoStatus
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, uint64(3), got.TrackedCount)
	assert.Equal(t, []string{"u"}, got.Untracked)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
