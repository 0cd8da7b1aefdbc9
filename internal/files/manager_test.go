package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstupcli/internal/config"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	return NewManager(&config.Paths{OutputDir: dir}, nil), dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewManager(t *testing.T) {
	paths := &config.Paths{OutputDir: "/test/data"}
	manager := NewManager(paths, nil)
	require.NotNil(t, manager)
	assert.Equal(t, paths, manager.paths)
	assert.NotNil(t, manager.logger)
}

func TestWriteAtomic_NotVisibleUntilCommit(t *testing.T) {
	manager, dir := newTestManager(t)

	require.NoError(t, manager.WriteAtomic("grouped.json", []byte(`[]`)))

	assert.False(t, manager.FileExists("grouped.json"))
	assert.Equal(t, []string{filepath.Join(dir, "grouped.json")}, manager.Pending())
	assert.Len(t, listDir(t, dir), 1, "only the temp file exists")

	require.NoError(t, manager.Commit())

	content, err := os.ReadFile(filepath.Join(dir, "grouped.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(content))
	assert.Empty(t, manager.Pending())
	assert.Equal(t, []string{"grouped.json"}, listDir(t, dir))

	info, err := os.Stat(filepath.Join(dir, "grouped.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(config.DefaultFilePerm), info.Mode().Perm()&os.FileMode(config.DefaultFilePerm))
}

func TestCommit_ReplacesExistingFile(t *testing.T) {
	manager, dir := newTestManager(t)
	dest := filepath.Join(dir, "subjects.json")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	require.NoError(t, manager.WriteAtomic(dest, []byte("new")))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(content), "destination untouched before commit")

	require.NoError(t, manager.Commit())

	content, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.Equal(t, []string{"subjects.json"}, listDir(t, dir), "backups are removed")
}

func TestCommit_MultipleFiles(t *testing.T) {
	manager, dir := newTestManager(t)

	require.NoError(t, manager.WriteAtomic("a.json", []byte("a")))
	require.NoError(t, manager.WriteAtomic("nested/b.json", []byte("b")))
	require.NoError(t, manager.Commit())

	assert.True(t, manager.FileExists("a.json"))
	assert.True(t, manager.FileExists(filepath.Join(dir, "nested", "b.json")))
}

func TestRollback_RemovesTempFiles(t *testing.T) {
	manager, dir := newTestManager(t)

	require.NoError(t, manager.WriteAtomic("a.json", []byte("a")))
	require.NoError(t, manager.WriteAtomic("b.json", []byte("b")))
	manager.Rollback()

	assert.Empty(t, listDir(t, dir))
	assert.Empty(t, manager.Pending())

	// commit after rollback publishes nothing
	require.NoError(t, manager.Commit())
	assert.Empty(t, listDir(t, dir))
}

func TestCommit_FailureCleansUp(t *testing.T) {
	manager, dir := newTestManager(t)

	require.NoError(t, manager.WriteAtomic("a.json", []byte("a")))
	// a directory at the destination makes the rename fail
	blocked := filepath.Join(dir, "b.json")
	require.NoError(t, os.Mkdir(blocked, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), []byte("x"), 0644))
	require.NoError(t, manager.WriteAtomic("b.json", []byte("b")))

	err := manager.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.json")

	assert.Equal(t, []string{"b.json"}, listDir(t, dir), "a.json is unpublished and temp files are removed")
	assert.Empty(t, manager.Pending())
}

func TestCommit_FailureRestoresPreviousFiles(t *testing.T) {
	manager, dir := newTestManager(t)
	grouped := filepath.Join(dir, "grouped.json")
	subjects := filepath.Join(dir, "subjects.json")
	require.NoError(t, os.WriteFile(grouped, []byte("old grouped"), 0644))
	require.NoError(t, os.WriteFile(subjects, []byte("old subjects"), 0644))

	require.NoError(t, manager.WriteAtomic(grouped, []byte("new grouped")))
	require.NoError(t, manager.WriteAtomic(subjects, []byte("new subjects")))
	require.NoError(t, manager.WriteAtomic("extra.csv", []byte("csv")))
	// the last destination cannot be replaced
	blocked := filepath.Join(dir, "extra.csv")
	require.NoError(t, os.Mkdir(blocked, 0755))

	require.Error(t, manager.Commit())

	content, err := os.ReadFile(grouped)
	require.NoError(t, err)
	assert.Equal(t, "old grouped", string(content))
	content, err = os.ReadFile(subjects)
	require.NoError(t, err)
	assert.Equal(t, "old subjects", string(content))
	assert.ElementsMatch(t, []string{"grouped.json", "subjects.json", "extra.csv"}, listDir(t, dir),
		"no backups or temp files remain")
}

func TestMoveAside(t *testing.T) {
	manager, dir := newTestManager(t)
	dest := filepath.Join(dir, "grouped.json")

	backup, err := manager.moveAside(dest)
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to move when the destination is absent")

	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))
	backup, err = manager.moveAside(dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".grouped.json.bak"), backup)
	assert.NoFileExists(t, dest)
	assert.FileExists(t, backup)
}

func TestResolvePath(t *testing.T) {
	manager := NewManager(&config.Paths{OutputDir: "/out"}, nil)

	assert.Equal(t, filepath.Join("/out", "x.json"), manager.resolvePath("x.json"))
	assert.Equal(t, "/abs/y.json", manager.resolvePath("/abs/y.json"))

	bare := NewManager(nil, nil)
	assert.Equal(t, "rel.json", bare.resolvePath("rel.json"))
}
