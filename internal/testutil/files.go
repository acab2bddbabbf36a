package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func CreateFile(t *testing.T, path, content string) {
	t.Helper()
	createFileBytes(t, path, []byte(content), 0o644, false, time.Time{})
}

func CreateFileWithModTime(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	createFileBytes(t, path, []byte(content), 0o600, true, modTime)
}

func CreateFileBytesWithModTime(t *testing.T, path string, content []byte, modTime time.Time) {
	t.Helper()
	createFileBytes(t, path, content, 0o600, true, modTime)
}

func createFileBytes(t *testing.T, path string, content []byte, mode os.FileMode, setModTime bool, modTime time.Time) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(t, err)

	err = os.WriteFile(path, content, mode)
	require.NoError(t, err)

	if !setModTime {
		return
	}

	err = os.Chtimes(path, modTime, modTime)
	require.NoError(t, err)
}

// CreateTree writes files below root, keyed by slash-separated relative path.
func CreateTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		CreateFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// CreateHardlink links newname to an existing file.
func CreateHardlink(t *testing.T, oldname, newname string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(newname), 0o755)
	require.NoError(t, err)

	err = os.Link(oldname, newname)
	require.NoError(t, err)
}

// DuplicateDirsTree is a tree with two identical directories (b and c), a pair of
// one-byte duplicates and a pair of larger duplicates next to them.
var DuplicateDirsTree = map[string]string{
	"ax":  "x",
	"ay":  "x",
	"b/x": "yyy",
	"b/y": "yyy",
	"c/x": "yyy",
	"c/y": "yyy",
	"dx":  "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
	"dy":  "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
}

// CreateDuplicateDirsTree creates DuplicateDirsTree in a fresh temp dir and returns it.
func CreateDuplicateDirsTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	CreateTree(t, root, DuplicateDirsTree)
	return root
}
