package fsops

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/EnvReset/pkg/prompt"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func autoConfirm() *prompt.Confirmer {
	return prompt.NewWithStreams(strings.NewReader(""), io.Discard, true)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestCleanEmptiesFolderButKeepsIt(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "file.txt"), "data")
	writeFile(t, filepath.Join(folder, "sub", "nested.txt"), "data")

	NewCleaner([]string{folder}, autoConfirm(), testLogger()).Clean()

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanSkipsMissingFolder(t *testing.T) {
	existing := t.TempDir()
	writeFile(t, filepath.Join(existing, "file.txt"), "data")
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	NewCleaner([]string{missing, existing}, autoConfirm(), testLogger()).Clean()

	entries, err := os.ReadDir(existing)
	require.NoError(t, err)
	assert.Empty(t, entries, "a missing folder must not stop the others")
	assert.NoDirExists(t, missing)
}

func TestCleanDeclinedLeavesFoldersAlone(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "file.txt"), "data")

	decline := prompt.NewWithStreams(strings.NewReader("n\n"), io.Discard, false)
	NewCleaner([]string{folder}, decline, testLogger()).Clean()

	assert.FileExists(t, filepath.Join(folder, "file.txt"))
}

func TestCopyFilePreservesContentsAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0640))

	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestCopyFileOverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("old contents, longer"), 0600))

	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCopyTreeCopiesNestedStructure(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(src, "sub", "deeper", "c.txt"), "c")

	require.NoError(t, CopyTree(src, dst))

	for _, rel := range []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"} {
		assert.FileExists(t, filepath.Join(dst, filepath.FromSlash(rel)))
	}
}

func TestCopyTreeMissingSourceFails(t *testing.T) {
	err := CopyTree(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
}
