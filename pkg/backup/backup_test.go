package backup

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/EnvReset/pkg/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestDisabledBackupCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupSettings{Enable: false, BackupDir: dir}

	path := NewManager(cfg, nil, testLogger()).Run([]string{t.TempDir()})

	assert.Empty(t, path)
	assert.NoDirExists(t, dir)
}

func TestBackupSnapshotsEachSourceOnce(t *testing.T) {
	srcA := filepath.Join(t.TempDir(), "uploads")
	writeFile(t, filepath.Join(srcA, "one.txt"), "one")
	writeFile(t, filepath.Join(srcA, "sub", "two.txt"), "two")

	srcB := filepath.Join(t.TempDir(), "cache")
	writeFile(t, filepath.Join(srcB, "three.txt"), "three")

	dir := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupSettings{Enable: true, BackupDir: dir}

	// srcA appears in both the clean list and the copy sources; it must be
	// snapshotted only once.
	path := NewManager(cfg, nil, testLogger()).Run([]string{srcA, srcB, srcA})

	require.Equal(t, dir, path)
	assert.FileExists(t, filepath.Join(dir, "uploads", "one.txt"))
	assert.FileExists(t, filepath.Join(dir, "uploads", "sub", "two.txt"))
	assert.FileExists(t, filepath.Join(dir, "cache", "three.txt"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBackupSkipsMissingSources(t *testing.T) {
	src := filepath.Join(t.TempDir(), "real")
	writeFile(t, filepath.Join(src, "file.txt"), "data")

	dir := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupSettings{Enable: true, BackupDir: dir}

	path := NewManager(cfg, nil, testLogger()).Run([]string{filepath.Join(t.TempDir(), "ghost"), src})

	require.Equal(t, dir, path)
	assert.FileExists(t, filepath.Join(dir, "real", "file.txt"))
}

func TestBackupSnapshotsSingleFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.conf")
	require.NoError(t, os.WriteFile(file, []byte("key=value"), 0644))

	dir := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupSettings{Enable: true, BackupDir: dir}

	path := NewManager(cfg, nil, testLogger()).Run([]string{file})

	require.Equal(t, dir, path)
	assert.FileExists(t, filepath.Join(dir, "app.conf"))
}

func TestBackupDefaultsToTimestampedTempDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeFile(t, filepath.Join(src, "file.txt"), "data")

	cfg := config.BackupSettings{Enable: true}

	path := NewManager(cfg, nil, testLogger()).Run([]string{src})
	require.NotEmpty(t, path)
	defer os.RemoveAll(path)

	assert.True(t, strings.HasPrefix(path, filepath.Join(os.TempDir(), "backup_")))
	assert.FileExists(t, filepath.Join(path, "data", "file.txt"))
}

type recordingUploader struct {
	roots []string
}

func (r *recordingUploader) UploadTree(root string) error {
	r.roots = append(r.roots, root)
	return nil
}

func TestBackupOffloadsFinishedSnapshot(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeFile(t, filepath.Join(src, "file.txt"), "data")

	dir := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupSettings{Enable: true, BackupDir: dir}

	uploader := &recordingUploader{}
	path := NewManager(cfg, uploader, testLogger()).Run([]string{src})

	require.Equal(t, dir, path)
	assert.Equal(t, []string{dir}, uploader.roots)
}

func TestDedupeKeepsFirstSeenOrder(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b", "/c"}, dedupe([]string{"/a", "/b", "/a", "/c", "/b"}))
	assert.Empty(t, dedupe(nil))
}
