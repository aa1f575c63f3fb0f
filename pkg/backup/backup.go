// Package backup creates a pre-reset snapshot of every folder the reset is
// about to touch.
package backup

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/EnvReset/pkg/config"
	"github.com/supporttools/EnvReset/pkg/fsops"
)

// Uploader offloads a completed snapshot to remote storage.
type Uploader interface {
	UploadTree(root string) error
}

// Manager copies the reset's input folders into a snapshot directory before
// anything destructive runs.
type Manager struct {
	cfg      config.BackupSettings
	uploader Uploader // optional, nil when offload is disabled
	log      *logrus.Logger
}

// NewManager returns a Manager for the given backup settings.
func NewManager(cfg config.BackupSettings, uploader Uploader, log *logrus.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		uploader: uploader,
		log:      log,
	}
}

// Run snapshots every folder in sources under the backup root, each keyed by
// its base name. Duplicates are copied once, order preserved. It returns the
// resolved snapshot directory; an empty string means the backup failed
// entirely. Per-folder failures are only logged.
func (m *Manager) Run(sources []string) string {
	if !m.cfg.Enable {
		m.log.Info("backup is disabled in settings")
		return ""
	}

	dir := m.cfg.BackupDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "backup_"+time.Now().Format("20060102_150405"))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		m.log.Errorf("failed to create backup directory %s: %v", dir, err)
		return ""
	}

	m.log.Infof("creating backup in %s", dir)

	for _, src := range dedupe(sources) {
		info, err := os.Stat(src)
		if err != nil {
			if !os.IsNotExist(err) {
				m.log.Warnf("cannot back up %s: %v", src, err)
			}
			continue
		}

		target := filepath.Join(dir, filepath.Base(strings.TrimRight(src, "/")))

		if info.IsDir() {
			err = fsops.CopyTree(src, target)
		} else {
			err = fsops.CopyFile(src, target)
		}
		if err != nil {
			m.log.Errorf("failed to back up %s: %v", src, err)
			continue
		}

		m.log.Infof("backed up %s -> %s", src, target)
	}

	if files, size, err := treeStats(dir); err == nil {
		m.log.Infof("backup complete: %d files, %s", files, humanize.Bytes(uint64(size)))
	}

	if m.uploader != nil {
		if err := m.uploader.UploadTree(dir); err != nil {
			m.log.Errorf("snapshot offload failed: %v", err)
		}
	}

	return dir
}

// dedupe removes repeated paths, keeping first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func treeStats(root string) (files int, size int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size, err
}
