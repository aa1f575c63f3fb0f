// Package fsops implements the filesystem sides of a reset: emptying
// configured folders and copying files and trees with metadata preserved.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/EnvReset/pkg/prompt"
)

// Cleaner empties the contents of configured folders, leaving the folders
// themselves in place.
type Cleaner struct {
	folders []string
	confirm *prompt.Confirmer
	log     *logrus.Logger
}

// NewCleaner returns a Cleaner for the given folder list.
func NewCleaner(folders []string, confirm *prompt.Confirmer, log *logrus.Logger) *Cleaner {
	return &Cleaner{
		folders: folders,
		confirm: confirm,
		log:     log,
	}
}

// Clean removes every direct child of each configured folder. One
// confirmation covers the whole batch. Missing folders are skipped and one
// folder's failure does not stop the others.
func (c *Cleaner) Clean() {
	if len(c.folders) == 0 {
		return
	}

	if !c.confirm.Confirm(fmt.Sprintf("the contents of these folders will be removed: %s", strings.Join(c.folders, ", "))) {
		c.log.Info("operation cancelled by user")
		return
	}

	for _, folder := range c.folders {
		c.cleanFolder(folder)
	}
}

func (c *Cleaner) cleanFolder(folder string) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Warnf("folder does not exist: %s", folder)
		} else {
			c.log.Errorf("failed to clean %s: %v", folder, err)
		}
		return
	}

	for _, entry := range entries {
		path := filepath.Join(folder, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			c.log.Errorf("failed to remove %s: %v", path, err)
			continue
		}
		if entry.IsDir() {
			c.log.Infof("removed directory: %s", path)
		} else {
			c.log.Infof("removed file: %s", path)
		}
	}

	c.log.Infof("folder %s cleaned", folder)
}
