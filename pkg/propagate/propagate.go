// Package propagate re-populates cleaned folders from their paired source
// folders.
package propagate

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/EnvReset/pkg/config"
	"github.com/supporttools/EnvReset/pkg/fsops"
	"github.com/supporttools/EnvReset/pkg/runas"
)

// Propagator copies the contents of each source folder into its paired
// destination after the destination has been cleaned. With a copy user
// configured, every filesystem mutation is delegated to that user via sudo.
type Propagator struct {
	folders config.FolderSettings
	log     *logrus.Logger
}

// New returns a Propagator for the given folder settings.
func New(folders config.FolderSettings, log *logrus.Logger) *Propagator {
	return &Propagator{
		folders: folders,
		log:     log,
	}
}

// Run processes every source/destination pair in order. A length mismatch
// between the two lists aborts the whole step; every other precondition
// failure skips just its pair.
func (p *Propagator) Run() {
	sources := p.folders.CopySources
	destinations := p.folders.CopyDestinations

	if len(sources) == 0 || len(destinations) == 0 {
		p.log.Info("no folders configured for copying")
		return
	}

	if len(sources) != len(destinations) {
		p.log.Error("copy_sources and copy_destinations differ in length, skipping the copy step")
		return
	}

	cleanSet := make(map[string]struct{}, len(p.folders.Clean))
	for _, folder := range p.folders.Clean {
		cleanSet[folder] = struct{}{}
	}

	for i, src := range sources {
		dst := destinations[i]

		if _, ok := cleanSet[dst]; !ok {
			p.log.Warnf("destination folder %s was not in the clean list, skipping", dst)
			continue
		}

		p.copyPair(src, dst)
	}
}

func (p *Propagator) copyPair(src, dst string) {
	info, err := os.Stat(src)
	if err != nil {
		p.log.Warnf("source folder does not exist: %s", src)
		return
	}
	if !info.IsDir() {
		p.log.Warnf("source %s is not a folder, skipping", src)
		return
	}

	if _, err := os.Stat(dst); os.IsNotExist(err) {
		p.log.Infof("creating destination folder: %s", dst)
		if p.folders.CopyUser != "" {
			if _, err := runas.Run(p.folders.CopyUser, "mkdir", "-p", dst); err != nil {
				p.log.Errorf("failed to create destination folder: %v", err)
				return
			}
		} else if err := os.MkdirAll(dst, 0755); err != nil {
			p.log.Errorf("failed to create destination folder %s: %v", dst, err)
			return
		}
	}

	p.log.Infof("copying %s -> %s", src, dst)

	entries, err := os.ReadDir(src)
	if err != nil {
		p.log.Errorf("failed to read source folder %s: %v", src, err)
		return
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		var err error
		if p.folders.CopyUser != "" {
			err = p.copyAsUser(srcPath, dstPath, entry.IsDir())
		} else {
			err = copyDirect(srcPath, dstPath, entry.IsDir())
		}
		if err != nil {
			p.log.Errorf("failed to copy %s: %v", entry.Name(), err)
			continue
		}

		p.log.Infof("  copied %s", entry.Name())
	}

	p.log.Infof("copy into %s finished", dst)
}

// copyAsUser delegates the copy to the configured user. Directories go
// through rsync to keep permissions; single files through cp -p.
func (p *Propagator) copyAsUser(src, dst string, isDir bool) error {
	if isDir {
		_, err := runas.Run(p.folders.CopyUser, "rsync", "-ar", src+"/", dst+"/")
		return err
	}
	_, err := runas.Run(p.folders.CopyUser, "cp", "-p", src, dst)
	return err
}

// copyDirect copies in-process. A pre-existing destination directory of the
// same name is replaced wholesale; files are overwritten in place.
func copyDirect(src, dst string, isDir bool) error {
	if isDir {
		if _, err := os.Stat(dst); err == nil {
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		}
		return fsops.CopyTree(src, dst)
	}
	return fsops.CopyFile(src, dst)
}
