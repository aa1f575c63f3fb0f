package fsops

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// CopyFile copies src to dst, overwriting dst in place. File mode and
// modification time are preserved.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s", src)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "failed to finish writing %s", dst)
	}

	// Re-apply the mode in case dst already existed with different bits.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "failed to set mode on %s", dst)
	}
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return errors.Wrapf(err, "failed to set times on %s", dst)
	}

	return nil
}

// CopyTree recursively copies the directory src to dst, creating dst if
// needed. Regular files and directories are copied; other entry types
// (sockets, device nodes) are skipped.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", src)
	}

	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", src)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := CopyTree(srcPath, dstPath); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if err := CopyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return os.Chtimes(dst, time.Now(), info.ModTime())
}
