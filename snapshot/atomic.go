package snapshot

import (
	"os"
	"path/filepath"
)

// TempSuffix is appended to a target path to name its in-flight copy.
const TempSuffix = ".tmp"

// beforeRename runs between the temp file being synced and the rename. Tests
// replace it to simulate a crash at the commit point.
var beforeRename = func(tmp, path string) error { return nil }

// WriteFileAtomic writes data to path+TempSuffix, fsyncs it, renames it over
// path and fsyncs the parent directory. A crash before the rename leaves the
// old contents of path untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + TempSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := beforeRename(tmp, path); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
