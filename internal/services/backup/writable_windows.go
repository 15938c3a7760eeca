//go:build windows

package backup

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// checkWritable probes the directory with a temporary file since access(2) has no
// meaningful equivalent for ACL based permissions.
func checkWritable(dir string) error {
	attrs, err := windows.GetFileAttributes(windows.StringToUTF16Ptr(dir))
	if err != nil {
		return err
	}
	if attrs&windows.FILE_ATTRIBUTE_READONLY != 0 {
		return windows.ERROR_WRITE_PROTECT
	}

	f, err := os.CreateTemp(dir, ".backuprat-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
