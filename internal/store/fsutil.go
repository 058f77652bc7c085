package store

import (
	"errors"
	"os"
	"path/filepath"
)

// writeFileAtomic writes b to path via a sibling .tmp file and rename, so
// readers in other processes never see a half-written blob.
func writeFileAtomic(path string, b []byte) error {
	path = filepath.Clean(path)
	if path == "" || path == "." {
		return errors.New("write file: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
