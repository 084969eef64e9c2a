package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"", "-wal", "-shm"}

// DiskUsageBytes returns the bytes used on disk by a SQLite registry at dbPath, including
// its WAL and shared-memory files, plus every file under blobDirs. Empty or missing paths
// count as zero.
func DiskUsageBytes(dbPath string, blobDirs ...string) (int64, error) {
	var total int64
	if dbPath != "" {
		for _, suffix := range sqliteSidecars {
			info, err := os.Stat(dbPath + suffix)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return 0, err
			}
			total += info.Size()
		}
	}
	for _, dir := range blobDirs {
		if dir == "" {
			continue
		}
		n, err := treeSize(dir)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// treeSize sums regular files under root. A missing root is empty.
func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
