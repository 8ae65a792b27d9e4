package infrastructure

import (
	"os"
	"path/filepath"
)

// DiskSpaceChecker verifies free space on the download target before a
// session starts
type DiskSpaceChecker struct{}

// NewDiskSpaceChecker creates a checker
func NewDiskSpaceChecker() *DiskSpaceChecker {
	return &DiskSpaceChecker{}
}

// HasFreeSpace implements app.DiskChecker. A path that cannot be probed is
// treated as having space; the download itself will surface the real error.
func (c *DiskSpaceChecker) HasFreeSpace(path string, minFreeMB int64) bool {
	if path == "" {
		path = "."
	}
	// Walk up until an existing directory; the target may not exist yet.
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		parent := filepath.Dir(path)
		if parent == path {
			return true
		}
		path = parent
	}

	free, err := freeBytes(path)
	if err != nil {
		return true
	}
	return free >= minFreeMB*1024*1024
}
