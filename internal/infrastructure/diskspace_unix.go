//go:build !windows

package infrastructure

import "syscall"

// freeBytes returns the bytes available to an unprivileged caller on the
// filesystem holding path
func freeBytes(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
