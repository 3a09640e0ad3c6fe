//go:build linux

package btrfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckMountpoint verifies that path is a mounted btrfs filesystem.
func CheckMountpoint(path string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	if uint32(stat.Type) != uint32(unix.BTRFS_SUPER_MAGIC) {
		return fmt.Errorf("%s is not a btrfs filesystem (magic %#x)", path, uint32(stat.Type))
	}
	return nil
}
