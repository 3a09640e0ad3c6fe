//go:build !linux

package btrfs

// CheckMountpoint is a no-op outside Linux; btrfs only exists there.
func CheckMountpoint(path string) error {
	return nil
}
