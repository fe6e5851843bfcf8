//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package inode

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// _PC_LINK_MAX on darwin and the BSDs
const pcLinkMax = 1

// MaxNlinks returns the hardlink ceiling of the filesystem holding path.
func MaxNlinks(path string) (uint64, error) {
	val, err := unix.Pathconf(path, pcLinkMax)
	if err != nil {
		return 0, fmt.Errorf("pathconf %s: %w", path, err)
	}

	if val <= 0 {
		return 0, fmt.Errorf("pathconf %s: indeterminate link limit", path)
	}

	return uint64(val), nil
}
