//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package inode

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Lstat returns the snapshot for path without following symlinks.
func Lstat(path string) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Stat{}, fmt.Errorf("lstat %s: %w", path, err)
	}

	return Stat{
		Dev:   uint64(st.Dev),
		Ino:   uint64(st.Ino),
		Size:  st.Size,
		Mode:  uint32(st.Mode),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Mtime: int64(st.Mtim.Sec)*1e9 + int64(st.Mtim.Nsec),
		Atime: int64(st.Atim.Sec)*1e9 + int64(st.Atim.Nsec),
		Nlink: uint64(st.Nlink),
	}, nil
}
