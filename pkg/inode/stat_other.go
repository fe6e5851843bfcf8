//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package inode

import (
	"errors"
)

var errUnsupported = errors.New("inode snapshots are not supported on this platform")

func Lstat(_ string) (Stat, error) {
	return Stat{}, errUnsupported
}

func MaxNlinks(_ string) (uint64, error) {
	return 0, errUnsupported
}
