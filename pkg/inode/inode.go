// Package inode takes lstat snapshots of regular files and probes per-device hardlink limits.
package inode

import (
	"fmt"
	"time"
)

const (
	modeTypeMask = 0o170000
	modeRegular  = 0o100000
)

// FileID represents a unique file identifier (device ID + inode number).
type FileID struct {
	Device uint64 // Device ID
	Inode  uint64 // Inode number
}

// String returns a string representation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}

// Equal checks if two FileIDs are equal.
func (f FileID) Equal(other FileID) bool {
	return f.Device == other.Device && f.Inode == other.Inode
}

// Stat is an immutable lstat snapshot. Times are nanoseconds since the epoch.
type Stat struct {
	Dev   uint64 `json:"dev"`
	Ino   uint64 `json:"ino"`
	Size  int64  `json:"size"`
	Mode  uint32 `json:"mode"`
	Uid   uint32 `json:"uid"`
	Gid   uint32 `json:"gid"`
	Mtime int64  `json:"mtime"`
	Atime int64  `json:"atime"`
	Nlink uint64 `json:"nlink"`
}

func (s Stat) ID() FileID {
	return FileID{Device: s.Dev, Inode: s.Ino}
}

// SameInode reports whether both snapshots name the same inode, ie. they are already hardlinked.
func (s Stat) SameInode(other Stat) bool {
	return s.ID().Equal(other.ID())
}

func (s Stat) IsRegular() bool {
	return s.Mode&modeTypeMask == modeRegular
}

// MtimeSeconds is the modification time truncated towards negative infinity.
func (s Stat) MtimeSeconds() int64 {
	sec := s.Mtime / int64(time.Second)
	if s.Mtime%int64(time.Second) < 0 {
		sec--
	}
	return sec
}

func (s Stat) ModTime() time.Time {
	return time.Unix(0, s.Mtime)
}

func (s Stat) AccessTime() time.Time {
	return time.Unix(0, s.Atime)
}
