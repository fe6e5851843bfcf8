package expression

import (
	"path/filepath"
	"strings"
	"time"
)

// File is what a filter expression can see of a candidate file.
type File struct {
	Path    string
	Dir     string
	Name    string
	Ext     string
	Size    int64
	Mode    uint32
	Uid     uint32
	Gid     uint32
	Nlink   uint64
	ModTime time.Time
}

// NewFile builds the expression view of a file from its path and lstat fields.
func NewFile(path string, size int64, mode, uid, gid uint32, nlink uint64, modTime time.Time) *File {
	return &File{
		Path:    path,
		Dir:     filepath.Dir(path),
		Name:    filepath.Base(path),
		Ext:     strings.TrimPrefix(filepath.Ext(path), "."),
		Size:    size,
		Mode:    mode & 0o7777,
		Uid:     uid,
		Gid:     gid,
		Nlink:   nlink,
		ModTime: modTime,
	}
}

type evalContext struct {
	*File
}

// Age is the time since the file was last modified.
func (e *evalContext) Age() time.Duration {
	return time.Since(e.ModTime)
}

// InDir reports whether the file lives below a directory with the given name.
func (e *evalContext) InDir(name string) bool {
	for _, part := range strings.Split(filepath.ToSlash(e.Dir), "/") {
		if part == name {
			return true
		}
	}

	return false
}
