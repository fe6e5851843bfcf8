package linkable

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/autobrr/hardlinkable/pkg/inode"
)

const tmpLinkSuffix = ".__tmp_link__"

var (
	// ErrStale is returned when a file changed since it was catalogued.
	ErrStale = errors.New("file changed since it was scanned")
	// ErrRenameFailed is returned when the destination could not be moved aside.
	ErrRenameFailed = errors.New("rename to temporary name failed")
	// ErrLinkFailed is returned when the link failed and the destination was restored.
	ErrLinkFailed = errors.New("hardlink failed")
)

// FatalError is returned when the filesystem was left in a state that needs manual repair.
type FatalError struct {
	Op   string
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// FileSystem is the set of operations the link executor performs.
type FileSystem interface {
	Lstat(path string) (inode.Stat, error)
	Rename(oldpath, newpath string) error
	Link(oldname, newname string) error
	Remove(name string) error
	Chtimes(name string, atime, mtime time.Time) error
	Lchown(name string, uid, gid int) error
	Chmod(name string, mode os.FileMode) error
}

type osFileSystem struct{}

func (osFileSystem) Lstat(path string) (inode.Stat, error) { return inode.Lstat(path) }
func (osFileSystem) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (osFileSystem) Link(oldname, newname string) error    { return os.Link(oldname, newname) }
func (osFileSystem) Remove(name string) error              { return os.Remove(name) }
func (osFileSystem) Lchown(name string, uid, gid int) error {
	return os.Lchown(name, uid, gid)
}
func (osFileSystem) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}
func (osFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// linkFiles replaces the destination of ins with a hardlink to its source. The destination is
// moved aside first so that it can be restored if linking fails.
func (l *Linkable) linkFiles(d *fsDev, ins Instruction) error {
	srcPath, dstPath := ins.Src.Path(), ins.Dst.Path()
	srcStat, dstStat := d.inoStat[ins.SrcIno], d.inoStat[ins.DstIno]

	if err := l.checkUnchanged(srcPath, srcStat); err != nil {
		return err
	}
	if err := l.checkUnchanged(dstPath, dstStat); err != nil {
		return err
	}

	tmpPath := dstPath + tmpLinkSuffix
	if _, err := l.fs.Lstat(tmpPath); err == nil {
		return errors.Wrapf(ErrRenameFailed, "temporary file already exists: %s", tmpPath)
	}

	if err := l.fs.Rename(dstPath, tmpPath); err != nil {
		log.WithError(err).Errorf("Failed to rename: %s to %s", dstPath, tmpPath)
		return errors.Wrapf(ErrRenameFailed, "%s: %v", dstPath, err)
	}

	if err := l.fs.Link(srcPath, dstPath); err != nil {
		log.WithError(err).Errorf("Failed to hardlink: %s to %s", srcPath, dstPath)
		if rerr := l.fs.Rename(tmpPath, dstPath); rerr != nil {
			return &FatalError{Op: "restore", Path: tmpPath, Err: rerr}
		}
		return errors.Wrapf(ErrLinkFailed, "%s to %s: %v", srcPath, dstPath, err)
	}

	// a leftover temporary file would be picked up and linked on the next run
	if err := l.fs.Remove(tmpPath); err != nil {
		return &FatalError{Op: "remove", Path: tmpPath, Err: err}
	}

	log.Debugf("Linked: %s to %s", srcPath, dstPath)

	if dstStat.Mtime > srcStat.Mtime {
		l.propagateMetadata(d, ins.SrcIno, srcPath, dstStat)
	}

	return nil
}

func (l *Linkable) checkUnchanged(path string, want inode.Stat) error {
	got, err := l.fs.Lstat(path)
	if err != nil {
		return errors.Wrapf(ErrStale, "%s: %v", path, err)
	}

	if got.Ino != want.Ino ||
		got.Size != want.Size ||
		got.Mode != want.Mode ||
		got.Uid != want.Uid ||
		got.Gid != want.Gid ||
		got.Mtime != want.Mtime {
		return errors.Wrapf(ErrStale, "%s", path)
	}

	return nil
}

// propagateMetadata gives the linked inode the times of the newer destination, and in
// content-only mode its ownership and permissions too.
func (l *Linkable) propagateMetadata(d *fsDev, srcIno uint64, srcPath string, from inode.Stat) {
	st := d.inoStat[srcIno]

	if err := l.fs.Chtimes(srcPath, from.AccessTime(), from.ModTime()); err != nil {
		log.WithError(err).Warnf("Failed to update file time attributes for %s", srcPath)
	} else if stored, err := l.fs.Lstat(srcPath); err == nil {
		// the filesystem may store coarser timestamps than requested
		st.Atime = stored.Atime
		st.Mtime = stored.Mtime
	} else {
		st.Atime = from.Atime
		st.Mtime = from.Mtime
	}

	if l.opts.ContentOnly {
		if st.Uid != from.Uid || st.Gid != from.Gid {
			if err := l.fs.Lchown(srcPath, int(from.Uid), int(from.Gid)); err != nil {
				log.WithError(err).Warnf("Failed to update file ownership for %s", srcPath)
			} else {
				st.Uid = from.Uid
				st.Gid = from.Gid
			}
		}

		if st.Mode&0o7777 != from.Mode&0o7777 {
			if err := l.fs.Chmod(srcPath, fileMode(from.Mode)); err != nil {
				log.WithError(err).Warnf("Failed to update file mode for %s", srcPath)
			} else {
				st.Mode = st.Mode&^0o7777 | from.Mode&0o7777
			}
		}
	}

	d.inoStat[srcIno] = st
}

// fileMode converts the permission and special bits of a raw st_mode.
func fileMode(mode uint32) os.FileMode {
	m := os.FileMode(mode & 0o777)
	if mode&0o4000 != 0 {
		m |= os.ModeSetuid
	}
	if mode&0o2000 != 0 {
		m |= os.ModeSetgid
	}
	if mode&0o1000 != 0 {
		m |= os.ModeSticky
	}

	return m
}
