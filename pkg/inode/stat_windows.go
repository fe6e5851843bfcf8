package inode

import (
	"fmt"
	"os"
	"reflect"
	"syscall"
)

// NTFS allows at most 1024 names per file.
const ntfsLinkMax = 1024

// Lstat returns the snapshot for path on Windows. Ownership is not modelled and always zero.
func Lstat(path string) (Stat, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Stat{}, fmt.Errorf("lstat %s: %w", path, err)
	}

	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return Stat{}, fmt.Errorf("convert path to UTF16: %w", err)
	}

	attrs := uint32(syscall.FILE_FLAG_BACKUP_SEMANTICS)
	if isSymlink(fi) {
		// Use FILE_FLAG_OPEN_REPARSE_POINT, otherwise CreateFile will follow symlink.
		attrs |= syscall.FILE_FLAG_OPEN_REPARSE_POINT
	}

	shareMode := uint32(syscall.FILE_SHARE_READ | syscall.FILE_SHARE_WRITE | syscall.FILE_SHARE_DELETE)
	h, err := syscall.CreateFile(pathp, 0, shareMode, nil, syscall.OPEN_EXISTING, attrs, 0)
	if err != nil {
		return Stat{}, fmt.Errorf("open file: %w", err)
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &info); err != nil {
		return Stat{}, fmt.Errorf("get file info: %w", err)
	}

	mode := uint32(fi.Mode().Perm())
	if fi.Mode().IsRegular() {
		mode |= modeRegular
	}

	st := Stat{
		Dev:   uint64(info.VolumeSerialNumber),
		Ino:   (uint64(info.FileIndexHigh) << 32) | uint64(info.FileIndexLow),
		Size:  fi.Size(),
		Mode:  mode,
		Mtime: fi.ModTime().UnixNano(),
		Atime: fi.ModTime().UnixNano(),
		Nlink: uint64(info.NumberOfLinks),
	}

	if data, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		st.Atime = data.LastAccessTime.Nanoseconds()
	}

	return st, nil
}

// MaxNlinks returns the NTFS name limit; other Windows filesystems are not distinguished.
func MaxNlinks(_ string) (uint64, error) {
	return ntfsLinkMax, nil
}

func isSymlink(fi os.FileInfo) bool {
	// https://devblogs.microsoft.com/oldnewthing/20100212-00/?p=14963
	if fi.Sys().(*syscall.Win32FileAttributeData).FileAttributes&syscall.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
		return false
	}

	v := reflect.Indirect(reflect.ValueOf(fi))
	reserved0 := v.FieldByName("Reserved0").Uint()

	return reserved0 == syscall.IO_REPARSE_TAG_SYMLINK ||
		reserved0 == 0xA0000003
}
