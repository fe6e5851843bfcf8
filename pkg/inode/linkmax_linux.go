package inode

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Linux has no pathconf syscall, so the per-filesystem limits are resolved from the statfs
// magic the same way the C library does. Filesystems it does not know report linuxLinkMax.
const linuxLinkMax = 127

var linkMaxByMagic = map[uint32]uint64{
	0xEF53:     32000,      // ext2/3/4 share a magic, use the ext2/3 limit
	0x58465342: 2147483647, // xfs
	0x9123683E: 65535,      // btrfs
	0x52654973: 64535,      // reiserfs
	0x00011954: 32000,      // ufs
	0x137F:     250,        // minix
	0x138F:     250,        // minix, 30 char names
	0x2468:     65530,      // minix v2
	0x2478:     65530,      // minix v2, 30 char names
}

// MaxNlinks returns the hardlink ceiling of the filesystem holding path.
func MaxNlinks(path string) (uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	if limit, ok := linkMaxByMagic[uint32(fs.Type)]; ok {
		return limit, nil
	}

	return linuxLinkMax, nil
}
