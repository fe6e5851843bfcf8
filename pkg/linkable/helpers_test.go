package linkable

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/hardlinkable/pkg/inode"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// writeFile creates path with content, mode 0644 and mtime baseTime.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	return writeFileAt(t, path, content, 0o644, baseTime)
}

func writeFileAt(t *testing.T, path, content string, mode os.FileMode, mtime time.Time) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

func lstat(t *testing.T, path string) inode.Stat {
	t.Helper()

	st, err := inode.Lstat(path)
	require.NoError(t, err)
	return st
}

// addTree adds every regular file under root in lexical order.
func addTree(t *testing.T, l *Linkable, root string) {
	t.Helper()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		l.Add(filepath.Dir(path), d.Name(), lstat(t, path))
		return nil
	})
	require.NoError(t, err)
}

// inodeGroups maps each inode under root to the number of paths naming it.
func inodeGroups(t *testing.T, root string) map[uint64]int {
	t.Helper()

	groups := make(map[uint64]int)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			groups[lstat(t, path).Ino]++
		}
		return nil
	})
	require.NoError(t, err)

	return groups
}

// savedOnDisk is Σ size × (paths − 1) computed directly from the tree.
func savedOnDisk(t *testing.T, root string) uint64 {
	t.Helper()

	sizes := make(map[uint64]int64)
	counts := make(map[uint64]int)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			st := lstat(t, path)
			sizes[st.Ino] = st.Size
			counts[st.Ino]++
		}
		return nil
	})
	require.NoError(t, err)

	var total uint64
	for ino, n := range counts {
		total += uint64(sizes[ino]) * uint64(n-1)
	}

	return total
}

func linkingOptions() Options {
	opts := DefaultOptions()
	opts.LinkingEnabled = true
	return opts
}
