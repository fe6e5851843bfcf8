package linkable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TwoIdenticalFiles(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "hello")
	b := writeFile(t, filepath.Join(root, "b"), "hello")

	l := New(linkingOptions())
	addTree(t, l, root)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	stA, stB := lstat(t, a), lstat(t, b)
	assert.Equal(t, stA.Ino, stB.Ino)
	assert.EqualValues(t, 2, stA.Nlink)
	assert.EqualValues(t, 5, res.BytesSaved)
	assert.EqualValues(t, 1, res.Hardlinks)
	assert.EqualValues(t, 1, res.ConsolidatedInodes)
	assert.EqualValues(t, 2, res.Inodes)
	assert.EqualValues(t, 1, res.RemainingInodes())
	assert.False(t, res.Incomplete)
	assert.NoFileExists(t, b+tmpLinkSuffix)
}

func TestRun_CeilingOfTwo(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, filepath.Join(root, name), "12345")
	}

	l := New(linkingOptions(), WithMaxNlinks(2))
	addTree(t, l, root)

	_, err := l.Run(context.Background())
	require.NoError(t, err)

	groups := inodeGroups(t, root)
	assert.Len(t, groups, 2)
	for _, name := range []string{"a", "b", "c"} {
		assert.LessOrEqual(t, lstat(t, filepath.Join(root, name)).Nlink, uint64(2))
	}
}

func TestRun_Grouping(t *testing.T) {
	tests := []struct {
		name     string
		files    int
		maxLinks uint64
		want     int
	}{
		{name: "unbounded", files: 7, maxLinks: 0, want: 1},
		{name: "ceiling_2", files: 7, maxLinks: 2, want: 4},
		{name: "ceiling_3", files: 7, maxLinks: 3, want: 3},
		{name: "ceiling_equals_files", files: 7, maxLinks: 7, want: 1},
		{name: "ceiling_above_files", files: 4, maxLinks: 10, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for i := 0; i < tt.files; i++ {
				writeFile(t, filepath.Join(root, fmt.Sprintf("f%02d", i)), "same content")
			}

			l := New(linkingOptions(), WithMaxNlinks(tt.maxLinks))
			addTree(t, l, root)

			_, err := l.Run(context.Background())
			require.NoError(t, err)

			groups := inodeGroups(t, root)
			assert.Len(t, groups, tt.want)
			if tt.maxLinks > 0 {
				for _, n := range groups {
					assert.LessOrEqual(t, uint64(n), tt.maxLinks)
				}
			}
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 4; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("d%d", i), "file"), "hello")
	}

	first := New(linkingOptions())
	addTree(t, first, root)
	res, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Hardlinks)
	assert.EqualValues(t, 15, res.BytesSaved)

	second := New(linkingOptions())
	addTree(t, second, root)
	res, err = second.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Hardlinks)
	assert.Zero(t, res.BytesSaved)
	assert.EqualValues(t, 3, res.ExistingHardlinks)
	assert.EqualValues(t, 15, res.BytesSavedPreviously)
}

func TestRun_DryRunEquivalence(t *testing.T) {
	build := func() string {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a"), "hello")
		writeFile(t, filepath.Join(root, "b"), "hello")
		writeFile(t, filepath.Join(root, "sub", "c"), "hello")
		writeFile(t, filepath.Join(root, "sub", "d"), "other")
		writeFile(t, filepath.Join(root, "sub", "e"), "other")
		return root
	}

	dryRoot, realRoot := build(), build()
	before := inodeGroups(t, dryRoot)

	dry := New(DefaultOptions())
	addTree(t, dry, dryRoot)
	dryRes, err := dry.Run(context.Background())
	require.NoError(t, err)

	live := New(linkingOptions())
	addTree(t, live, realRoot)
	realRes, err := live.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, realRes.BytesSaved, dryRes.BytesSaved)
	assert.Equal(t, realRes.Hardlinks, dryRes.Hardlinks)
	assert.Equal(t, realRes.ConsolidatedInodes, dryRes.ConsolidatedInodes)
	assert.EqualValues(t, 15, dryRes.BytesSaved)

	assert.Equal(t, before, inodeGroups(t, dryRoot))
	for _, name := range []string{"a", "b", "sub/c", "sub/d", "sub/e"} {
		assert.EqualValues(t, 1, lstat(t, filepath.Join(dryRoot, name)).Nlink)
	}
	assert.Len(t, inodeGroups(t, realRoot), 2)
}

func TestRun_SameName(t *testing.T) {
	tests := []struct {
		name     string
		other    string
		sameName bool
		linked   bool
	}{
		{name: "different_names", other: "dir/b.txt", sameName: false, linked: true},
		{name: "different_names_same_name_mode", other: "dir/b.txt", sameName: true, linked: false},
		{name: "equal_names_same_name_mode", other: "dir/a.txt", sameName: true, linked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			a := writeFile(t, filepath.Join(root, "a.txt"), "AAA")
			other := writeFile(t, filepath.Join(root, filepath.FromSlash(tt.other)), "AAA")

			opts := linkingOptions()
			opts.SameName = tt.sameName
			l := New(opts)
			addTree(t, l, root)

			_, err := l.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.linked, lstat(t, a).Ino == lstat(t, other).Ino)
		})
	}
}

func TestRun_Timestamps(t *testing.T) {
	tests := []struct {
		name       string
		ignoreTime bool
		linked     bool
	}{
		{name: "default", ignoreTime: false, linked: false},
		{name: "ignore_time", ignoreTime: true, linked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			a := writeFileAt(t, filepath.Join(root, "a"), "hello", 0o644, baseTime)
			b := writeFileAt(t, filepath.Join(root, "b"), "hello", 0o644, baseTime.Add(time.Hour))

			opts := linkingOptions()
			opts.IgnoreTime = tt.ignoreTime
			l := New(opts)
			addTree(t, l, root)

			res, err := l.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.linked, lstat(t, a).Ino == lstat(t, b).Ino)
			if tt.linked {
				// the surviving inode keeps the newest modification time
				assert.Equal(t, baseTime.Add(time.Hour).UnixNano(), lstat(t, a).Mtime)
			} else {
				// different mtimes never share a bucket
				assert.EqualValues(t, 2, res.HashMisses)
				assert.Zero(t, res.Comparisons)
			}
		})
	}
}

func TestRun_ContentOnly(t *testing.T) {
	newer := baseTime.Add(time.Hour)

	tests := []struct {
		name        string
		contentOnly bool
		linked      bool
	}{
		{name: "default", contentOnly: false, linked: false},
		{name: "content_only", contentOnly: true, linked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			a := writeFileAt(t, filepath.Join(root, "a"), "payload", 0o600, baseTime)
			b := writeFileAt(t, filepath.Join(root, "b"), "payload", 0o640, newer)

			opts := linkingOptions()
			opts.ContentOnly = tt.contentOnly
			l := New(opts)
			addTree(t, l, root)

			res, err := l.Run(context.Background())
			require.NoError(t, err)

			stA, stB := lstat(t, a), lstat(t, b)
			assert.Equal(t, tt.linked, stA.Ino == stB.Ino)
			if !tt.linked {
				assert.Zero(t, res.Hardlinks)
				return
			}
			assert.Positive(t, res.MismatchedModes)

			assert.Equal(t, newer.UnixNano(), stA.Mtime)
			assert.EqualValues(t, 0o640, stA.Mode&0o7777)
		})
	}
}

func TestRun_AccountingMatchesTree(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "0123456789")
	require.NoError(t, os.Link(a, filepath.Join(root, "a_link")))
	writeFile(t, filepath.Join(root, "b"), "0123456789")
	writeFile(t, filepath.Join(root, "sub", "c"), "0123456789")
	writeFile(t, filepath.Join(root, "sub", "x"), "xyz")
	writeFile(t, filepath.Join(root, "sub", "y"), "xyz")
	writeFile(t, filepath.Join(root, "unique"), "unique content")

	l := New(linkingOptions())
	addTree(t, l, root)

	res, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 10, res.BytesSavedPreviously)
	assert.EqualValues(t, 23, res.BytesSaved)
	assert.Equal(t, savedOnDisk(t, root), res.TotalBytesSaved())
}

func TestLinkables_IndependentOfOrder(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeFile(t, filepath.Join(root, fmt.Sprintf("f%d", i)), "abc"))
	}
	paths = append(paths, writeFile(t, filepath.Join(root, "g"), "xyz"))
	paths = append(paths, writeFile(t, filepath.Join(root, "h"), "xyz"))

	resolve := func(order []string) []Instruction {
		l := New(DefaultOptions(), WithMaxNlinks(3))
		for _, p := range order {
			l.Add(filepath.Dir(p), filepath.Base(p), lstat(t, p))
		}
		out, err := l.Linkables(context.Background())
		require.NoError(t, err)
		return out
	}

	reversed := make([]string, 0, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		reversed = append(reversed, paths[i])
	}

	forward := resolve(paths)
	assert.Len(t, forward, 4)
	assert.Equal(t, forward, resolve(reversed))
}

func TestLinkables_ResolvesOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "hello")
	writeFile(t, filepath.Join(root, "b"), "hello")

	l := New(DefaultOptions())
	addTree(t, l, root)

	out, err := l.Linkables(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = l.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "hello")
	writeFile(t, filepath.Join(root, "b"), "hello")

	l := New(linkingOptions())
	addTree(t, l, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := l.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	assert.True(t, res.Incomplete)
	assert.Zero(t, res.Hardlinks)
	assert.Len(t, inodeGroups(t, root), 2)
}

func TestAdd_ProbeFailureIsUnbounded(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%d", i)), "abc")
	}

	calls := 0
	l := New(DefaultOptions(), WithNlinkProbe(func(string) (uint64, error) {
		calls++
		return 0, errors.New("not supported")
	}))
	addTree(t, l, root)

	out, err := l.Linkables(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 1, calls)
}

func TestAdd_SkipsNonRegular(t *testing.T) {
	root := t.TempDir()
	l := New(DefaultOptions())
	l.Add(filepath.Dir(root), filepath.Base(root), lstat(t, root))

	assert.Zero(t, l.Results().Files)
	assert.Zero(t, l.Results().Inodes)
}

func TestAdd_IgnoresRepeatedPath(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a"), "hello")
	b := writeFile(t, filepath.Join(root, "b"), "hello")

	l := New(linkingOptions())
	for _, path := range []string{a, b, a, b} {
		l.Add(filepath.Dir(path), filepath.Base(path), lstat(t, path))
	}

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Files)
	assert.EqualValues(t, 1, res.Hardlinks)
	assert.Zero(t, res.ExistingHardlinks)
	assert.Zero(t, res.BytesSavedPreviously)
	assert.False(t, res.Incomplete)
	assert.Equal(t, lstat(t, a).Ino, lstat(t, b).Ino)
}

type countingLimiter struct {
	takes int
}

func (c *countingLimiter) Take() time.Time {
	c.takes++
	return time.Now()
}

func TestRun_TakesFromLimiterPerLink(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, filepath.Join(root, name), "hello")
	}

	rl := &countingLimiter{}
	l := New(linkingOptions(), WithRateLimiter(rl))
	addTree(t, l, root)

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Hardlinks)
	assert.Equal(t, 2, rl.takes)
}
