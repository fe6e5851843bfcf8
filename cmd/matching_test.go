package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/hardlinkable/pkg/config"
	"github.com/autobrr/hardlinkable/pkg/inode"
)

var baseTestTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testCommand(t *testing.T, args ...string) (*cobra.Command, *matchFlags) {
	t.Helper()

	f := &matchFlags{}
	command := &cobra.Command{Use: "test"}
	addMatchFlags(command, f)
	require.NoError(t, command.Flags().Parse(args))

	return command, f
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		Matching: config.MatchingConfig{
			IgnoreTime:      true,
			MinSize:         "1k",
			SearchThreshold: 4,
		},
		Filter: config.FilterConfiguration{
			Exclude:     []string{`\.part$`},
			Expressions: []string{`Ext == "mkv"`},
		},
		Linking: config.LinkingConfig{Rate: 10},
	}
}

func TestResolve_ConfigDefaults(t *testing.T) {
	command, f := testCommand(t)

	opts, walkOpts, err := f.resolve(command.Flags().Changed, testConfig(), true)
	require.NoError(t, err)

	assert.True(t, opts.IgnoreTime)
	assert.False(t, opts.SameName)
	assert.Equal(t, 4, opts.LinearSearchThreshold)
	assert.Equal(t, 10, opts.LinkRate)
	assert.True(t, opts.LinkingEnabled)

	assert.Equal(t, uint64(1024), walkOpts.MinSize)
	assert.Zero(t, walkOpts.MaxSize)
	assert.Equal(t, []string{`\.part$`}, walkOpts.Exclude)
	assert.Equal(t, []string{`Ext == "mkv"`}, walkOpts.Filters)
	assert.False(t, walkOpts.FilterAny)
}

func TestResolve_FlagsOverrideConfig(t *testing.T) {
	command, f := testCommand(t,
		"--ignore-time=false", "-f", "-s", "10", "-S", "2k",
		"-x", `^tmp$`, "-x", `\.nfo$`, "--search-threshold", "-1", "--rate", "0",
		"--filter", "Size > 1", "--filter", `InDir("tv")`, "--filter-any",
	)

	opts, walkOpts, err := f.resolve(command.Flags().Changed, testConfig(), false)
	require.NoError(t, err)

	assert.False(t, opts.IgnoreTime)
	assert.True(t, opts.SameName)
	assert.Equal(t, -1, opts.LinearSearchThreshold)
	assert.Zero(t, opts.LinkRate)
	assert.False(t, opts.LinkingEnabled)

	assert.Equal(t, uint64(10), walkOpts.MinSize)
	assert.Equal(t, uint64(2048), walkOpts.MaxSize)
	assert.Equal(t, []string{`^tmp$`, `\.nfo$`}, walkOpts.Exclude)
	assert.Equal(t, []string{"Size > 1", `InDir("tv")`}, walkOpts.Filters)
	assert.True(t, walkOpts.FilterAny)
}

func TestResolve_InvalidSizes(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "bad min", args: []string{"-s", "lots"}},
		{name: "bad max", args: []string{"-S", "-3"}},
		{name: "max below min", args: []string{"-s", "2k", "-S", "1k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, f := testCommand(t, tt.args...)

			_, _, err := f.resolve(command.Flags().Changed, testConfig(), false)
			assert.Error(t, err)
		})
	}
}

func writeTestFile(t *testing.T, path string, content string, mtime time.Time) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestExecute(t *testing.T) {
	root := t.TempDir()
	mtime := baseTestTime

	writeTestFile(t, filepath.Join(root, "a", "movie.mkv"), "same contents", mtime)
	writeTestFile(t, filepath.Join(root, "b", "movie.mkv"), "same contents", mtime)
	writeTestFile(t, filepath.Join(root, "b", "other.mkv"), "other content", mtime)

	command, f := testCommand(t)
	entry := logrus.NewEntry(logrus.New())

	t.Run("scan", func(t *testing.T) {
		opts, walkOpts, err := f.resolve(command.Flags().Changed, &config.Configuration{}, false)
		require.NoError(t, err)

		res, walkStats, err := execute(context.Background(), entry, []string{root}, opts, walkOpts)
		require.NoError(t, err)

		assert.Equal(t, int64(3), walkStats.Files)
		assert.Equal(t, int64(1), res.Hardlinks)
		assert.Equal(t, uint64(len("same contents")), res.BytesSaved)

		a, err := inode.Lstat(filepath.Join(root, "a", "movie.mkv"))
		require.NoError(t, err)
		b, err := inode.Lstat(filepath.Join(root, "b", "movie.mkv"))
		require.NoError(t, err)
		assert.False(t, a.SameInode(b))
	})

	t.Run("link", func(t *testing.T) {
		opts, walkOpts, err := f.resolve(command.Flags().Changed, &config.Configuration{}, true)
		require.NoError(t, err)

		res, _, err := execute(context.Background(), entry, []string{root}, opts, walkOpts)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Hardlinks)

		a, err := inode.Lstat(filepath.Join(root, "a", "movie.mkv"))
		require.NoError(t, err)
		b, err := inode.Lstat(filepath.Join(root, "b", "movie.mkv"))
		require.NoError(t, err)
		assert.True(t, a.SameInode(b))
		assert.Equal(t, uint64(2), a.Nlink)
	})

	t.Run("missing root", func(t *testing.T) {
		opts, walkOpts, err := f.resolve(command.Flags().Changed, &config.Configuration{}, false)
		require.NoError(t, err)

		_, _, err = execute(context.Background(), entry, []string{filepath.Join(root, "missing")}, opts, walkOpts)
		assert.Error(t, err)
	})
}
