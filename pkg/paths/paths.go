// Package paths enumerates the regular files of one or more directory trees.
package paths

import (
	"path/filepath"

	"github.com/autobrr/hardlinkable/pkg/inode"
	"github.com/autobrr/hardlinkable/pkg/logger"
)

/* Structs */

type File struct {
	Dir  string
	Name string
	Stat inode.Stat
}

// Stats counts what the walk saw and why files were left out.
type Stats struct {
	Dirs          int64 `json:"dirs"`
	Files         int64 `json:"files"`
	ExcludedDirs  int64 `json:"excluded_dirs"`
	ExcludedFiles int64 `json:"excluded_files"`
	IncludedFiles int64 `json:"included_files"`
	IgnoredPaths  int64 `json:"ignored_paths"`
	FilteredFiles int64 `json:"filtered_files"`
	TooLarge      int64 `json:"too_large"`
	TooSmall      int64 `json:"too_small"`
	StatErrors    int64 `json:"stat_errors"`
}

/* Vars */

var (
	log = logger.GetLogger("paths")
)

func (f File) Path() string {
	return filepath.Join(f.Dir, f.Name)
}
