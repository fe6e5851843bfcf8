// Package report renders run statistics for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/autobrr/hardlinkable/pkg/linkable"
	"github.com/autobrr/hardlinkable/pkg/paths"
)

const separator = "-----------------------"

// Summary is the JSON document written for a run.
type Summary struct {
	Walk    paths.Stats       `json:"walk"`
	Results *linkable.Results `json:"results"`
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

// Text writes the statistics block. Verbosity 1 adds the link pairs and skip counters, 2 the
// existing link groups and 3 the search counters.
func Text(w io.Writer, walk paths.Stats, res *linkable.Results, verbosity int) error {
	p := &printer{w: w}
	linking := res.LinkingEnabled

	if res.Incomplete {
		p.printf("Statistics possibly incomplete due to errors")
	}

	if verbosity > 1 && len(res.CurrentlyLinked) > 0 {
		p.printf("Currently hardlinked files")
		p.printf(separator)

		keys := make([]string, 0, len(res.CurrentlyLinked))
		for k := range res.CurrentlyLinked {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, key := range keys {
			group := res.CurrentlyLinked[key]
			p.printf("Currently hardlinked: %s", key)
			for _, path := range group.Paths {
				p.printf("                    : %s", path)
			}
			p.printf("Size per file: %s  Total saved: %s", humanize.IBytes(group.Size),
				humanize.IBytes(group.Size*uint64(len(group.Paths))))
		}
		p.printf("")
	}

	if verbosity > 0 && len(res.LinkPairs) > 0 {
		if linking {
			p.printf("Files that were hardlinked this run")
		} else {
			p.printf("Files that are hardlinkable")
		}
		p.printf(separator)
		for _, pair := range res.LinkPairs {
			p.printf("from: %s", pair.Src)
			p.printf("  to: %s", pair.Dst)
		}
		p.printf("")
	}

	p.printf("Hard linking statistics")
	p.printf(separator)
	if !linking {
		p.printf("Statistics reflect what would result if actual linking were enabled")
	}
	p.printf("Directories                : %d", walk.Dirs)
	p.printf("Files                      : %d", res.Files)
	p.printf("Comparisons                : %d", res.Comparisons)
	p.printf("Inodes found               : %d", res.Inodes)
	if linking {
		p.printf("Consolidated inodes        : %d", res.ConsolidatedInodes)
	} else {
		p.printf("Consolidatable inodes found: %d", res.ConsolidatedInodes)
	}
	p.printf("Current hardlinks          : %d", res.ExistingHardlinks)
	if linking {
		p.printf("Hardlinked this run        : %d", res.Hardlinks)
	} else {
		p.printf("Hardlinkable files found   : %d", res.Hardlinks)
	}
	p.printf("Total old and new hardlinks: %d", res.TotalHardlinks())
	p.printf("Current bytes saved        : %d (%s)", res.BytesSavedPreviously, humanize.IBytes(res.BytesSavedPreviously))
	if linking {
		p.printf("Additional bytes saved     : %d (%s)", res.BytesSaved, humanize.IBytes(res.BytesSaved))
		p.printf("Total bytes saved          : %d (%s)", res.TotalBytesSaved(), humanize.IBytes(res.TotalBytesSaved()))
	} else {
		p.printf("Additional bytes saveable  : %d (%s)", res.BytesSaved, humanize.IBytes(res.BytesSaved))
		p.printf("Total bytes saveable       : %d (%s)", res.TotalBytesSaved(), humanize.IBytes(res.TotalBytesSaved()))
	}

	if verbosity > 0 {
		counters := []struct {
			label string
			value int64
		}{
			{"Total excluded dirs        : %d", walk.ExcludedDirs},
			{"Total excluded files       : %d", walk.ExcludedFiles},
			{"Total included files       : %d", walk.IncludedFiles},
			{"Total ignored paths        : %d", walk.IgnoredPaths},
			{"Total filtered files       : %d", walk.FilteredFiles},
			{"Total too large files      : %d", walk.TooLarge},
			{"Total too small files      : %d", walk.TooSmall},
			{"Total unreadable paths     : %d", walk.StatErrors},
			{"Total unequal file times   : %d", res.MismatchedTimes},
			{"Total unequal file modes   : %d", res.MismatchedModes},
			{"Total unequal file uid/gid : %d", res.MismatchedOwnership},
		}
		for _, c := range counters {
			if c.value != 0 {
				p.printf(c.label, c.value)
			}
		}
		p.printf("Total remaining inodes     : %d", res.RemainingInodes())
	}

	if verbosity > 2 {
		p.printf("Total run time             : %.3f seconds", res.RunTime.Seconds())
		p.printf("Total file hash hits       : %d  misses: %d  sum total: %d", res.HashHits, res.HashMisses,
			res.HashHits+res.HashMisses)
		p.printf("Total hash mismatches      : %d  (+ total hardlinks): %d", res.HashMismatches,
			res.HashMismatches+res.TotalHardlinks())
		p.printf("Total hash searches        : %d", res.HashListSearches)
		p.printf("Total hash list iterations : %d  (avg per-search: %.3f)", res.HashListIterations,
			math.Round(res.AverageIterations()*1000)/1000)
		p.printf("Total digests computed     : %d", res.DigestsComputed)
		p.printf("Total equal comparisons    : %d", res.EqualComparisons)
	}

	return p.err
}

// JSON writes the statistics as a single indented document.
func JSON(w io.Writer, walk paths.Stats, res *linkable.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(Summary{Walk: walk, Results: res}); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	return nil
}
