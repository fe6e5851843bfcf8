package linkable

import (
	"time"
)

// LinkPair is one link instruction as reported to the user.
type LinkPair struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// LinkGroup lists the paths found sharing the inode of the path it is keyed by.
type LinkGroup struct {
	Size  uint64   `json:"size"`
	Paths []string `json:"paths"`
}

// Results accumulates counters for a single run.
type Results struct {
	Files                int64  `json:"files"`
	Inodes               int64  `json:"inodes"`
	Comparisons          int64  `json:"comparisons"`
	EqualComparisons     int64  `json:"equal_comparisons"`
	ConsolidatedInodes   int64  `json:"consolidated_inodes"`
	ExistingHardlinks    int64  `json:"existing_hardlinks"`
	Hardlinks            int64  `json:"hardlinks"`
	BytesSaved           uint64 `json:"bytes_saved"`
	BytesSavedPreviously uint64 `json:"bytes_saved_previously"`

	MismatchedTimes     int64 `json:"mismatched_times"`
	MismatchedModes     int64 `json:"mismatched_modes"`
	MismatchedOwnership int64 `json:"mismatched_ownership"`

	HashHits           int64 `json:"hash_hits"`
	HashMisses         int64 `json:"hash_misses"`
	HashMismatches     int64 `json:"hash_mismatches"`
	HashListSearches   int64 `json:"hash_list_searches"`
	HashListIterations int64 `json:"hash_list_iterations"`
	DigestsComputed    int64 `json:"digests_computed"`

	LinkPairs       []LinkPair            `json:"link_pairs,omitempty"`
	CurrentlyLinked map[string]*LinkGroup `json:"currently_linked,omitempty"`

	LinkingEnabled bool          `json:"linking_enabled"`
	Incomplete     bool          `json:"incomplete"`
	StartTime      time.Time     `json:"start_time"`
	RunTime        time.Duration `json:"run_time"`
}

func newResults(opts Options) *Results {
	return &Results{
		LinkingEnabled:  opts.LinkingEnabled,
		CurrentlyLinked: make(map[string]*LinkGroup),
		StartTime:       time.Now(),
	}
}

func (r *Results) TotalHardlinks() int64 {
	return r.ExistingHardlinks + r.Hardlinks
}

func (r *Results) TotalBytesSaved() uint64 {
	return r.BytesSaved + r.BytesSavedPreviously
}

func (r *Results) RemainingInodes() int64 {
	return r.Inodes - r.ConsolidatedInodes
}

// AverageIterations is the mean number of candidates visited per bucket search.
func (r *Results) AverageIterations() float64 {
	if r.HashListSearches == 0 {
		return 0
	}

	return float64(r.HashListIterations) / float64(r.HashListSearches)
}

func (r *Results) foundExistingHardlink(prev, cur PathRecord, size int64, verbosity int) {
	r.ExistingHardlinks++
	r.BytesSavedPreviously += uint64(size)

	if verbosity > 1 {
		key := prev.Path()
		group, ok := r.CurrentlyLinked[key]
		if !ok {
			group = &LinkGroup{Size: uint64(size)}
			r.CurrentlyLinked[key] = group
		}
		group.Paths = append(group.Paths, cur.Path())
	}
}

// didHardlink counts a committed instruction. dstNlink is the destination's link count before
// the instruction; only removing its last link frees space.
func (r *Results) didHardlink(ins Instruction, size int64, dstNlink uint64, verbosity int) {
	r.Hardlinks++
	if dstNlink == 1 {
		r.BytesSaved += uint64(size)
		r.ConsolidatedInodes++
	}

	if verbosity > 0 {
		r.LinkPairs = append(r.LinkPairs, LinkPair{Src: ins.Src.Path(), Dst: ins.Dst.Path()})
	}
}
