package linkable

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/scylladb/go-set/u64set"

	"github.com/autobrr/hardlinkable/pkg/inode"
)

// PathRecord names one directory entry.
type PathRecord struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

func (p PathRecord) Path() string {
	return filepath.Join(p.Dir, p.Name)
}

func comparePathRecords(a, b PathRecord) int {
	return strings.Compare(a.Path(), b.Path())
}

// bucket holds the unmatched representatives of one stat hash in insertion order.
type bucket struct {
	inos []uint64
	set  *u64set.Set
}

func newBucket(ino uint64) *bucket {
	return &bucket{
		inos: []uint64{ino},
		set:  u64set.New(ino),
	}
}

func (b *bucket) add(ino uint64) {
	if b.set.Has(ino) {
		return
	}

	b.inos = append(b.inos, ino)
	b.set.Add(ino)
}

func (b *bucket) hasAny(inos []uint64) bool {
	for _, ino := range inos {
		if b.set.Has(ino) {
			return true
		}
	}

	return false
}

func (b *bucket) len() int {
	return len(b.inos)
}

type digestResult struct {
	sum uint64
	err error
}

// fsDev catalogs every inode seen on one device.
type fsDev struct {
	dev uint64

	inoStat  map[uint64]inode.Stat
	inoPaths map[uint64]map[string][]PathRecord
	buckets  map[uint64]*bucket
	digests  map[uint64]digestResult
	equal    *unionFind

	maxLinks uint64
}

func newFSDev(dev uint64, maxLinks uint64) *fsDev {
	return &fsDev{
		dev:      dev,
		inoStat:  make(map[uint64]inode.Stat),
		inoPaths: make(map[uint64]map[string][]PathRecord),
		buckets:  make(map[uint64]*bucket),
		digests:  make(map[uint64]digestResult),
		equal:    newUnionFind(),
		maxLinks: maxLinks,
	}
}

func (d *fsDev) record(rec PathRecord, st inode.Stat) {
	d.inoStat[st.Ino] = st

	names, ok := d.inoPaths[st.Ino]
	if !ok {
		names = make(map[string][]PathRecord)
		d.inoPaths[st.Ino] = names
	}
	names[rec.Name] = append(names[rec.Name], rec)
}

func (d *fsDev) seen(ino uint64) bool {
	_, ok := d.inoStat[ino]
	return ok
}

func (d *fsDev) link(ino1, ino2 uint64) {
	d.equal.Union(ino1, ino2)
}

func (d *fsDev) reachable(ino uint64) []uint64 {
	return d.equal.Component(ino)
}

// bounded reports whether the device ceiling is known.
func (d *fsDev) bounded() bool {
	return d.maxLinks > 0
}

func (d *fsDev) nlink(ino uint64) uint64 {
	return d.inoStat[ino].Nlink
}

func (d *fsDev) hasName(ino uint64, name string) bool {
	_, ok := d.inoPaths[ino][name]
	return ok
}

func (d *fsDev) hasPath(ino uint64, rec PathRecord) bool {
	return slices.Contains(d.inoPaths[ino][rec.Name], rec)
}

// componentHasName reports whether any inode equal to ino owns a path called name.
func (d *fsDev) componentHasName(ino uint64, name string) bool {
	for _, member := range d.reachable(ino) {
		if d.hasName(member, name) {
			return true
		}
	}

	return false
}

// firstPath returns the lexically smallest path of ino, restricted to name when it is not empty.
func (d *fsDev) firstPath(ino uint64, name string) (PathRecord, bool) {
	var (
		first PathRecord
		found bool
	)

	for n, recs := range d.inoPaths[ino] {
		if name != "" && n != name {
			continue
		}
		for _, rec := range recs {
			if !found || comparePathRecords(rec, first) < 0 {
				first = rec
				found = true
			}
		}
	}

	return first, found
}

func (d *fsDev) sortedPaths(ino uint64) []PathRecord {
	var out []PathRecord
	for _, recs := range d.inoPaths[ino] {
		out = append(out, recs...)
	}

	slices.SortFunc(out, comparePathRecords)
	return out
}

func (d *fsDev) pathCount(ino uint64) int {
	n := 0
	for _, recs := range d.inoPaths[ino] {
		n += len(recs)
	}

	return n
}

// movePath reassigns rec from one inode to another after it was relinked.
func (d *fsDev) movePath(rec PathRecord, from, to uint64) {
	names := d.inoPaths[from]
	recs := names[rec.Name]
	if i := slices.Index(recs, rec); i >= 0 {
		recs = slices.Delete(recs, i, i+1)
	}

	if len(recs) == 0 {
		delete(names, rec.Name)
	} else {
		names[rec.Name] = recs
	}

	if len(names) == 0 {
		delete(d.inoPaths, from)
	}

	dst, ok := d.inoPaths[to]
	if !ok {
		dst = make(map[string][]PathRecord)
		d.inoPaths[to] = dst
	}
	dst[rec.Name] = append(dst[rec.Name], rec)
}

// setNlink updates the simulated link count, dropping the inode once nothing links to it.
func (d *fsDev) setNlink(ino uint64, nlink uint64) {
	st, ok := d.inoStat[ino]
	if !ok {
		return
	}

	if nlink == 0 {
		delete(d.inoStat, ino)
		return
	}

	st.Nlink = nlink
	d.inoStat[ino] = st
}

// savedBytes is Σ size × (discovered paths − 1) over all live inodes.
func (d *fsDev) savedBytes() int64 {
	var total int64
	for ino, st := range d.inoStat {
		total += st.Size * int64(d.pathCount(ino)-1)
	}

	return total
}
