package linkable

import (
	"github.com/autobrr/hardlinkable/pkg/inode"
)

// statHash buckets inodes that could possibly be linked.
func (l *Linkable) statHash(st inode.Stat) uint64 {
	size := uint64(st.Size)
	if l.opts.IgnoreTime || l.opts.ContentOnly {
		return size
	}

	return size ^ uint64(st.MtimeSeconds())
}

// match catalogs a newly discovered path and links its inode to the first equal representative
// of its bucket, if any.
func (l *Linkable) match(d *fsDev, rec PathRecord, st inode.Stat) {
	defer d.record(rec, st)

	ino := st.Ino
	seen := d.seen(ino)
	if !seen {
		l.results.Inodes++
	}

	hash := l.statHash(st)
	b, ok := d.buckets[hash]
	if !ok {
		l.results.HashMisses++
		d.buckets[hash] = newBucket(ino)
		return
	}

	l.results.HashHits++
	if seen {
		prev, _ := d.firstPath(ino, "")
		log.Tracef("Existing link: %s with %s", prev.Path(), rec.Path())
		l.results.foundExistingHardlink(prev, rec, d.inoStat[ino].Size, l.opts.Verbosity)
	}

	if b.hasAny(d.reachable(ino)) {
		// already equal to a representative; in same-name mode search again only when none of
		// the equal inodes carries this filename
		if !l.opts.SameName || d.componentHasName(ino, rec.Name) {
			return
		}
	}

	l.results.HashListSearches++
	for _, cand := range l.candidates(d, b, rec, st) {
		l.results.HashListIterations++
		if l.opts.SameName && !d.hasName(cand, rec.Name) {
			continue
		}

		name := ""
		if l.opts.SameName {
			name = rec.Name
		}
		candRec, ok := d.firstPath(cand, name)
		if !ok {
			continue
		}

		if l.hardlinkable(d, candRec, d.inoStat[cand], rec, st) {
			log.Debugf("Linkable: %s to %s", candRec.Path(), rec.Path())
			d.link(cand, ino)
			return
		}
	}

	l.results.HashMismatches++
	b.add(ino)
}

// candidates returns the bucket members to try, in insertion order unless the bucket is large
// enough for partial digests to be worth computing. Digests only order and prune the search.
func (l *Linkable) candidates(d *fsDev, b *bucket, rec PathRecord, st inode.Stat) []uint64 {
	threshold := l.opts.LinearSearchThreshold
	if threshold < 0 || b.len() <= threshold {
		return b.inos
	}

	sum, err := d.digestFor(st.Ino, rec, &l.results.DigestsComputed)
	if err != nil {
		log.WithError(err).Debugf("Could not digest %s", rec.Path())
		return b.inos
	}

	var matching, unknown []uint64
	for _, cand := range b.inos {
		candSum, err := d.digest(cand, &l.results.DigestsComputed)
		switch {
		case err != nil:
			unknown = append(unknown, cand)
		case candSum == sum:
			matching = append(matching, cand)
		}
	}

	return append(matching, unknown...)
}

// hardlinkable checks eligibility and then compares full contents.
func (l *Linkable) hardlinkable(d *fsDev, rec1 PathRecord, st1 inode.Stat, rec2 PathRecord, st2 inode.Stat) bool {
	if !l.eligible(d, st1, st2) {
		return false
	}

	path1, path2 := rec1.Path(), rec2.Path()
	log.Tracef("Comparing: %s to %s", path1, path2)
	l.results.Comparisons++

	equal, err := contentsEqual(path1, path2)
	if err != nil {
		log.WithError(err).Warnf("Failed comparing %s to %s", path1, path2)
		return false
	}

	if equal {
		l.results.EqualComparisons++
	}

	return equal
}

// eligible is the metadata precondition for linking two inodes. Mismatch counters are bumped
// whether or not the mismatch matters in the current mode.
func (l *Linkable) eligible(d *fsDev, st1, st2 inode.Stat) bool {
	result := !st1.SameInode(st2) &&
		st1.Dev == st2.Dev &&
		st1.Size == st2.Size

	if !l.opts.ContentOnly {
		result = result &&
			(l.opts.IgnoreTime || st1.Mtime == st2.Mtime) &&
			(l.opts.IgnorePerms || st1.Mode == st2.Mode) &&
			st1.Uid == st2.Uid && st1.Gid == st2.Gid
	}

	if result && d.bounded() {
		// linking such a pair cannot lower the total link count on the device
		result = st1.Nlink+st2.Nlink <= d.maxLinks
	}

	if st1.Mtime != st2.Mtime {
		l.results.MismatchedTimes++
	}
	if st1.Mode != st2.Mode {
		l.results.MismatchedModes++
	}
	if st1.Uid != st2.Uid || st1.Gid != st2.Gid {
		l.results.MismatchedOwnership++
	}

	return result
}
