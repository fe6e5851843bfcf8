// Package linkable finds files with identical contents and replaces redundant copies with
// hardlinks.
package linkable

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/ratelimit"

	"github.com/autobrr/hardlinkable/pkg/inode"
	"github.com/autobrr/hardlinkable/pkg/logger"
)

var (
	log = logger.GetLogger("linkable")

	// ErrAccounting is returned when the saved byte counters disagree with the catalog.
	ErrAccounting = errors.New("saved bytes do not match catalog")
)

// Linkable catalogs files as they are added and links equal ones on Run.
type Linkable struct {
	opts    Options
	results *Results
	devs    map[uint64]*fsDev

	probe   func(path string) (uint64, error)
	fs      FileSystem
	limiter ratelimit.Limiter

	prelinkSaved int64
	resolved     bool
}

func New(opts Options, options ...Option) *Linkable {
	l := &Linkable{
		opts:    opts,
		results: newResults(opts),
		devs:    make(map[uint64]*fsDev),
		probe:   inode.MaxNlinks,
		fs:      osFileSystem{},
	}

	for _, o := range options {
		o(l)
	}

	if l.limiter == nil {
		if opts.LinkRate > 0 {
			l.limiter = ratelimit.New(opts.LinkRate)
		} else {
			l.limiter = ratelimit.NewUnlimited()
		}
	}

	return l
}

// Add catalogs one regular file. Files must be added before Linkables or Run is called.
func (l *Linkable) Add(dir, name string, st inode.Stat) {
	if !st.IsRegular() {
		log.Tracef("Skipping non-regular file: %s/%s", dir, name)
		return
	}

	rec := PathRecord{Dir: dir, Name: name}
	d := l.device(st.Dev, rec.Path())
	if d.hasPath(st.Ino, rec) {
		log.Tracef("Skipping already cataloged path: %s (%s)", rec.Path(), st.ID())
		return
	}

	l.results.Files++
	l.match(d, rec, st)
}

// device returns the catalog for dev, probing its link ceiling from path on first use.
func (l *Linkable) device(dev uint64, path string) *fsDev {
	if d, ok := l.devs[dev]; ok {
		return d
	}

	maxLinks, err := l.probe(path)
	if err != nil {
		log.WithError(err).Debugf("Unknown link limit for device %d, treating as unbounded", dev)
		maxLinks = 0
	}

	log.Tracef("Device %d link limit: %d", dev, maxLinks)
	d := newFSDev(dev, maxLinks)
	l.devs[dev] = d

	return d
}

// Results returns the accumulated statistics.
func (l *Linkable) Results() *Results {
	return l.results
}

// Linkables returns the link instructions a run would perform without touching the filesystem.
// The catalog is updated as if they had been performed, so a Linkable resolves only once.
func (l *Linkable) Linkables(ctx context.Context) ([]Instruction, error) {
	var out []Instruction
	err := l.runResolver(ctx, func(_ *fsDev, ins Instruction) error {
		out = append(out, ins)
		return nil
	})

	return out, err
}

// Run resolves all equal files and, when linking is enabled, links them. On error the results
// are marked incomplete and still returned. A *FatalError means the filesystem needs repair.
func (l *Linkable) Run(ctx context.Context) (*Results, error) {
	err := l.runResolver(ctx, func(d *fsDev, ins Instruction) error {
		if !l.opts.LinkingEnabled {
			return nil
		}

		l.limiter.Take()
		return l.linkFiles(d, ins)
	})

	return l.results, err
}

func (l *Linkable) runResolver(ctx context.Context, apply applyFunc) error {
	if l.resolved {
		return errors.New("files were already resolved")
	}
	l.resolved = true

	l.prelinkSaved = l.savedBytes()
	defer func() {
		l.results.RunTime = time.Since(l.results.StartTime)
	}()

	if err := l.resolve(ctx, apply); err != nil {
		l.results.Incomplete = true
		return err
	}

	return l.checkAccounting()
}

// savedBytes is the space shared by already linked paths across all devices.
func (l *Linkable) savedBytes() int64 {
	var total int64
	for _, d := range l.devs {
		total += d.savedBytes()
	}

	return total
}

// checkAccounting cross-checks the running counters against the catalog.
func (l *Linkable) checkAccounting() error {
	postlink := l.savedBytes()
	total := int64(l.results.TotalBytesSaved())
	thisRun := int64(l.results.BytesSaved)

	if total != postlink || thisRun != postlink-l.prelinkSaved {
		return errors.Wrapf(ErrAccounting, "counted %d (%d this run), catalog %d (%d this run)",
			total, thisRun, postlink, postlink-l.prelinkSaved)
	}

	return nil
}
