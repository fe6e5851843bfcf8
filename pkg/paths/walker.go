package paths

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/dlclark/regexp2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/autobrr/hardlinkable/pkg/expression"
	"github.com/autobrr/hardlinkable/pkg/inode"
)

type Options struct {
	// Match keeps only files whose name matches one of the patterns, when set.
	Match []string
	// Exclude drops files and prunes directories whose name matches one of the patterns.
	Exclude []string
	// IgnoreFile is a file of gitignore rules applied to paths relative to each root.
	IgnoreFile string
	// Filters are boolean expressions a file must satisfy, all of them unless FilterAny is set.
	Filters   []string
	FilterAny bool

	MinSize uint64
	// MaxSize of 0 means no upper bound.
	MaxSize uint64
}

type Walker struct {
	match     []*regexp2.Regexp
	exclude   []*regexp2.Regexp
	ignore    *ignore.GitIgnore
	filters   []expression.CompiledExpression
	filterAny bool
	minSize   uint64
	maxSize   uint64
}

type walk struct {
	ctx   context.Context
	root  string
	files []File
	stats Stats
	mu    sync.Mutex
}

func NewWalker(opts Options) (*Walker, error) {
	w := &Walker{
		filterAny: opts.FilterAny,
		minSize:   opts.MinSize,
		maxSize:   opts.MaxSize,
	}

	var err error
	if w.match, err = compilePatterns(opts.Match); err != nil {
		return nil, fmt.Errorf("compile match patterns: %w", err)
	}
	if w.exclude, err = compilePatterns(opts.Exclude); err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}

	if opts.IgnoreFile != "" {
		if w.ignore, err = ignore.CompileIgnoreFile(opts.IgnoreFile); err != nil {
			return nil, fmt.Errorf("load ignore file %s: %w", opts.IgnoreFile, err)
		}
	}

	if w.filters, err = expression.Compile(opts.Filters); err != nil {
		return nil, fmt.Errorf("compile filters: %w", err)
	}

	return w, nil
}

// Walk returns the accepted regular files under roots sorted by absolute path. Paths reachable
// from more than one root are returned once.
func (w *Walker) Walk(ctx context.Context, roots []string) ([]File, Stats, error) {
	var (
		files []File
		stats Stats
	)

	for _, dir := range roots {
		root, err := filepath.Abs(dir)
		if err != nil {
			return nil, stats, fmt.Errorf("resolve %s: %w", dir, err)
		}

		info, err := os.Lstat(root)
		if err != nil {
			return nil, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, stats, fmt.Errorf("%s is not a directory", root)
		}

		if w.excluded(filepath.Base(root)) {
			log.Debugf("Excluded dir: %s", root)
			stats.ExcludedDirs++
			continue
		}

		wk := &walk{ctx: ctx, root: root}
		conf := &fastwalk.Config{
			Follow: false,
		}

		if err := fastwalk.Walk(conf, root, wk.visit(w)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, stats, err
			}
			return nil, stats, fmt.Errorf("walk %s: %w", root, err)
		}

		files = append(files, wk.files...)
		stats.add(wk.stats)
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path(), b.Path())
	})
	files = slices.CompactFunc(files, func(a, b File) bool {
		return a.Path() == b.Path()
	})

	stats.Files = int64(len(files))
	return files, stats, nil
}

func (wk *walk) visit(w *Walker) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-wk.ctx.Done():
			return wk.ctx.Err()
		default:
		}

		if err != nil {
			log.WithError(err).Warnf("Unable to read: %s", path)
			wk.count(func(s *Stats) { s.StatErrors++ })
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path == wk.root {
			wk.count(func(s *Stats) { s.Dirs++ })
			return nil
		}

		if d.IsDir() {
			return wk.visitDir(w, path, d)
		}

		if !d.Type().IsRegular() {
			log.Tracef("Skipping non-regular file: %s", path)
			return nil
		}

		if f, ok := wk.visitFile(w, path, d); ok {
			wk.mu.Lock()
			wk.files = append(wk.files, f)
			wk.mu.Unlock()
		}

		return nil
	}
}

func (wk *walk) visitDir(w *Walker, path string, d fs.DirEntry) error {
	if w.excluded(d.Name()) {
		log.Debugf("Excluded dir: %s", path)
		wk.count(func(s *Stats) { s.ExcludedDirs++ })
		return fs.SkipDir
	}

	if w.ignored(wk.root, path, true) {
		log.Debugf("Ignored dir: %s", path)
		wk.count(func(s *Stats) { s.IgnoredPaths++ })
		return fs.SkipDir
	}

	wk.count(func(s *Stats) { s.Dirs++ })
	return nil
}

func (wk *walk) visitFile(w *Walker, path string, d fs.DirEntry) (File, bool) {
	name := d.Name()

	if w.excluded(name) {
		log.Tracef("Excluded file: %s", path)
		wk.count(func(s *Stats) { s.ExcludedFiles++ })
		return File{}, false
	}

	if len(w.match) > 0 {
		if !matchesAny(w.match, name) {
			log.Tracef("Unmatched file: %s", path)
			return File{}, false
		}
		wk.count(func(s *Stats) { s.IncludedFiles++ })
	}

	if w.ignored(wk.root, path, false) {
		log.Tracef("Ignored file: %s", path)
		wk.count(func(s *Stats) { s.IgnoredPaths++ })
		return File{}, false
	}

	st, err := inode.Lstat(path)
	if err != nil {
		log.WithError(err).Warnf("Unable to get stat info for: %s", path)
		wk.count(func(s *Stats) { s.StatErrors++ })
		return File{}, false
	}

	// replaced between readdir and lstat
	if !st.IsRegular() {
		return File{}, false
	}

	size := uint64(st.Size)
	if size < w.minSize {
		log.Tracef("File too small: %s", path)
		wk.count(func(s *Stats) { s.TooSmall++ })
		return File{}, false
	}
	if w.maxSize > 0 && size > w.maxSize {
		log.Tracef("File too large: %s", path)
		wk.count(func(s *Stats) { s.TooLarge++ })
		return File{}, false
	}

	if len(w.filters) > 0 {
		env := expression.NewFile(path, st.Size, st.Mode, st.Uid, st.Gid, st.Nlink, st.ModTime())
		ok, reason, err := w.checkFilters(wk.ctx, env)
		if err != nil {
			log.WithError(err).Warnf("Failed evaluating filter for: %s", path)
			wk.count(func(s *Stats) { s.FilteredFiles++ })
			return File{}, false
		}
		if !ok {
			log.Tracef("Filtered file: %s (%s)", path, reason)
			wk.count(func(s *Stats) { s.FilteredFiles++ })
			return File{}, false
		}
	}

	log.Tracef("File: %s", path)
	return File{Dir: filepath.Dir(path), Name: name, Stat: st}, true
}

func (w *Walker) checkFilters(ctx context.Context, f *expression.File) (bool, string, error) {
	if w.filterAny {
		ok, _, err := expression.CheckFileSingleMatchWithReason(ctx, f, w.filters)
		return ok, "no filter matched", err
	}

	ok, failed, err := expression.CheckFileAllMatchWithReason(ctx, f, w.filters)
	return ok, strings.Join(failed, ", "), err
}

func (wk *walk) count(fn func(*Stats)) {
	wk.mu.Lock()
	fn(&wk.stats)
	wk.mu.Unlock()
}

func (w *Walker) excluded(name string) bool {
	return matchesAny(w.exclude, name)
}

// ignored applies the ignore file to path relative to root, using forward slashes.
func (w *Walker) ignored(root, path string, isDir bool) bool {
	if w.ignore == nil {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	rel = filepath.ToSlash(rel)
	if isDir && w.ignore.MatchesPath(rel+"/") {
		return true
	}

	return w.ignore.MatchesPath(rel)
}

func (s *Stats) add(o Stats) {
	s.Dirs += o.Dirs
	s.ExcludedDirs += o.ExcludedDirs
	s.ExcludedFiles += o.ExcludedFiles
	s.IncludedFiles += o.IncludedFiles
	s.IgnoredPaths += o.IgnoredPaths
	s.FilteredFiles += o.FilteredFiles
	s.TooLarge += o.TooLarge
	s.TooSmall += o.TooSmall
	s.StatErrors += o.StatErrors
}

func compilePatterns(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}

	return out, nil
}

func matchesAny(patterns []*regexp2.Regexp, name string) bool {
	for _, re := range patterns {
		ok, err := re.MatchString(name)
		if err != nil {
			log.WithError(err).Warnf("Failed matching %q against %s", name, re.String())
			continue
		}
		if ok {
			return true
		}
	}

	return false
}
