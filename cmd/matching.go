package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/hardlinkable/pkg/config"
	"github.com/autobrr/hardlinkable/pkg/linkable"
	"github.com/autobrr/hardlinkable/pkg/paths"
)

// matchFlags are shared by every command that scans directories.
type matchFlags struct {
	sameName    bool
	ignorePerms bool
	ignoreTime  bool
	contentOnly bool
	minSize     string
	maxSize     string

	match      []string
	exclude    []string
	ignoreFile string
	filter     []string
	filterAny  bool

	searchThreshold int
	rate            int

	json    bool
	noStats bool
}

func addMatchFlags(command *cobra.Command, f *matchFlags) {
	flags := command.Flags()

	flags.BoolVarP(&f.sameName, "same-name", "f", false, "Filenames need to be identical")
	flags.BoolVarP(&f.ignorePerms, "ignore-perms", "p", false, "File permissions do not need to match")
	flags.BoolVarP(&f.ignoreTime, "ignore-time", "t", false, "File modification times do not need to match")
	flags.BoolVarP(&f.contentOnly, "content-only", "c", false, "Only file contents have to match")
	flags.StringVarP(&f.minSize, "min-size", "s", "1", "Minimum file size (eg. 1k, 10M)")
	flags.StringVarP(&f.maxSize, "max-size", "S", "", "Maximum file size (eg. 1k, 10M)")

	flags.StringArrayVarP(&f.match, "match", "m", nil, "Regular expression used to match filenames (repeatable)")
	flags.StringArrayVarP(&f.exclude, "exclude", "x", nil, "Regular expression used to exclude files and dirs (repeatable)")
	flags.StringVar(&f.ignoreFile, "ignore-file", "", "File with gitignore style rules of paths to skip")
	flags.StringArrayVar(&f.filter, "filter", nil, "Expression a file must satisfy, eg. 'Size > 1024 && Ext == \"mkv\"' (repeatable)")
	flags.BoolVar(&f.filterAny, "filter-any", false, "Keep files satisfying any --filter expression instead of all")

	flags.IntVar(&f.searchThreshold, "search-threshold", 1, "Candidates per bucket above which content digests are used, -1 disables")
	flags.IntVar(&f.rate, "rate", 0, "Maximum links per second, 0 is unlimited")

	flags.BoolVar(&f.json, "json", false, "Print statistics as JSON")
	flags.BoolVarP(&f.noStats, "no-stats", "q", false, "Do not print statistics")
}

// resolve merges the configuration with the flags that were set explicitly.
func (f *matchFlags) resolve(changed func(name string) bool, cfg *config.Configuration, linking bool) (linkable.Options, paths.Options, error) {
	pickBool := func(name string, flag bool, conf bool) bool {
		if changed(name) {
			return flag
		}
		return conf
	}
	pickString := func(name string, flag string, conf string) string {
		if changed(name) {
			return flag
		}
		return conf
	}
	pickInt := func(name string, flag int, conf int) int {
		if changed(name) {
			return flag
		}
		return conf
	}
	pickStrings := func(name string, flag []string, conf []string) []string {
		if changed(name) {
			return flag
		}
		return conf
	}

	opts := linkable.DefaultOptions()
	opts.SameName = pickBool("same-name", f.sameName, cfg.Matching.SameName)
	opts.IgnorePerms = pickBool("ignore-perms", f.ignorePerms, cfg.Matching.IgnorePerms)
	opts.IgnoreTime = pickBool("ignore-time", f.ignoreTime, cfg.Matching.IgnoreTime)
	opts.ContentOnly = pickBool("content-only", f.contentOnly, cfg.Matching.ContentOnly)
	opts.LinearSearchThreshold = pickInt("search-threshold", f.searchThreshold, cfg.Matching.SearchThreshold)
	opts.LinkRate = pickInt("rate", f.rate, cfg.Linking.Rate)
	opts.LinkingEnabled = linking
	opts.Verbosity = FlagLogLevel

	walkOpts := paths.Options{
		Match:      pickStrings("match", f.match, cfg.Filter.Match),
		Exclude:    pickStrings("exclude", f.exclude, cfg.Filter.Exclude),
		IgnoreFile: pickString("ignore-file", f.ignoreFile, cfg.Filter.IgnoreFile),
		Filters:    pickStrings("filter", f.filter, cfg.Filter.Expressions),
		FilterAny:  pickBool("filter-any", f.filterAny, cfg.Filter.Any),
	}

	var err error
	if minSize := pickString("min-size", f.minSize, cfg.Matching.MinSize); minSize != "" {
		if walkOpts.MinSize, err = config.ParseSize(minSize); err != nil {
			return opts, walkOpts, fmt.Errorf("min size: %w", err)
		}
	}
	if maxSize := pickString("max-size", f.maxSize, cfg.Matching.MaxSize); maxSize != "" {
		if walkOpts.MaxSize, err = config.ParseSize(maxSize); err != nil {
			return opts, walkOpts, fmt.Errorf("max size: %w", err)
		}
	}

	if walkOpts.MaxSize > 0 && walkOpts.MaxSize < walkOpts.MinSize {
		return opts, walkOpts, fmt.Errorf("max size %d is below min size %d", walkOpts.MaxSize, walkOpts.MinSize)
	}

	return opts, walkOpts, nil
}
