package linkable

import (
	"go.uber.org/ratelimit"
)

// Options control matching and linking. They are copied at construction and never change
// during a run.
type Options struct {
	ContentOnly bool
	SameName    bool
	IgnoreTime  bool
	IgnorePerms bool

	// LinearSearchThreshold is the bucket size above which partial content digests order the
	// candidate search. A negative value disables digests.
	LinearSearchThreshold int

	LinkingEnabled bool
	// LinkRate caps link instructions per second, 0 is unlimited.
	LinkRate int

	Verbosity int
}

func DefaultOptions() Options {
	return Options{
		LinearSearchThreshold: 1,
	}
}

// Option customises the environment a Linkable runs against.
type Option func(*Linkable)

// WithMaxNlinks replaces the per-device link ceiling probe with a fixed value for every
// device. Zero means unbounded.
func WithMaxNlinks(limit uint64) Option {
	return func(l *Linkable) {
		l.probe = func(string) (uint64, error) {
			return limit, nil
		}
	}
}

// WithNlinkProbe replaces the per-device link ceiling probe.
func WithNlinkProbe(probe func(path string) (uint64, error)) Option {
	return func(l *Linkable) {
		l.probe = probe
	}
}

// WithFileSystem replaces the filesystem the link executor mutates.
func WithFileSystem(fs FileSystem) Option {
	return func(l *Linkable) {
		l.fs = fs
	}
}

// WithRateLimiter replaces the limiter derived from Options.LinkRate.
func WithRateLimiter(rl ratelimit.Limiter) Option {
	return func(l *Linkable) {
		l.limiter = rl
	}
}
