package runtime

// Set at build time via -ldflags "-X github.com/autobrr/hardlinkable/pkg/runtime.Version=..."
var (
	Version   = "0.0.0-dev"
	GitCommit = "none"
	Timestamp = "unknown"
)
