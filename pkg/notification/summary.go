package notification

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/autobrr/hardlinkable/pkg/linkable"
	"github.com/autobrr/hardlinkable/pkg/paths"
)

// Title names the run the way the report header does.
func Title(linking bool) string {
	if linking {
		return "Hardlinking"
	}

	return "Hardlink scan"
}

// Description summarises a run in a few lines of markdown.
func Description(walk paths.Stats, res *linkable.Results) string {
	var b strings.Builder

	verb := "saveable"
	if res.LinkingEnabled {
		verb = "saved"
	}

	fmt.Fprintf(&b, "Scanned **%d** files in **%d** directories\n", res.Files, walk.Dirs)
	fmt.Fprintf(&b, "Hardlinks this run: **%d** (%d inodes consolidated)\n", res.Hardlinks, res.ConsolidatedInodes)
	fmt.Fprintf(&b, "Bytes %s this run: **%s**\n", verb, humanize.IBytes(res.BytesSaved))
	fmt.Fprintf(&b, "Total bytes %s: **%s**", verb, humanize.IBytes(res.TotalBytesSaved()))

	if res.Incomplete {
		b.WriteString("\nStatistics possibly incomplete due to errors")
	}

	return b.String()
}

// LinkFields builds one field per link pair of the run.
func LinkFields(s Sender, res *linkable.Results, size func(path string) uint64) []Field {
	fields := make([]Field, 0, len(res.LinkPairs))
	for _, pair := range res.LinkPairs {
		opts := BuildOptions{Src: pair.Src, Dst: pair.Dst}
		if size != nil {
			opts.Size = size(pair.Dst)
		}
		fields = append(fields, s.BuildField(ActionLink, opts))
	}

	return fields
}
