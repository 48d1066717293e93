package downloader

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"tgmedia/internal/media"
	"tgmedia/internal/telegram"
)

// dryRunPreview caps how many pending files a dry run lists in full.
const dryRunPreview = 10

// DryRun lists what would be downloaded without doing any I/O, ledger
// reads included: the listing shows the full work list.
func DryRun(msgs []*telegram.Message, out io.Writer) {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSIZE\tNAME")

	var totalSize int64
	for i, msg := range msgs {
		rec := media.Classify(msg)
		totalSize += rec.SizeBytes
		if i < dryRunPreview {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				msg.ID, rec.Kind, humanize.Bytes(uint64(rec.SizeBytes)), rec.DisplayName)
		}
	}
	if len(msgs) > dryRunPreview {
		fmt.Fprintf(w, "...\t\t\tand %d more files\n", len(msgs)-dryRunPreview)
	}
	w.Flush()

	fmt.Fprintf(out, "total files: %d\n", len(msgs))
	fmt.Fprintf(out, "estimated total size: %s\n", humanize.Bytes(uint64(totalSize)))
}
