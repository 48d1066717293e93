package downloader

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Reporter observes download progress. Purely cosmetic: correctness
// never depends on it.
type Reporter interface {
	GroupStarted(index, total int)
	Progress(name string, received, total int64)
	FileDone(name string)
	FileFailed(name string)
	FileSkipped(name string)
}

// NopReporter discards all events. Used in tests and dry runs.
type NopReporter struct{}

func (NopReporter) GroupStarted(int, int)         {}
func (NopReporter) Progress(string, int64, int64) {}
func (NopReporter) FileDone(string)               {}
func (NopReporter) FileFailed(string)             {}
func (NopReporter) FileSkipped(string)            {}

// ConsoleReporter prints colored per-file progress. Progress lines are
// emitted at quarter milestones to keep concurrent output readable.
type ConsoleReporter struct {
	out io.Writer

	mu   sync.Mutex
	seen map[string]int64 // last reported quarter per file
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:  out,
		seen: make(map[string]int64),
	}
}

// GroupStarted announces the next download group.
func (r *ConsoleReporter) GroupStarted(index, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, color.CyanString("processing batch %d/%d", index, total))
}

// Progress prints a line each time a file crosses a quarter of its size.
func (r *ConsoleReporter) Progress(name string, received, total int64) {
	if total <= 0 {
		return
	}
	quarter := received * 4 / total

	r.mu.Lock()
	defer r.mu.Unlock()
	if quarter <= r.seen[name] || quarter >= 4 {
		return
	}
	r.seen[name] = quarter
	fmt.Fprintf(r.out, "  %s %3d%% (%s/%s)\n",
		name, quarter*25, humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total)))
}

// FileDone marks a completed file.
func (r *ConsoleReporter) FileDone(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, name)
	fmt.Fprintln(r.out, color.GreenString("✓ downloaded %s", name))
}

// FileFailed marks a failed file.
func (r *ConsoleReporter) FileFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, name)
	fmt.Fprintln(r.out, color.RedString("✗ failed %s", name))
}

// FileSkipped marks a file skipped via the ledger.
func (r *ConsoleReporter) FileSkipped(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, color.YellowString("- skipped %s (already downloaded)", name))
}
