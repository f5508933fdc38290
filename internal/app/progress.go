package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"gdsync/internal/gdsync"
)

// progressStep is the minimum number of bytes between two progress lines for
// the same file.
const progressStep = 1 << 20

// ConsoleProgress renders transfer progress as a single rewritten line per file.
type ConsoleProgress struct {
	mu      sync.Mutex
	w       io.Writer
	name    string
	printed int64
}

var _ gdsync.ProgressObserver = (*ConsoleProgress)(nil)

// NewConsoleProgress creates a ConsoleProgress writing to w.
func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	return &ConsoleProgress{w: w}
}

func (p *ConsoleProgress) Progress(name string, transferred, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name != p.name {
		p.name = name
		p.printed = 0
	}
	done := total >= 0 && transferred >= total
	if !done && transferred-p.printed < progressStep {
		return
	}
	p.printed = transferred

	if total < 0 {
		fmt.Fprintf(p.w, "\r%s  %s", name, humanize.IBytes(uint64(transferred)))
		return
	}
	fmt.Fprintf(p.w, "\r%s  %s / %s", name, humanize.IBytes(uint64(transferred)), humanize.IBytes(uint64(total)))
	if done {
		fmt.Fprintln(p.w)
	}
}

// ConsoleReporter prints one line per reconciled file or folder.
type ConsoleReporter struct {
	w       io.Writer
	verbose bool
}

var _ gdsync.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a ConsoleReporter. Skipped files and existing
// folders are only printed when verbose is set.
func NewConsoleReporter(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, verbose: verbose}
}

func (r *ConsoleReporter) Report(res gdsync.Result) {
	if !r.verbose && (res.Action == gdsync.ActionSkip || res.Action == gdsync.ActionExists) {
		return
	}
	fmt.Fprintf(r.w, "%-4s %s\n", res.Direction, res)
}

// FormatSummary renders the totals of a sync run.
func FormatSummary(s *gdsync.Summary) string {
	c := s.Counts
	return fmt.Sprintf("%s created, %s updated, %s fetched, %s skipped, %s failed",
		humanize.Comma(int64(c.Created)),
		humanize.Comma(int64(c.Updated)),
		humanize.Comma(int64(c.Fetched)),
		humanize.Comma(int64(c.Skipped)),
		humanize.Comma(int64(c.Failed)))
}
