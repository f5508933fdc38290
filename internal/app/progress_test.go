package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gdsync/internal/gdsync"
)

func TestConsoleProgress(t *testing.T) {
	t.Run("prints every step and the final line", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsoleProgress(&buf)

		p.Progress("big.bin", 100, 3<<20)
		p.Progress("big.bin", 1<<20, 3<<20)
		p.Progress("big.bin", 1<<20+10, 3<<20)
		p.Progress("big.bin", 3<<20, 3<<20)

		got := buf.String()
		want := "\rbig.bin  1.0 MiB / 3.0 MiB\rbig.bin  3.0 MiB / 3.0 MiB\n"
		if got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("small file prints once when done", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsoleProgress(&buf)

		p.Progress("a.txt", 5, 10)
		p.Progress("a.txt", 10, 10)

		if got, want := buf.String(), "\ra.txt  10 B / 10 B\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("unknown total", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsoleProgress(&buf)

		p.Progress("enc.bin", 2<<20, -1)

		if got, want := buf.String(), "\renc.bin  2.0 MiB"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})
}

func TestConsoleReporter(t *testing.T) {
	results := []gdsync.Result{
		{Direction: gdsync.DirectionPush, Path: "a.txt", Kind: gdsync.KindFile, Action: gdsync.ActionCreate},
		{Direction: gdsync.DirectionPush, Path: "b.txt", Kind: gdsync.KindFile, Action: gdsync.ActionSkip},
		{Direction: gdsync.DirectionPull, Path: "A", Kind: gdsync.KindFolder, Action: gdsync.ActionExists},
		{Direction: gdsync.DirectionPull, Path: "c.txt", Kind: gdsync.KindFile, Action: gdsync.ActionFailed, Err: errors.New("boom")},
	}

	tests := []struct {
		name    string
		verbose bool
		lines   int
	}{
		{name: "quiet hides skips", verbose: false, lines: 2},
		{name: "verbose shows everything", verbose: true, lines: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewConsoleReporter(&buf, tt.verbose)
			for _, res := range results {
				r.Report(res)
			}

			got := buf.String()
			if n := strings.Count(got, "\n"); n != tt.lines {
				t.Errorf("lines = %d, want %d:\n%s", n, tt.lines, got)
			}
			if !strings.Contains(got, "push create a.txt") {
				t.Errorf("missing create line:\n%s", got)
			}
			if !strings.Contains(got, "pull failed c.txt: boom") {
				t.Errorf("missing failure line:\n%s", got)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	s := &gdsync.Summary{Counts: gdsync.Counts{Created: 1200, Updated: 3, Fetched: 0, Skipped: 15, Failed: 1}}

	want := "1,200 created, 3 updated, 0 fetched, 15 skipped, 1 failed"
	if got := FormatSummary(s); got != want {
		t.Errorf("FormatSummary() = %q, want %q", got, want)
	}
}
