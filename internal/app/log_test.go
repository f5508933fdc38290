package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 123_000_000, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "sync create",
			want:    "2024-06-15T14:30:45.123Z\tINFO\top-123\tsync create\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "sync skip",
			want:    "2024-06-15T14:30:45.123Z\tDEBUG\top-456\tsync skip\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelError,
			message: "sync failed",
			attrs:   []slog.Attr{slog.String("path", "docs/file.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45.123Z\tERROR\top-789\tsync failed\tpath=docs/file.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &fileHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestFileHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &fileHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "remote")}).WithGroup("s3")

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=remote") {
		t.Errorf("expected pre-set attr component=remote, got: %q", got)
	}
	if !strings.Contains(got, "\ts3.key=abc") {
		t.Errorf("expected grouped attr s3.key=abc, got: %q", got)
	}
}

func TestFileHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := &fileHandler{opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*fileHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestFileHandler_Enabled(t *testing.T) {
	all := &fileHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}

	warn := &fileHandler{level: slog.LevelWarn}
	if warn.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(INFO) = true for a warn handler, want false")
	}
	if !warn.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(ERROR) = false for a warn handler, want true")
	}
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	logger := slog.New(multiHandler{
		&fileHandler{w: &debugBuf, opID: "op", level: slog.LevelDebug},
		&fileHandler{w: &warnBuf, opID: "op", level: slog.LevelWarn},
	}).With("run", 7)

	logger.Debug("detail")
	logger.Warn("careful")

	if got := strings.Count(debugBuf.String(), "\n"); got != 2 {
		t.Errorf("debug handler lines = %d, want 2", got)
	}
	if got := warnBuf.String(); !strings.Contains(got, "careful\trun=7") || strings.Contains(got, "detail") {
		t.Errorf("warn handler output = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		verbose bool
		want    slog.Level
		wantErr bool
	}{
		{name: "empty is info", level: "", want: slog.LevelInfo},
		{name: "debug", level: "debug", want: slog.LevelDebug},
		{name: "warn", level: "warn", want: slog.LevelWarn},
		{name: "verbose overrides", level: "error", verbose: true, want: slog.LevelDebug},
		{name: "invalid", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLevel(tt.level, tt.verbose)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", slog.LevelInfo, &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	logger.Debug("only in file")
	logger.Info("everywhere", "path", "a.txt")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "gdsync.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\tonly in file") {
		t.Errorf("log file missing debug line: %q", data)
	}
	if !strings.Contains(string(data), "\ttest-op\teverywhere\tpath=a.txt") {
		t.Errorf("log file missing info line: %q", data)
	}

	out := console.String()
	if strings.Contains(out, "only in file") {
		t.Errorf("console shows debug line at info level: %q", out)
	}
	if !strings.Contains(out, "everywhere") {
		t.Errorf("console missing info line: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("console output colored for a non-terminal: %q", out)
	}
}
