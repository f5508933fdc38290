package gdsync_test

import (
	"errors"
	"testing"
	"time"

	"gdsync/internal/gdsync"
)

func TestSummary_Add(t *testing.T) {
	var s gdsync.Summary
	s.Add(gdsync.Result{Path: "A", Kind: gdsync.KindFolder, Action: gdsync.ActionCreate})
	s.Add(gdsync.Result{Path: "A/a", Kind: gdsync.KindFile, Action: gdsync.ActionCreate})
	s.Add(gdsync.Result{Path: "b", Kind: gdsync.KindFile, Action: gdsync.ActionUpdate})
	s.Add(gdsync.Result{Path: "c", Kind: gdsync.KindFile, Action: gdsync.ActionFetch})
	s.Add(gdsync.Result{Path: "d", Kind: gdsync.KindFile, Action: gdsync.ActionSkip})
	s.Add(gdsync.Result{Path: "E", Kind: gdsync.KindFolder, Action: gdsync.ActionFailed, Err: errors.New("x")})

	want := gdsync.Counts{Created: 1, Updated: 1, Fetched: 1, Skipped: 1, Failed: 1}
	if s.Counts != want {
		t.Errorf("Counts = %+v, want %+v", s.Counts, want)
	}
	if got := s.Counts.Transferred(); got != 3 {
		t.Errorf("Transferred() = %d, want 3", got)
	}
	if len(s.Results) != 6 {
		t.Errorf("len(Results) = %d, want 6", len(s.Results))
	}
	if f := s.Failures(); len(f) != 1 || f[0].Path != "E" {
		t.Errorf("Failures() = %v", f)
	}

	var merged gdsync.Summary
	merged.Merge(&s)
	merged.Merge(&s)
	if merged.Counts.Created != 2 || len(merged.Results) != 12 {
		t.Errorf("merged = %+v", merged.Counts)
	}
}

func TestResult_String(t *testing.T) {
	tests := []struct {
		res  gdsync.Result
		want string
	}{
		{gdsync.Result{Path: "a.txt", Action: gdsync.ActionCreate}, "create a.txt"},
		{gdsync.Result{Path: "A/B", Kind: gdsync.KindFolder, Action: gdsync.ActionExists}, "exists A/B/"},
		{gdsync.Result{Path: "x", Action: gdsync.ActionFailed, Err: errors.New("boom")}, "failed x: boom"},
		{gdsync.Result{Path: "y", Action: gdsync.Action(42)}, "action(42) y"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.res.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 5, 1, 14, 0, 0, 123_456_789, loc)

	got := gdsync.CanonicalTime(in)
	want := time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("CanonicalTime() = %v, want %v", got, want)
	}

	s := gdsync.FormatTime(in)
	if s != "2024-05-01T12:00:00.123Z" {
		t.Errorf("FormatTime() = %q", s)
	}
	back, err := gdsync.ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	if !back.Equal(want) {
		t.Errorf("ParseTime() = %v, want %v", back, want)
	}

	if _, err := gdsync.ParseTime("yesterday"); err == nil {
		t.Error("ParseTime(yesterday) error = nil, want error")
	}
}
