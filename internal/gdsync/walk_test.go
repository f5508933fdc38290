package gdsync_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"gdsync/internal/gdsync"
	"gdsync/internal/testutil"
)

func TestLocalWalker_Walk(t *testing.T) {
	fsmgr := testutil.NewMemFS()
	testutil.WriteFile(t, fsmgr, "/sync/a.txt", "a", t0)
	testutil.WriteFile(t, fsmgr, "/sync/A/B/c.txt", "ccc", t0.Add(1500*time.Microsecond))
	if err := fsmgr.MkdirAll("/sync/empty"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	var rels []string
	var deep *gdsync.LocalNode
	for node, err := range gdsync.NewLocalWalker(fsmgr).Walk("/sync") {
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		rels = append(rels, node.RelPath)
		if node.RelPath == "A/B/c.txt" {
			deep = node
		}
	}
	sort.Strings(rels)

	if got := strings.Join(rels, ","); got != "A/B/c.txt,a.txt" {
		t.Errorf("walked = %q, want %q", got, "A/B/c.txt,a.txt")
	}
	if deep == nil {
		t.Fatal("A/B/c.txt not walked")
	}
	if deep.Path != "/sync/A/B/c.txt" || deep.Size != 3 {
		t.Errorf("node = %+v", deep)
	}
	if want := t0.Add(time.Millisecond); !deep.ModifiedTime.Equal(want) {
		t.Errorf("ModifiedTime = %v, want %v (millisecond precision)", deep.ModifiedTime, want)
	}
}

func TestLocalWalker_CreatesMissingRoot(t *testing.T) {
	fsmgr := testutil.NewMemFS()

	n := 0
	for _, err := range gdsync.NewLocalWalker(fsmgr).Walk("/new/root") {
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		n++
	}
	if n != 0 {
		t.Errorf("walked %d files, want 0", n)
	}
	if info, err := fsmgr.Stat("/new/root"); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestLocalWalker_StopsEarly(t *testing.T) {
	fsmgr := testutil.NewMemFS()
	for _, name := range []string{"a", "b", "c"} {
		testutil.WriteFile(t, fsmgr, "/sync/"+name, name, t0)
	}

	n := 0
	for range gdsync.NewLocalWalker(fsmgr).Walk("/sync") {
		n++
		if n == 1 {
			break
		}
	}
	if n != 1 {
		t.Errorf("iterations = %d, want 1", n)
	}
}

func TestLocalWalker_OnlyDownloadTempFilesExcluded(t *testing.T) {
	fsmgr := testutil.NewMemFS()
	testutil.WriteFile(t, fsmgr, "/sync/.hidden", "h", t0)
	testutil.WriteFile(t, fsmgr, "/sync/.gdsync-notes.txt", "n", t0)
	testutil.WriteFile(t, fsmgr, "/sync/.gdsync-4711.tmp", "partial", t0)

	var rels []string
	for node, err := range gdsync.NewLocalWalker(fsmgr).Walk("/sync") {
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		rels = append(rels, node.RelPath)
	}
	sort.Strings(rels)

	if got := strings.Join(rels, ","); got != ".gdsync-notes.txt,.hidden" {
		t.Errorf("walked = %q, want %q", got, ".gdsync-notes.txt,.hidden")
	}
}

func TestRemoteWalker_Walk(t *testing.T) {
	mem := testutil.NewTestRemote()
	fsmgr := testutil.NewMemFS()
	a := mem.AddFolder(mem.RootID(), "A")
	mem.AddFile(a, "in-a.txt", []byte("x"), t0)
	b := mem.AddFolder(a, "B")
	mem.AddFile(b, "in-b.txt", []byte("y"), t0)
	trashed := mem.AddFile(mem.RootID(), "trashed.txt", []byte("z"), t0)
	mem.Trash(trashed)
	if err := fsmgr.MkdirAll("/sync/A"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	seen := map[string]*gdsync.RemoteEntry{}
	var order []string
	for entry, err := range gdsync.NewRemoteWalker(mem, fsmgr).Walk(context.Background(), mem.RootID(), "/sync") {
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		seen[entry.RelPath()] = entry
		order = append(order, entry.RelPath())
	}

	if len(seen) != 4 {
		t.Fatalf("walked %v, want 4 entries", order)
	}
	if _, ok := seen["trashed.txt"]; ok {
		t.Error("trashed file walked")
	}
	if seen["A"].Created {
		t.Error("existing local dir A reported as created")
	}
	if !seen["A/B"].Created {
		t.Error("missing local dir A/B not reported as created")
	}
	if got := seen["A/B/in-b.txt"].LocalPath(); got != "/sync/A/B/in-b.txt" {
		t.Errorf("LocalPath() = %q", got)
	}

	index := func(rel string) int {
		for i, r := range order {
			if r == rel {
				return i
			}
		}
		return -1
	}
	if index("A/B") > index("A/B/in-b.txt") {
		t.Errorf("folder yielded after its children: %v", order)
	}
}

func TestRemoteWalker_LocalFileBlocksFolder(t *testing.T) {
	mem := testutil.NewTestRemote()
	fsmgr := testutil.NewMemFS()
	a := mem.AddFolder(mem.RootID(), "A")
	mem.AddFile(a, "x.txt", []byte("x"), t0)
	testutil.WriteFile(t, fsmgr, "/sync/A", "i am a file", t0)

	var errs []error
	for entry, err := range gdsync.NewRemoteWalker(mem, fsmgr).Walk(context.Background(), mem.RootID(), "/sync") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Errorf("unexpected entry %q", entry.RelPath())
	}

	var werr *gdsync.WalkError
	if len(errs) != 1 || !errors.As(errs[0], &werr) || werr.RelPath != "A" {
		t.Fatalf("errors = %v, want one WalkError for A", errs)
	}
}

func TestRemoteWalker_NameCollision(t *testing.T) {
	mem := testutil.NewTestRemote()
	fsmgr := testutil.NewMemFS()
	older := mem.AddFolder(mem.RootID(), "A")
	mem.AddFile(older, "lost.txt", []byte("x"), t0)
	newer := mem.AddFile(mem.RootID(), "A", []byte("file named A"), t0.Add(time.Hour))

	var entries []string
	var errs []error
	for entry, err := range gdsync.NewRemoteWalker(mem, fsmgr).Walk(context.Background(), mem.RootID(), "/sync") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry.Node.ID)
	}

	if len(entries) != 1 || entries[0] != newer {
		t.Errorf("entries = %v, want only %s", entries, newer)
	}
	if len(errs) != 1 || !errors.Is(errs[0], gdsync.ErrNameCollision) {
		t.Fatalf("errors = %v, want one ErrNameCollision", errs)
	}
	if _, err := fsmgr.Stat("/sync/A"); err == nil {
		t.Error("losing folder was mirrored locally")
	}
}
