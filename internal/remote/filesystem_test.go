package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestFilesystemRemote_RejectsInvalidIDs(t *testing.T) {
	r := NewFilesystemRemoteFromFs(afero.NewMemMapFs())

	for _, id := range []string{"", "..", `a\b`} {
		if _, err := r.ListChildren(context.Background(), id); err == nil {
			t.Errorf("ListChildren(%q) expected error", id)
		}
	}
}

func TestFilesystemRemote_CreateReplacesSameName(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	r := NewFilesystemRemoteFromFs(fs)

	first, err := r.CreateFile(ctx, r.RootID(), "a.txt", "", strings.NewReader("one"), mtime)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	second, err := r.CreateFile(ctx, r.RootID(), "a.txt", "", strings.NewReader("two"), mtime)
	if err != nil {
		t.Fatalf("second CreateFile() error = %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %q vs %q", first, second)
	}

	data, _ := afero.ReadFile(fs, "/a.txt")
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}
}

func TestFilesystemRemote_HidesInProgressWrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/.gdsync-123.tmp", []byte("partial"), 0o644)
	afero.WriteFile(fs, "/real.txt", []byte("x"), 0o644)

	r := NewFilesystemRemoteFromFs(fs)
	nodes, err := r.ListChildren(context.Background(), r.RootID())
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0].Name != "real.txt" {
		t.Errorf("ListChildren() = %+v, want only real.txt", nodes)
	}
}

func TestFilesystemRemote_CreateFolderRequiresParent(t *testing.T) {
	r, err := NewFilesystemRemote(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemRemote() error = %v", err)
	}
	if _, err := r.CreateFolder(context.Background(), "B", "A"); err == nil {
		t.Error("CreateFolder() under a missing parent expected error")
	}
}
