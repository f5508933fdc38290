package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	localfs "gdsync/internal/fs"
	"gdsync/internal/gdsync"
)

// FilesystemRootID is the id of the root folder of a FilesystemRemote.
const FilesystemRootID = "."

// FilesystemRemote uses a directory as the remote store. Object ids are
// slash-separated paths relative to the root directory, and the modified time
// of an object is the mtime of its file.
type FilesystemRemote struct {
	fs    afero.Fs
	files *localfs.FilesystemManager
}

// NewFilesystemRemote creates a remote rooted at dir, creating dir if needed.
func NewFilesystemRemote(dir string) (*FilesystemRemote, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create remote root: %w", err)
	}
	return NewFilesystemRemoteFromFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewFilesystemRemoteFromFs creates a remote over an existing afero
// filesystem, whose root is the remote root.
func NewFilesystemRemoteFromFs(fs afero.Fs) *FilesystemRemote {
	return &FilesystemRemote{fs: fs, files: localfs.NewFilesystemManager(fs)}
}

// RootID returns the id of the root folder.
func (r *FilesystemRemote) RootID() string {
	return FilesystemRootID
}

func (r *FilesystemRemote) ListChildren(ctx context.Context, folderID string) ([]*gdsync.RemoteNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := r.resolve(folderID)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, notFound(fmt.Errorf("listing %s: %w", folderID, err))
	}

	nodes := make([]*gdsync.RemoteNode, 0, len(entries))
	for _, info := range entries {
		if localfs.IsTempFile(info.Name()) {
			continue
		}
		node := &gdsync.RemoteNode{
			ID:           path.Join(folderID, info.Name()),
			Name:         info.Name(),
			Kind:         gdsync.KindFile,
			ModifiedTime: info.ModTime(),
			Size:         info.Size(),
		}
		if info.IsDir() {
			node.Kind = gdsync.KindFolder
			node.Size = -1
		} else if !info.Mode().IsRegular() {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// CreateFile writes a file called name under parentID. An existing file of
// the same name is replaced, since a directory cannot hold two.
func (r *FilesystemRemote) CreateFile(ctx context.Context, parentID, name, contentType string, src io.Reader, modTime time.Time) (string, error) {
	dir, err := r.resolve(parentID)
	if err != nil {
		return "", err
	}
	if _, err := r.fs.Stat(dir); err != nil {
		return "", notFound(fmt.Errorf("folder %s: %w", parentID, err))
	}

	id := path.Join(parentID, name)
	if err := r.write(ctx, id, src, modTime); err != nil {
		return "", err
	}
	return id, nil
}

func (r *FilesystemRemote) UpdateFileContent(ctx context.Context, id string, src io.Reader, modTime time.Time) error {
	p, err := r.resolve(id)
	if err != nil {
		return err
	}
	info, err := r.fs.Stat(p)
	if err != nil {
		return notFound(fmt.Errorf("file %s: %w", id, err))
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a folder", id)
	}
	return r.write(ctx, id, src, modTime)
}

func (r *FilesystemRemote) DownloadFile(ctx context.Context, id string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := r.resolve(id)
	if err != nil {
		return err
	}

	f, err := r.files.Open(p)
	if err != nil {
		return notFound(fmt.Errorf("file %s: %w", id, err))
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (r *FilesystemRemote) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	id := path.Join(parentID, name)
	p, err := r.resolve(id)
	if err != nil {
		return "", false, err
	}
	info, err := r.fs.Stat(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("checking folder %s: %w", id, err)
	}
	if !info.IsDir() {
		return "", false, nil
	}
	return id, true, nil
}

func (r *FilesystemRemote) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := path.Join(parentID, name)
	p, err := r.resolve(id)
	if err != nil {
		return "", err
	}
	if err := r.fs.Mkdir(p, 0o755); err != nil {
		return "", fmt.Errorf("creating folder %s: %w", id, err)
	}
	return id, nil
}

func (r *FilesystemRemote) write(ctx context.Context, id string, src io.Reader, modTime time.Time) error {
	p, err := r.resolve(id)
	if err != nil {
		return err
	}

	err = r.files.WriteFile(p, func(w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", id, err)
	}
	if err := r.files.Chtimes(p, modTime); err != nil {
		return fmt.Errorf("setting modified time on %s: %w", id, err)
	}
	return nil
}

// resolve maps an object id to a path inside the remote filesystem.
func (r *FilesystemRemote) resolve(id string) (string, error) {
	clean := path.Clean("/" + id)
	if strings.Contains(id, "\\") || (id != FilesystemRootID && clean == "/") {
		return "", fmt.Errorf("invalid object id %q", id)
	}
	return clean, nil
}

func notFound(err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %w", gdsync.ErrNotFound, err)
	}
	return err
}

var _ gdsync.Remote = (*FilesystemRemote)(nil)
