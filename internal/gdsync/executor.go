package gdsync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// defaultContentType is used when neither the file name nor its leading bytes
// identify the content.
const defaultContentType = "application/octet-stream"

// sniffLen is the number of leading bytes inspected for content detection.
const sniffLen = 512

// Executor performs transfers against the remote and keeps the folder-path
// cache for one invocation.
type Executor struct {
	remote   Remote
	fsmgr    FilesystemManager
	codec    Codec
	observer ProgressObserver
	logger   Logger

	rootID  string
	folders map[string]string // relative local dir -> remote folder id
}

// NewExecutor creates an Executor rooted at the remote folder rootID.
// codec may be nil for plain transfers and observer may be nil to discard
// progress.
func NewExecutor(remote Remote, fsmgr FilesystemManager, rootID string, codec Codec, observer ProgressObserver, logger Logger) *Executor {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Executor{
		remote:   remote,
		fsmgr:    fsmgr,
		codec:    codec,
		observer: observer,
		logger:   logger,
		rootID:   rootID,
		folders:  map[string]string{".": rootID},
	}
}

// Remote returns the remote the executor transfers to.
func (e *Executor) Remote() Remote {
	return e.remote
}

// Upload creates node as a new remote file under parentID and returns its id.
func (e *Executor) Upload(ctx context.Context, node *LocalNode, parentID string) (string, error) {
	f, err := e.fsmgr.Open(node.Path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", node.Path, err)
	}
	defer f.Close()

	name := path.Base(node.RelPath)
	br := bufio.NewReader(f)
	contentType := detectContentType(name, br)
	src := newProgressReader(br, node.RelPath, node.Size, e.observer)

	var id string
	err = e.encode(src, func(r io.Reader) error {
		var err error
		id, err = e.remote.CreateFile(ctx, parentID, name, contentType, r, node.ModifiedTime)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", node.RelPath, err)
	}

	e.logger.Debug("file uploaded", "path", node.RelPath, "id", id, "content_type", contentType)
	return id, nil
}

// UpdateContent overwrites the content of remote file id with node.
func (e *Executor) UpdateContent(ctx context.Context, id string, node *LocalNode) error {
	f, err := e.fsmgr.Open(node.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", node.Path, err)
	}
	defer f.Close()

	src := newProgressReader(f, node.RelPath, node.Size, e.observer)
	err = e.encode(src, func(r io.Reader) error {
		return e.remote.UpdateFileContent(ctx, id, r, node.ModifiedTime)
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", node.RelPath, err)
	}

	e.logger.Debug("file content updated", "path", node.RelPath, "id", id)
	return nil
}

// Download fetches remote file node into localPath, replacing any existing
// content, and stamps the local file with the node's modified time.
func (e *Executor) Download(ctx context.Context, node *RemoteNode, localPath string) error {
	total := node.Size
	if e.codec != nil {
		// Stored size is the ciphertext size.
		total = -1
	}

	err := e.fsmgr.WriteFile(localPath, func(w io.Writer) error {
		dst := newProgressWriter(w, node.Name, total, e.observer)
		return e.decode(dst, func(w io.Writer) error {
			return e.remote.DownloadFile(ctx, node.ID, w)
		})
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", node.Name, err)
	}

	if err := e.fsmgr.Chtimes(localPath, node.ModifiedTime); err != nil {
		return fmt.Errorf("setting modification time on %s: %w", localPath, err)
	}

	e.logger.Debug("file downloaded", "path", localPath, "id", node.ID)
	return nil
}

// EnsureFolder returns the id of the folder called name under parentID,
// creating it only if it does not exist yet.
func (e *Executor) EnsureFolder(ctx context.Context, name, parentID string) (id string, created bool, err error) {
	id, found, err := e.remote.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", false, fmt.Errorf("finding folder %s: %w", name, err)
	}
	if found {
		return id, false, nil
	}

	id, err = e.remote.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", false, fmt.Errorf("creating folder %s: %w", name, err)
	}
	return id, true, nil
}

// EnsureFolderPath resolves the remote folder that mirrors the relative local
// directory relDir, creating missing folders along the way. Resolved folders
// are cached for the lifetime of the Executor. onFolder, if non-nil, is
// called once for every folder resolved remotely (not from the cache).
func (e *Executor) EnsureFolderPath(ctx context.Context, relDir string, onFolder func(relPath, id string, created bool)) (string, error) {
	relDir = path.Clean(relDir)
	if id, ok := e.folders[relDir]; ok {
		return id, nil
	}

	parentID := e.rootID
	current := "."
	for _, segment := range strings.Split(relDir, "/") {
		current = path.Join(current, segment)
		if id, ok := e.folders[current]; ok {
			parentID = id
			continue
		}

		id, created, err := e.EnsureFolder(ctx, segment, parentID)
		if err != nil {
			return "", err
		}
		e.folders[current] = id
		if onFolder != nil {
			onFolder(current, id, created)
		}
		parentID = id
	}
	return parentID, nil
}

// encode feeds src to send, through the codec when one is configured.
func (e *Executor) encode(src io.Reader, send func(r io.Reader) error) error {
	if e.codec == nil {
		return send(src)
	}

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := e.codec.Encrypt(src, pw)
		pw.CloseWithError(err)
		errc <- err
	}()

	sendErr := send(pr)
	pr.Close()
	encErr := <-errc
	if sendErr != nil {
		return sendErr
	}
	if encErr != nil {
		return fmt.Errorf("encrypting: %w", encErr)
	}
	return nil
}

// decode lets receive write into dst, through the codec when one is configured.
func (e *Executor) decode(dst io.Writer, receive func(w io.Writer) error) error {
	if e.codec == nil {
		return receive(dst)
	}

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := e.codec.Decrypt(pr, dst)
		pr.CloseWithError(err)
		errc <- err
	}()

	recvErr := receive(pw)
	pw.CloseWithError(recvErr)
	decErr := <-errc
	if recvErr != nil {
		return recvErr
	}
	if decErr != nil {
		return fmt.Errorf("decrypting: %w", decErr)
	}
	return nil
}

// detectContentType infers a MIME type from the file name, falling back to
// sniffing the first bytes of br without consuming them.
func detectContentType(name string, br *bufio.Reader) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	head, _ := br.Peek(sniffLen)
	if len(head) == 0 {
		return defaultContentType
	}
	return mimetype.Detect(head).String()
}
