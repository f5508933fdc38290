package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gdsync/internal/gdsync"
)

const (
	driveFolderMimeType = "application/vnd.google-apps.folder"
	driveListFields     = "nextPageToken, files(id, name, mimeType, modifiedTime, md5Checksum, size, parents, trashed)"
	drivePageSize       = 1000
)

// DriveRemote implements gdsync.Remote on the Google Drive v3 API.
type DriveRemote struct {
	svc *drive.Service
}

// NewDriveRemote creates a remote over an authorized Drive service.
func NewDriveRemote(svc *drive.Service) *DriveRemote {
	return &DriveRemote{svc: svc}
}

// NewDriveRemoteFromCredentials authorizes with a service account or
// authorized user credentials JSON file.
func NewDriveRemoteFromCredentials(ctx context.Context, credentialsPath string) (*DriveRemote, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading drive credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parsing drive credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return NewDriveRemote(svc), nil
}

func (d *DriveRemote) ListChildren(ctx context.Context, folderID string) ([]*gdsync.RemoteNode, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))

	var nodes []*gdsync.RemoteNode
	err := d.svc.Files.List().
		Q(q).
		Fields(driveListFields).
		PageSize(drivePageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			// Parents hold resolved ids, never the "root" alias, so only
			// the trashed flag is rechecked here.
			for _, f := range page.Files {
				if f.Trashed {
					continue
				}
				nodes = append(nodes, driveNode(f))
			}
			return nil
		})
	if err != nil {
		return nil, driveNotFound(fmt.Errorf("listing %s: %w", folderID, err))
	}
	return nodes, nil
}

func (d *DriveRemote) CreateFile(ctx context.Context, parentID, name, contentType string, r io.Reader, modTime time.Time) (string, error) {
	meta := &drive.File{
		Name:         name,
		Parents:      []string{parentID},
		MimeType:     contentType,
		ModifiedTime: modTime.UTC().Format(time.RFC3339Nano),
	}

	f, err := d.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(contentType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("creating file %s: %w", name, err)
	}
	return f.Id, nil
}

func (d *DriveRemote) UpdateFileContent(ctx context.Context, id string, r io.Reader, modTime time.Time) error {
	meta := &drive.File{ModifiedTime: modTime.UTC().Format(time.RFC3339Nano)}

	_, err := d.svc.Files.Update(id, meta).
		Media(r).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return driveNotFound(fmt.Errorf("updating file %s: %w", id, err))
	}
	return nil
}

func (d *DriveRemote) DownloadFile(ctx context.Context, id string, w io.Writer) error {
	resp, err := d.svc.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return driveNotFound(fmt.Errorf("downloading file %s: %w", id, err))
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (d *DriveRemote) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(name), escapeQuery(parentID), driveFolderMimeType)

	list, err := d.svc.Files.List().
		Q(q).
		Fields("files(id, name, parents, trashed)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, driveNotFound(fmt.Errorf("finding folder %s: %w", name, err))
	}

	for _, f := range list.Files {
		if f.Name == name && !f.Trashed {
			return f.Id, true, nil
		}
	}
	return "", false, nil
}

func (d *DriveRemote) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: driveFolderMimeType,
	}

	f, err := d.svc.Files.Create(meta).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("creating folder %s: %w", name, err)
	}
	return f.Id, nil
}

func driveNode(f *drive.File) *gdsync.RemoteNode {
	node := &gdsync.RemoteNode{
		ID:   f.Id,
		Name: f.Name,
		Kind: gdsync.KindFile,
		Hash: f.Md5Checksum,
		Size: f.Size,
	}
	if f.MimeType == driveFolderMimeType {
		node.Kind = gdsync.KindFolder
		node.Size = -1
	}
	if t, err := time.Parse(time.RFC3339Nano, f.ModifiedTime); err == nil {
		node.ModifiedTime = t
	}
	return node
}

// escapeQuery escapes a value for use inside a single-quoted Drive query
// string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func driveNotFound(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", gdsync.ErrNotFound, err)
	}
	return err
}

var _ gdsync.Remote = (*DriveRemote)(nil)
