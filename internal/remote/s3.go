package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gdsync/internal/gdsync"
)

const (
	// S3RootID is the id of the folder at the configured key prefix.
	S3RootID = "/"

	// mtimeMetadataKey holds the source modified time of an object.
	mtimeMetadataKey = "mtime"
)

// S3API is the subset of the S3 client used by S3Remote.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options configures an S3Remote built from the default AWS config chain.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // S3-compatible endpoint; switches to path-style addressing
	AccessKeyID     string // static credentials; the default chain is used when empty
	SecretAccessKey string
}

// S3Remote maps the remote folder model onto S3 keys. Folder ids are key
// prefixes relative to the configured prefix and end in "/" ("/" is the
// root); file ids are keys relative to the prefix. Folders are represented by
// zero-length marker objects so empty folders survive.
type S3Remote struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Remote creates a remote over an existing S3 client.
func NewS3Remote(client S3API, bucket, prefix string) *S3Remote {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Remote{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// NewS3RemoteFromOptions loads AWS configuration and creates the S3 client.
func NewS3RemoteFromOptions(ctx context.Context, opts S3Options) (*S3Remote, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Remote(client, opts.Bucket, opts.Prefix), nil
}

// RootID returns the id of the folder at the configured prefix.
func (r *S3Remote) RootID() string {
	return S3RootID
}

func (r *S3Remote) ListChildren(ctx context.Context, folderID string) ([]*gdsync.RemoteNode, error) {
	if !isFolderID(folderID) {
		return nil, fmt.Errorf("invalid folder id %q", folderID)
	}
	prefix := r.key(folderID)

	var nodes []*gdsync.RemoteNode
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", folderID, err)
		}

		for _, cp := range page.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
			if name == "" {
				continue
			}
			nodes = append(nodes, &gdsync.RemoteNode{
				ID:   r.id(key),
				Name: name,
				Kind: gdsync.KindFolder,
				Size: -1,
			})
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix || strings.HasSuffix(key, "/") {
				continue // folder marker
			}
			node, err := r.fileNode(ctx, key, obj)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// fileNode builds the node for a listed object. The source modified time lives
// in user metadata, which listings do not return, so it needs a HEAD request.
func (r *S3Remote) fileNode(ctx context.Context, key string, obj types.Object) (*gdsync.RemoteNode, error) {
	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("reading metadata of %s: %w", key, err)
	}

	return &gdsync.RemoteNode{
		ID:           r.id(key),
		Name:         path.Base(key),
		Kind:         gdsync.KindFile,
		ModifiedTime: modifiedTime(head.Metadata, aws.ToTime(obj.LastModified)),
		Hash:         strings.Trim(aws.ToString(obj.ETag), `"`),
		Size:         aws.ToInt64(obj.Size),
	}, nil
}

func (r *S3Remote) CreateFile(ctx context.Context, parentID, name, contentType string, src io.Reader, modTime time.Time) (string, error) {
	if !isFolderID(parentID) {
		return "", fmt.Errorf("invalid folder id %q", parentID)
	}
	key := r.key(parentID) + name
	if err := r.put(ctx, key, contentType, src, modTime); err != nil {
		return "", err
	}
	return r.id(key), nil
}

func (r *S3Remote) UpdateFileContent(ctx context.Context, id string, src io.Reader, modTime time.Time) error {
	key := r.key(id)
	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s3NotFound(fmt.Errorf("file %s: %w", id, err))
	}
	return r.put(ctx, key, aws.ToString(head.ContentType), src, modTime)
}

func (r *S3Remote) DownloadFile(ctx context.Context, id string, w io.Writer) error {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return s3NotFound(fmt.Errorf("file %s: %w", id, err))
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (r *S3Remote) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	if !isFolderID(parentID) {
		return "", false, fmt.Errorf("invalid folder id %q", parentID)
	}
	key := r.key(parentID) + name + "/"

	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", false, fmt.Errorf("finding folder %s: %w", name, err)
	}
	if len(out.Contents) == 0 {
		return "", false, nil
	}
	return r.id(key), true, nil
}

func (r *S3Remote) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if !isFolderID(parentID) {
		return "", fmt.Errorf("invalid folder id %q", parentID)
	}
	key := r.key(parentID) + name + "/"

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", fmt.Errorf("creating folder %s: %w", name, err)
	}
	return r.id(key), nil
}

func (r *S3Remote) put(ctx context.Context, key, contentType string, src io.Reader, modTime time.Time) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(r.bucket),
		Key:      aws.String(key),
		Body:     src,
		Metadata: map[string]string{mtimeMetadataKey: gdsync.FormatTime(modTime)},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := r.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// key returns the full object key for an id.
func (r *S3Remote) key(id string) string {
	return r.prefix + strings.TrimPrefix(id, "/")
}

// id returns the id of a full object key.
func (r *S3Remote) id(key string) string {
	id := strings.TrimPrefix(key, r.prefix)
	if id == "" {
		return S3RootID
	}
	return id
}

func isFolderID(id string) bool {
	return strings.HasSuffix(id, "/")
}

func modifiedTime(metadata map[string]string, fallback time.Time) time.Time {
	for k, v := range metadata {
		if strings.EqualFold(k, mtimeMetadataKey) {
			if t, err := gdsync.ParseTime(v); err == nil {
				return t
			}
		}
	}
	return fallback
}

func s3NotFound(err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", gdsync.ErrNotFound, err)
	}
	return err
}

var _ gdsync.Remote = (*S3Remote)(nil)
