// Package objstore implements [vfs.FileSystem] over an S3-compatible
// object store, using aws-sdk-go-v2 for client setup and credentials.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/databuild/databuild/vfs"
)

// FileSystem implements [vfs.FileSystem] over a bucket/prefix pair.
type FileSystem struct {
	client *s3.Client
	bucket string
	prefix string
}

// Options configures [New]. It mirrors the context.FSKwargs bag a
// [catalog.Context] may carry for an "s3://" catalog URI.
type Options struct {
	Region         string
	Endpoint       string // for S3-compatible stores such as MinIO
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// New constructs a FileSystem rooted at s3://bucket/prefix.
func New(ctx context.Context, bucket, prefix string, opts Options) (*FileSystem, error) {
	if bucket == "" {
		return nil, errors.New("objstore: bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(region))
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &FileSystem{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (fs *FileSystem) key(p string) string {
	if fs.prefix == "" {
		return p
	}
	return path.Join(fs.prefix, p)
}

// Exists implements [vfs.FileSystem].
func (fs *FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	key := fs.key(p)
	_, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &fs.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("objstore: head %q: %w", p, err)
}

// OpenReader implements [vfs.FileSystem].
func (fs *FileSystem) OpenReader(ctx context.Context, p string) (io.ReadCloser, error) {
	key := fs.key(p)
	out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &fs.bucket, Key: &key})
	if isNotFound(err) {
		return nil, fmt.Errorf("objstore: get %q: %w: %w", p, os.ErrNotExist, err)
	}
	if err != nil {
		return nil, fmt.Errorf("objstore: get %q: %w", p, err)
	}
	return out.Body, nil
}

// OpenWriter implements [vfs.FileSystem]. Object stores have no concept of
// directories, so unlike the local backend this is a no-op with respect to
// parent creation; the whole object is buffered and committed on Close.
func (fs *FileSystem) OpenWriter(ctx context.Context, p string) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, fs: fs, path: p}, nil
}

type objectWriter struct {
	ctx  context.Context
	fs   *FileSystem
	path string
	buf  bytes.Buffer
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *objectWriter) Close() error {
	key := w.fs.key(w.path)
	_, err := w.fs.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: &w.fs.bucket,
		Key:    &key,
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("objstore: put %q: %w", w.path, err)
	}
	return nil
}

// Mkdir implements [vfs.FileSystem]. Object stores have no directories; this
// is always a no-op, matching the VFS contract that mkdir is idempotent.
func (fs *FileSystem) Mkdir(context.Context, string) error { return nil }

// LastUpdateTime implements [vfs.FileSystem]. A missing object reports the
// object-store sentinel minimum (year 1 UTC).
func (fs *FileSystem) LastUpdateTime(ctx context.Context, p string) (vfs.Timestamp, error) {
	key := fs.key(p)
	out, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &fs.bucket, Key: &key})
	if isNotFound(err) {
		return vfs.MinTimestamp(vfs.BackendObject), nil
	}
	if err != nil {
		return vfs.Timestamp{}, fmt.Errorf("objstore: head %q: %w", p, err)
	}
	lastModified := time.Time{}
	if out.LastModified != nil {
		lastModified = *out.LastModified
	}
	return vfs.Timestamp{Time: lastModified, Backend: vfs.BackendObject}, nil
}

// FullPath implements [vfs.FileSystem].
func (fs *FileSystem) FullPath(p string) string { return path.Join(fs.bucket, fs.key(p)) }

// URI implements [vfs.FileSystem].
func (fs *FileSystem) URI(p string) string { return "s3://" + fs.FullPath(p) }

// Listdir implements [vfs.FileSystem].
func (fs *FileSystem) Listdir(ctx context.Context, p string, includeHidden bool) ([]string, error) {
	prefix := fs.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	seen := make(map[string]bool)
	paginator := s3.NewListObjectsV2Paginator(fs.client, &s3.ListObjectsV2Input{
		Bucket:    &fs.bucket,
		Prefix:    &prefix,
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("objstore: listdir %q: %w", p, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" || (!includeHidden && strings.HasPrefix(name, ".")) {
				continue
			}
			seen[name] = true
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if name == "" || (!includeHidden && strings.HasPrefix(name, ".")) {
				continue
			}
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}
