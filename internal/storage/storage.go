// Package storage reads and writes objects addressed by bucket and key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// BucketPlaceholder is replaced by the bucket name in a URL template
const BucketPlaceholder = "{bucket}"

// ObjectStore is the bucket/key storage the ingestor reads raw emails from and writes
// parsed output to
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Opener opens the blob bucket behind a bucket name
type Opener func(ctx context.Context, name string) (*blob.Bucket, error)

// DirOpener keeps each bucket as a directory under root
func DirOpener(root string) Opener {
	return func(_ context.Context, name string) (*blob.Bucket, error) {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", name, err)
		}
		return fileblob.OpenBucket(dir, nil)
	}
}

// URLOpener opens buckets through a gocloud URL, e.g. "s3://{bucket}?region=eu-west-1"
// or "file:///srv/ingest/{bucket}"
func URLOpener(template string) Opener {
	return func(ctx context.Context, name string) (*blob.Bucket, error) {
		return blob.OpenBucket(ctx, strings.ReplaceAll(template, BucketPlaceholder, name))
	}
}

// MemOpener keeps every bucket in memory
func MemOpener() Opener {
	return func(context.Context, string) (*blob.Bucket, error) {
		return memblob.OpenBucket(nil), nil
	}
}

// BlobStore serves ObjectStore from gocloud blob buckets, opened on first use and kept
// until Close
type BlobStore struct {
	open Opener

	mu      sync.Mutex
	buckets map[string]*blob.Bucket
}

// NewBlobStore returns a store opening buckets with open
func NewBlobStore(open Opener) *BlobStore {
	return &BlobStore{open: open, buckets: make(map[string]*blob.Bucket)}
}

func (s *BlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, err
	}

	data, err := b.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put replaces the object at bucket/key with body
func (s *BlobStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return err
	}

	if err := b.WriteAll(ctx, key, body, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("write %s/%s: %w", bucket, key, err)
	}
	return nil
}

// List returns the keys in bucket that start with prefix
func (s *BlobStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, err
	}

	var keys []string
	it := b.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Close closes every opened bucket
func (s *BlobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, b := range s.buckets {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bucket %s: %w", name, err))
		}
		delete(s.buckets, name)
	}
	return errors.Join(errs...)
}

// bucket validates the bucket name and returns the opened bucket
func (s *BlobStore) bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: bucket %q", ErrInvalidKey, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	b, err := s.open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	s.buckets[name] = b
	return b, nil
}

// checkKey rejects keys that are empty, absolute or climb out of the bucket
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
