package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Storage stores objects in a Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Storage authorises against B2 and resolves the bucket.
func NewB2Storage(ctx context.Context, keyID, applicationKey, bucketName string) (*B2Storage, error) {
	if keyID == "" || applicationKey == "" || bucketName == "" {
		return nil, fmt.Errorf("b2 credentials and bucket are required")
	}
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("get b2 bucket %s: %w", bucketName, err)
	}
	return &B2Storage{client: client, bucket: bucket}, nil
}

// Put streams the reader into the object identified by key.
func (s *B2Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return 0, err
	}
	writer := s.bucket.Object(cleaned).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	written, err := io.Copy(writer, r)
	if err != nil {
		writer.Close() //nolint:errcheck
		return 0, fmt.Errorf("upload object to b2: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close b2 writer: %w", err)
	}
	return written, nil
}

// Open returns a reader for the stored object.
func (s *B2Storage) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, 0, err
	}
	obj := s.bucket.Object(cleaned)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if b2.IsNotExist(err) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("stat b2 object: %w", err)
	}
	return obj.NewReader(ctx), attrs.Size, nil
}

// Stat returns the size of the stored object.
func (s *B2Storage) Stat(ctx context.Context, key string) (int64, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return 0, err
	}
	attrs, err := s.bucket.Object(cleaned).Attrs(ctx)
	if err != nil {
		if b2.IsNotExist(err) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("stat b2 object: %w", err)
	}
	return attrs.Size, nil
}

// Delete removes the object; a missing object is not an error.
func (s *B2Storage) Delete(ctx context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(cleaned).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("delete b2 object: %w", err)
	}
	return nil
}
