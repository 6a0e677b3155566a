package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

// Presigned GET URLs are capped at seven days by S3; artifact lifetimes use
// the same default, so the clamp only matters for custom retention settings.
const maxPresignExpiry = 7 * 24 * time.Hour

const objectPrefix = "exports/"

// S3Store persists artifacts in a MinIO/S3 bucket and issues presigned GET
// URLs as download references.
type S3Store struct {
	client    *minio.Client
	bucket    string
	region    string
	retention time.Duration

	now func() time.Time
}

// NewS3Store wraps an initialized MinIO client. retention bounds how long
// swept objects are kept; it should match the job expiry policy.
func NewS3Store(client *minio.Client, bucket, region string, retention time.Duration) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		region:    region,
		retention: retention,
		now:       time.Now,
	}
}

// EnsureBucket makes sure the artifact bucket exists before first use.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Put uploads the artifact and returns a presigned GET URL valid until the
// artifact expires.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string, expiresAt time.Time) (string, error) {
	objectKey := objectPrefix + key
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", objectKey, err)
	}
	expiry := time.Until(expiresAt)
	if expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign artifact %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// UploadRaw stores an uploaded manuscript object awaiting import.
func (s *S3Store) UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, opts); err != nil {
		return fmt.Errorf("upload raw object %s: %w", objectKey, err)
	}
	return nil
}

// DownloadRaw fetches an uploaded manuscript's bytes.
func (s *S3Store) DownloadRaw(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get raw object %s: %w", objectKey, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read raw object %s: %w", objectKey, err)
	}
	return buf, nil
}

// RemoveExpired sweeps artifact objects older than the retention window.
// Object age stands in for per-object expiry since both derive from the
// completion time.
func (s *S3Store) RemoveExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("list artifacts: %w", obj.Err)
		}
		if !strings.HasPrefix(obj.Key, objectPrefix) || !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			logrus.WithField("object", obj.Key).WithError(err).Warn("remove expired artifact")
			continue
		}
		removed++
	}
	return removed, nil
}
