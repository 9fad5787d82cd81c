// Package media stores item photos in an S3-compatible object store.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"campusfind/internal/util"
)

// ErrBadDataURL is returned when an upload body is not a base64 data URL.
var ErrBadDataURL = errors.New("media: malformed data url")

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store wraps a MinIO bucket holding item photos.
type Store struct {
	client *minio.Client
	bucket string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewStore connects to the object store and ensures the bucket exists.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Store{client: client, bucket: opts.Bucket}, nil
}

// PutDataURL decodes a base64 data URL from the report form and stores it,
// returning the object key.
func (s *Store) PutDataURL(ctx context.Context, dataURL string) (string, error) {
	contentType, payload, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}

	ext := extByContentType[contentType]
	if ext == "" {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrBadDataURL, contentType)
	}

	key := util.NewID("photo") + ext
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a time-limited download URL for a stored photo.
func (s *Store) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes a stored photo. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func parseDataURL(dataURL string) (contentType string, payload []byte, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, ErrBadDataURL
	}
	meta, encoded, ok := strings.Cut(dataURL[len("data:"):], ",")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	contentType, _, _ = strings.Cut(meta, ";")
	if !strings.Contains(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrBadDataURL)
	}
	payload, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return contentType, payload, nil
}
