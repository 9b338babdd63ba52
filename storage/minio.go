package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ArtistHub/config"
	"ArtistHub/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when a referenced object is already gone.
var ErrObjectNotFound = errors.New("object not found")

const (
	// ServePrefix is the URL prefix under which stored objects are served.
	ServePrefix   = "/static/"
	artworkPrefix = "artwork/"
)

// InitMinio connects to MinIO and makes sure the configured bucket exists.
func InitMinio(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO client ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return client, nil
}

// ArtworkStore keeps release artwork in a MinIO bucket.
type ArtworkStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewArtworkStore creates an ArtworkStore writing to bucket.
func NewArtworkStore(client *minio.Client, bucket string) *ArtworkStore {
	return &ArtworkStore{client: client, bucket: bucket, now: time.Now}
}

// Upload stores an artwork file and returns the reference to persist on the release.
func (s *ArtworkStore) Upload(ctx context.Context, userID int64, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(userID, s.now(), filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to MinIO: %w", key, err)
	}
	return ServePrefix + key, nil
}

// Delete removes the object behind ref. Missing objects yield ErrObjectNotFound.
func (s *ArtworkStore) Delete(ctx context.Context, ref string) error {
	key, ok := KeyFromReference(ref)
	if !ok {
		return fmt.Errorf("%q is not a stored artwork reference", ref)
	}

	// RemoveObject succeeds for missing keys, so stat first to report not-found.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Open returns a reader for an object key along with its metadata.
func (s *ArtworkStore) Open(ctx context.Context, key string) (io.ReadCloser, minio.ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minio.ObjectInfo{}, fmt.Errorf("failed to open %s: %w", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, minio.ObjectInfo{}, ErrObjectNotFound
		}
		return nil, minio.ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return obj, info, nil
}

// ObjectKey derives the storage key from owner, upload time and original filename.
func ObjectKey(userID int64, at time.Time, filename string) string {
	return fmt.Sprintf("%s%d/%d_%s", artworkPrefix, userID, at.UnixMilli(), SafeFilename(filename))
}

// KeyFromReference maps a stored reference back to its object key.
// Only references produced by Upload are accepted.
func KeyFromReference(ref string) (string, bool) {
	if !IsManagedReference(ref) {
		return "", false
	}
	return strings.TrimPrefix(ref, ServePrefix), true
}

// IsManagedReference reports whether ref points at uploaded artwork.
func IsManagedReference(ref string) bool {
	return strings.HasPrefix(ref, ServePrefix+artworkPrefix) && len(ref) > len(ServePrefix+artworkPrefix)
}

// SafeFilename keeps letters, digits, '-' and '_' in the base name.
func SafeFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "artwork"
	}
	if len(base) > 100 {
		base = base[:100]
	}
	ext = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, ext)
	return base + ext
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
