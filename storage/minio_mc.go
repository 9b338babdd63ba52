package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ArtistHub/logger"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
)

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketStats summarises a listing.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// String renders the stats for CLI output.
func (b BucketStats) String() string {
	last := "-"
	if !b.LastModified.IsZero() {
		last = b.LastModified.Format(time.RFC3339)
	}
	return fmt.Sprintf("%d objects, %s, last modified %s",
		b.TotalObjects, humanize.IBytes(uint64(b.TotalSize)), last)
}

// ArtworkPrefix returns the listing prefix for one user's artwork, or all artwork when userID is 0.
func ArtworkPrefix(userID int64) string {
	if userID == 0 {
		return artworkPrefix
	}
	return fmt.Sprintf("%s%d/", artworkPrefix, userID)
}

// ListArtwork lists stored artwork objects sorted by key.
func (s *ArtworkStore) ListArtwork(ctx context.Context, userID int64) ([]ObjectInfo, BucketStats, error) {
	var (
		objects []ObjectInfo
		stats   BucketStats
	)

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    ArtworkPrefix(userID),
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, stats, fmt.Errorf("failed to list artwork: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}

// FindOrphans returns the keys of objects that no release references.
func FindOrphans(objects []ObjectInfo, referenced map[string]struct{}) []string {
	var orphans []string
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; !ok {
			orphans = append(orphans, obj.Key)
		}
	}
	return orphans
}

// RemoveKeys deletes keys in one batch request.
func (s *ArtworkStore) RemoveKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			objectsCh <- minio.ObjectInfo{Key: key}
		}
	}()

	var failed int
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			failed++
			logger.Error("Failed to remove artwork object",
				logger.String("key", rErr.ObjectName),
				logger.ErrorField(rErr.Err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to remove %d of %d objects", failed, len(keys))
	}
	return nil
}
