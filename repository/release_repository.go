package repository

import (
	"context"
	"errors"
	"fmt"

	"ArtistHub/model"

	"gorm.io/gorm"
)

// ErrReleaseNotFound is returned by Update when no row matches, e.g. the
// release was deleted after it was loaded.
var ErrReleaseNotFound = errors.New("release not found")

// ReleaseRepository stores release documents addressed by (userID, releaseID).
type ReleaseRepository interface {
	// Create 创建新发行
	Create(ctx context.Context, release *model.Release) error

	// GetByID returns nil, nil when the user owns no release with that id.
	GetByID(ctx context.Context, userID int64, id string) (*model.Release, error)

	// ListByUser orders by release date, then creation time, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*model.Release, error)

	// ListByStatus returns releases across all users, oldest update first.
	ListByStatus(ctx context.Context, status model.ReleaseStatus) ([]*model.Release, error)

	// Update overwrites every mutable column of the stored document.
	// Returns ErrReleaseNotFound when the row no longer exists.
	Update(ctx context.Context, release *model.Release) error

	// Delete 删除发行
	Delete(ctx context.Context, userID int64, id string) error
}

type gormReleaseRepository struct {
	db *gorm.DB
}

// NewGormReleaseRepository creates a ReleaseRepository backed by GORM.
func NewGormReleaseRepository(db *gorm.DB) ReleaseRepository {
	return &gormReleaseRepository{db: db}
}

func (r *gormReleaseRepository) Create(ctx context.Context, release *model.Release) error {
	if err := r.db.WithContext(ctx).Create(release).Error; err != nil {
		return fmt.Errorf("failed to create release %s: %w", release.ID, err)
	}
	return nil
}

func (r *gormReleaseRepository) GetByID(ctx context.Context, userID int64, id string) (*model.Release, error) {
	var release model.Release
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&release).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release %s: %w", id, err)
	}
	return &release, nil
}

func (r *gormReleaseRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Release, error) {
	var releases []*model.Release
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("release_date DESC").
		Order("created_at DESC").
		Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for user %d: %w", userID, err)
	}
	return releases, nil
}

func (r *gormReleaseRepository) ListByStatus(ctx context.Context, status model.ReleaseStatus) ([]*model.Release, error) {
	var releases []*model.Release
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s releases: %w", status, err)
	}
	return releases, nil
}

// Update writes zero values too, so clearing artwork or the takedown timestamp persists.
func (r *gormReleaseRepository) Update(ctx context.Context, release *model.Release) error {
	result := r.db.WithContext(ctx).
		Model(&model.Release{}).
		Where("id = ? AND user_id = ?", release.ID, release.UserID).
		Select("title", "artist", "release_date", "artwork_url", "tracks", "spotify_link",
			"status", "previous_status", "takedown_requested_at", "updated_at").
		Updates(release)
	if result.Error != nil {
		return fmt.Errorf("failed to update release %s: %w", release.ID, result.Error)
	}
	// 连接使用 clientFoundRows，RowsAffected 为匹配行数
	if result.RowsAffected == 0 {
		return fmt.Errorf("update release %s: %w", release.ID, ErrReleaseNotFound)
	}
	return nil
}

func (r *gormReleaseRepository) Delete(ctx context.Context, userID int64, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Release{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete release %s: %w", id, err)
	}
	return nil
}
