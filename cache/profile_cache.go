package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ArtistHub/logger"
	"ArtistHub/repository"

	"github.com/go-redis/redis/v8"
)

const profileArtistKey = "profile:%d" // String: artist name, "" cached too

// ProfileCache is a read-through Redis cache in front of the user table.
type ProfileCache struct {
	client *redis.Client
	users  repository.UserRepository
	ttl    time.Duration
}

// NewProfileCache creates a ProfileCache. A nil client disables caching.
func NewProfileCache(client *redis.Client, users repository.UserRepository, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, users: users, ttl: ttl}
}

// ArtistName returns the profile artist name for userID.
// Redis failures degrade to a direct database read.
func (c *ProfileCache) ArtistName(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf(profileArtistKey, userID)

	if c.client != nil {
		name, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			return name, nil
		case !errors.Is(err, redis.Nil):
			logger.Warn("Profile cache read failed", logger.UserID(userID), logger.ErrorField(err))
		}
	}

	user, err := c.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	name := ""
	if user != nil {
		name = user.ArtistName
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, name, c.ttl).Err(); err != nil {
			logger.Warn("Profile cache write failed", logger.UserID(userID), logger.ErrorField(err))
		}
	}
	return name, nil
}

// Invalidate drops the cached entry after a profile change.
func (c *ProfileCache) Invalidate(ctx context.Context, userID int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, fmt.Sprintf(profileArtistKey, userID)).Err()
}
