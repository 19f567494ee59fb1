package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/types"
)

// CacheService wraps storage with Redis caching for media reads. Writes go
// straight through and invalidate, so a read after a reconciled transition
// always observes the new state.
type CacheService struct {
	storage storage.Storage
	redis   *redis.Client
}

// NewCacheService creates a new cache service
func NewCacheService(storage storage.Storage, redisClient *redis.Client) *CacheService {
	return &CacheService{
		storage: storage,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	MediaItemKey  = "media:item:%s"  // media:item:mediaID
	OwnerMediaKey = "media:owner:%s" // media:owner:ownerID
)

// Cache durations
const (
	MediaItemCacheDuration = 10 * time.Minute // Invalidated on every transition anyway
	OwnerListCacheDuration = 30 * time.Second // Hot list cache
)

// GetMediaItemByID returns the cached item or fetches from the database
func (c *CacheService) GetMediaItemByID(id string) (types.MediaItem, error) {
	ctx := context.Background()
	key := fmt.Sprintf(MediaItemKey, id)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var item types.MediaItem
		if err := json.Unmarshal([]byte(cached), &item); err == nil {
			return item, nil
		}
	}

	// Cache miss - fetch from database
	item, err := c.storage.GetMediaItemByID(id)
	if err != nil {
		return item, err
	}

	data, _ := json.Marshal(item)
	c.redis.Set(ctx, key, data, MediaItemCacheDuration)

	return item, nil
}

// ListMediaItemsForOwner returns the cached owner list or fetches from the database
func (c *CacheService) ListMediaItemsForOwner(ownerID string) ([]types.MediaItem, error) {
	ctx := context.Background()
	key := fmt.Sprintf(OwnerMediaKey, ownerID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var items []types.MediaItem
		if err := json.Unmarshal([]byte(cached), &items); err == nil {
			return items, nil
		}
	}

	items, err := c.storage.ListMediaItemsForOwner(ownerID)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(items)
	c.redis.Set(ctx, key, data, OwnerListCacheDuration)

	return items, nil
}

// InvalidateMediaItem clears the caches that could serve a stale item
func (c *CacheService) InvalidateMediaItem(ctx context.Context, id, ownerID string) {
	keys := []string{fmt.Sprintf(MediaItemKey, id)}
	if ownerID != "" {
		keys = append(keys, fmt.Sprintf(OwnerMediaKey, ownerID))
	}
	c.redis.Del(ctx, keys...)
}

func (c *CacheService) CreateMediaItem(item types.MediaItem) error {
	if err := c.storage.CreateMediaItem(item); err != nil {
		return err
	}

	c.InvalidateMediaItem(context.Background(), item.ID, item.OwnerID)
	return nil
}

func (c *CacheService) MarkMediaReady(id, externalAssetID, playbackID string) (bool, error) {
	applied, err := c.storage.MarkMediaReady(id, externalAssetID, playbackID)
	if err != nil {
		return false, err
	}

	if applied {
		c.invalidateAfterTransition(id)
	}
	return applied, nil
}

func (c *CacheService) MarkMediaFailed(id, errorMessage string) (bool, error) {
	applied, err := c.storage.MarkMediaFailed(id, errorMessage)
	if err != nil {
		return false, err
	}

	if applied {
		c.invalidateAfterTransition(id)
	}
	return applied, nil
}

func (c *CacheService) invalidateAfterTransition(id string) {
	ctx := context.Background()

	// The transition came from a webhook, which carries no owner. Resolve it
	// from storage so the owner's list cache is cleared too.
	ownerID := ""
	if item, err := c.storage.GetMediaItemByID(id); err == nil {
		ownerID = item.OwnerID
	}

	c.InvalidateMediaItem(ctx, id, ownerID)
}

func (c *CacheService) FailStalePending(cutoff time.Time) ([]string, error) {
	ids, err := c.storage.FailStalePending(cutoff)
	if err != nil {
		return nil, err
	}

	// Without this a reaped item could be served as pending for the rest
	// of its cache TTL.
	for _, id := range ids {
		c.invalidateAfterTransition(id)
	}

	return ids, nil
}

// Methods to pass through to storage (implement storage.Storage interface)
func (c *CacheService) CreateUser(email, password string) (string, error) {
	return c.storage.CreateUser(email, password)
}

func (c *CacheService) GetUserByEmail(email string) (string, string, error) {
	return c.storage.GetUserByEmail(email)
}
