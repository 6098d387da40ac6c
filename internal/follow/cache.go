package follow

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached following set can get without
// an explicit invalidation.
const DefaultCacheTTL = 5 * time.Minute

// cacheKeyPrefix namespaces following-set keys in redis.
const cacheKeyPrefix = "creel:following:"

// emptyMarker is stored in otherwise-empty sets so a cached "follows
// nobody" is distinguishable from a cache miss.
const emptyMarker = "\x00none"

// Cache is the explicitly owned following-set cache. It is passed through
// the call chain instead of living in package-level state, and exposes an
// explicit Invalidate for the follow/unfollow write paths. Redis failures
// degrade to reading the backing repository directly.
type Cache struct {
	client *redis.Client
	repo   Repository
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a following-set cache over the given repository.
// A nil client disables caching; every read goes to the repository.
func NewCache(client *redis.Client, repo Repository, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client: client,
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// FollowingIDs returns the viewer's following set, from redis when cached.
func (c *Cache) FollowingIDs(ctx context.Context, viewerID string) ([]string, error) {
	if c.client == nil {
		return c.repo.FollowingIDs(ctx, viewerID)
	}

	key := cacheKeyPrefix + viewerID
	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "following cache read failed, falling back to store",
			slog.String("error", err.Error()))
		return c.repo.FollowingIDs(ctx, viewerID)
	}
	if len(members) > 0 {
		return stripMarker(members), nil
	}

	ids, err := c.repo.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, ids)
	return ids, nil
}

// Invalidate drops the cached set for a viewer. Called on follow/unfollow.
func (c *Cache) Invalidate(ctx context.Context, viewerID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKeyPrefix+viewerID).Err(); err != nil {
		c.logger.WarnContext(ctx, "following cache invalidation failed",
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()))
	}
}

// fill writes a following set into redis. Best effort.
func (c *Cache) fill(ctx context.Context, key string, ids []string) {
	members := make([]any, 0, len(ids)+1)
	members = append(members, emptyMarker)
	for _, id := range ids {
		members = append(members, id)
	}
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "following cache fill failed",
			slog.String("error", err.Error()))
	}
}

// stripMarker removes the empty-set marker from cached members.
func stripMarker(members []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == emptyMarker {
			continue
		}
		out = append(out, m)
	}
	return out
}
