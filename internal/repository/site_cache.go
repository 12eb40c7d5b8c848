package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/amorempixels/amor_server/internal/model"
)

const siteCachePrefix = "site:url:"

// SiteCache holds published cards by custom URL so public reads skip the database.
type SiteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// cachedSite keeps the password hash, which model.Site hides from JSON.
type cachedSite struct {
	Site         *model.Site `json:"site"`
	PasswordHash *string     `json:"password_hash,omitempty"`
}

func NewSiteCache(rdb *redis.Client, ttl time.Duration) *SiteCache {
	return &SiteCache{rdb: rdb, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *SiteCache) Get(ctx context.Context, customURL string) (*model.Site, error) {
	data, err := c.rdb.Get(ctx, siteCachePrefix+customURL).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site cache: %w", err)
	}

	var entry cachedSite
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached site: %w", err)
	}
	if entry.Site == nil {
		return nil, nil
	}
	entry.Site.PasswordHash = entry.PasswordHash
	return entry.Site, nil
}

func (c *SiteCache) Set(ctx context.Context, site *model.Site) error {
	data, err := json.Marshal(cachedSite{Site: site, PasswordHash: site.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to encode site: %w", err)
	}
	return c.rdb.Set(ctx, siteCachePrefix+site.CustomURL, data, c.ttl).Err()
}

func (c *SiteCache) Invalidate(ctx context.Context, customURL string) error {
	return c.rdb.Del(ctx, siteCachePrefix+customURL).Err()
}
