package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quietmap/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SnapshotCache holds the recent-reports slice served to every joining
// session. Mutations invalidate it; a cache miss falls back to Postgres.
type SnapshotCache struct {
	client *goredis.Client
	key    string
}

func NewSnapshotCache(r *Redis) *SnapshotCache {
	return &SnapshotCache{
		client: r.Client,
		key:    "reports:recent",
	}
}

// Get returns (nil, nil) on a cache miss.
func (c *SnapshotCache) Get(ctx context.Context) ([]domain.Report, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}

	return reports, nil
}

func (c *SnapshotCache) Set(ctx context.Context, reports []domain.Report, ttl time.Duration) error {
	b, err := json.Marshal(reports)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, b, ttl).Err()
}

func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
