package store

import (
	"context"
	"encoding/json"
	"time"

	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/models"

	"github.com/redis/go-redis/v9"
)

// OpenJobLister is the uncached source of open positions.
type OpenJobLister interface {
	ListOpenJobs(ctx context.Context) ([]models.Job, error)
}

// CachedJobCatalog serves the open-job list from Redis, falling back to
// Postgres on a miss. Redis failures only cost a database read.
type CachedJobCatalog struct {
	source OpenJobLister
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedJobCatalog(source OpenJobLister, rdb *redis.Client, keyspace string, ttl time.Duration, log logger.Logger) *CachedJobCatalog {
	return &CachedJobCatalog{
		source: source,
		redis:  rdb,
		key:    keyspace + ":jobs:open",
		ttl:    ttl,
		logger: logger.ForComponent(log, "job-catalog"),
	}
}

func (c *CachedJobCatalog) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	if val, err := c.redis.Get(ctx, c.key).Result(); err == nil {
		var jobs []models.Job
		if err := json.Unmarshal([]byte(val), &jobs); err == nil {
			return jobs, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("job catalog cache read failed", map[string]interface{}{"error": err})
	}

	jobs, err := c.source.ListOpenJobs(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(jobs)
	if err != nil {
		c.logger.Warn("job catalog encode failed, not caching", map[string]interface{}{"error": err})
		return jobs, nil
	}
	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("job catalog cache write failed", map[string]interface{}{"error": err})
	}
	return jobs, nil
}
