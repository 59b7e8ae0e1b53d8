package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/Geun-Oh/elbfilter/internal/pipeline"
)

// Getter is the subset of the Redis client used to fetch pipelines.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// LoadPipelinesFromRedis reads the pipeline list stored at key. When path
// is set the value is a JSON document and path selects the list in it.
func LoadPipelinesFromRedis(ctx context.Context, client Getter, key, path string) ([]pipeline.Config, error) {
	val, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: key %s not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}

	if path != "" {
		if !gjson.Valid(val) {
			return nil, fmt.Errorf("redis: key %s does not hold valid JSON", key)
		}
		res := gjson.Get(val, path)
		if !res.Exists() {
			return nil, fmt.Errorf("redis: path %q not found in %s", path, key)
		}
		val = res.Raw
	}

	configs, err := pipeline.ParseConfigs([]byte(val))
	if err != nil {
		return nil, fmt.Errorf("redis: %s: %w", key, err)
	}
	return configs, nil
}

// ResolvePipelines replaces the configured pipelines with the ones held in
// Redis when redis.addr is set. It is a no-op otherwise.
func (c *Config) ResolvePipelines(ctx context.Context) error {
	if c.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: c.Redis.Addr})
	defer rdb.Close()

	pipelines, err := LoadPipelinesFromRedis(ctx, rdb, c.Redis.Key, c.Redis.Path)
	if err != nil {
		return err
	}
	c.Pipelines = pipelines
	return nil
}
