package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"surveypulse/internal/model"
)

// CriteriaCache handles Redis operations for criteria sets
type CriteriaCache interface {
	Get(ctx context.Context, id string) (*model.CriteriaSet, error)
	Set(ctx context.Context, set *model.CriteriaSet) error
	Delete(ctx context.Context, id string) error
}

type criteriaCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCriteriaCache creates a new criteria cache
func NewCriteriaCache(client *redis.Client, ttl time.Duration) CriteriaCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &criteriaCache{
		client: client,
		ttl:    ttl,
	}
}

func criteriaKey(id string) string {
	return fmt.Sprintf("criteria:%s", id)
}

func (c *criteriaCache) Get(ctx context.Context, id string) (*model.CriteriaSet, error) {
	data, err := c.client.Get(ctx, criteriaKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var set model.CriteriaSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *criteriaCache) Set(ctx context.Context, set *model.CriteriaSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, criteriaKey(set.ID), data, c.ttl).Err()
}

func (c *criteriaCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, criteriaKey(id)).Err()
}
