package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"surveypulse/internal/model"
)

// DeliveryStatsCache keeps rolling postback counters per survey or share
type DeliveryStatsCache interface {
	Record(ctx context.Context, entry model.AuditLogEntry) error
	Get(ctx context.Context, scope string) (*DeliveryStats, error)
	TopFailing(ctx context.Context, scope string, limit int) ([]RecipientFailures, error)
}

// DeliveryStats is a snapshot of one scope's counters
type DeliveryStats struct {
	Scope      string           `json:"scope"`
	Total      int64            `json:"total"`
	Successful int64            `json:"successful"`
	Failed     int64            `json:"failed"`
	ByKind     map[string]int64 `json:"byKind"`
}

// RecipientFailures ranks recipients by failed attempts
type RecipientFailures struct {
	Recipient string `json:"recipient"`
	Failures  int    `json:"failures"`
	Rank      int    `json:"rank"`
}

type deliveryStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryStatsCache creates a new delivery stats cache
func NewDeliveryStatsCache(client *redis.Client, ttl time.Duration) DeliveryStatsCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &deliveryStatsCache{
		client: client,
		ttl:    ttl,
	}
}

// StatsScope is the counter scope of an entry: its survey, or its share for inbound calls.
func StatsScope(entry model.AuditLogEntry) string {
	if entry.SurveyID != "" {
		return "survey:" + entry.SurveyID
	}
	if entry.ShareID != "" {
		return "share:" + entry.ShareID
	}
	return "unscoped"
}

func statsKey(scope string) string {
	return fmt.Sprintf("stats:%s", scope)
}

func failuresKey(scope string) string {
	return fmt.Sprintf("stats:%s:failures", scope)
}

func (c *deliveryStatsCache) Record(ctx context.Context, entry model.AuditLogEntry) error {
	scope := StatsScope(entry)
	outcome := "successful"
	if entry.Status != model.AuditSuccess {
		outcome = "failed"
	}

	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, statsKey(scope), "total", 1)
	pipe.HIncrBy(ctx, statsKey(scope), outcome, 1)
	if entry.RecipientKind != "" {
		pipe.HIncrBy(ctx, statsKey(scope), "kind:"+entry.RecipientKind, 1)
	}
	pipe.Expire(ctx, statsKey(scope), c.ttl)
	if entry.Status != model.AuditSuccess && entry.RecipientName != "" {
		pipe.ZIncrBy(ctx, failuresKey(scope), 1, entry.RecipientName)
		pipe.Expire(ctx, failuresKey(scope), c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *deliveryStatsCache) Get(ctx context.Context, scope string) (*DeliveryStats, error) {
	fields, err := c.client.HGetAll(ctx, statsKey(scope)).Result()
	if err != nil {
		return nil, err
	}
	return parseStats(scope, fields), nil
}

func (c *deliveryStatsCache) TopFailing(ctx context.Context, scope string, limit int) ([]RecipientFailures, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, failuresKey(scope), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RecipientFailures, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries[i] = RecipientFailures{
			Recipient: name,
			Failures:  int(z.Score),
			Rank:      i + 1,
		}
	}
	return entries, nil
}

func parseStats(scope string, fields map[string]string) *DeliveryStats {
	stats := &DeliveryStats{Scope: scope, ByKind: map[string]int64{}}
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case k == "total":
			stats.Total = n
		case k == "successful":
			stats.Successful = n
		case k == "failed":
			stats.Failed = n
		case len(k) > len("kind:") && k[:len("kind:")] == "kind:":
			stats.ByKind[k[len("kind:"):]] = n
		}
	}
	return stats
}
