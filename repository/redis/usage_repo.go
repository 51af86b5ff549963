package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
)

// usageRepository backs the daily API-call counters with Redis so limit
// checks survive restarts and are shared across replicas.
type usageRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewUsageRepository creates a Redis-backed usage counter store.
func NewUsageRepository(client *redislib.Client) repository.UsageRepository {
	return &usageRepository{
		client: client,
		prefix: "usage:api:",
		ttl:    48 * time.Hour,
	}
}

func (r *usageRepository) IncrementAPICalls(ctx context.Context, tenantID string) (int, error) {
	key := r.key(tenantID, time.Now().UTC())
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// First increment of the day sets the expiry; counters roll over daily.
	if count == 1 {
		_ = r.client.Expire(ctx, key, r.ttl).Err()
	}
	return int(count), nil
}

func (r *usageRepository) APICallsToday(ctx context.Context, tenantID string) (int, error) {
	count, err := r.client.Get(ctx, r.key(tenantID, time.Now().UTC())).Int()
	if err != nil {
		if err == redislib.Nil {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *usageRepository) key(tenantID string, day time.Time) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, tenantID, day.Format("2006-01-02"))
}
