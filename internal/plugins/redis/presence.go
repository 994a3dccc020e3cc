package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const onlineKey = "presence:online"

// RedisLivenessStore keeps the online user set in a single ZSET scored by
// last check-in time. Stale members are swept on read, so a node that dies
// without cleanup only lies about its users for one liveness window.
type RedisLivenessStore struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisLivenessStore(rdb *redis.Client, window time.Duration) *RedisLivenessStore {
	return &RedisLivenessStore{rdb: rdb, window: window}
}

func (p *RedisLivenessStore) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	now := time.Now().Unix()
	if err := p.rdb.ZAdd(ctx, onlineKey, redis.Z{
		Score:  float64(now),
		Member: userID,
	}).Err(); err != nil {
		return err
	}
	// Expire the whole set so an idle deployment doesn't leak memory.
	return p.rdb.Expire(ctx, onlineKey, ttl*2).Err()
}

func (p *RedisLivenessStore) OnlineUsers(ctx context.Context) ([]string, error) {
	threshold := time.Now().Add(-p.window).Unix()
	p.rdb.ZRemRangeByScore(ctx, onlineKey, "-inf", strconv.FormatInt(threshold, 10))
	return p.rdb.ZRange(ctx, onlineKey, 0, -1).Result()
}

func (p *RedisLivenessStore) Clear(ctx context.Context, userID string) error {
	return p.rdb.ZRem(ctx, onlineKey, userID).Err()
}
