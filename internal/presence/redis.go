package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "presence:"

// RedisStore keeps presence snapshots in a redis hash per user, so heartbeats
// can refresh last_seen without rewriting the online flag.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) SetOnline(ctx context.Context, userID string, at time.Time) error {
	err := s.rdb.HSet(ctx, redisKey(userID), "online", 1, "last_seen", at.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	return nil
}

func (s *RedisStore) SetOffline(ctx context.Context, userID string, at time.Time) error {
	err := s.rdb.HSet(ctx, redisKey(userID), "online", 0, "last_seen", at.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	return nil
}

func (s *RedisStore) Heartbeat(ctx context.Context, userID string, at time.Time) error {
	err := s.rdb.HSet(ctx, redisKey(userID), "last_seen", at.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Snapshot, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(userID)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("presence get: %w", err)
	}
	var snap Snapshot
	if v, ok := fields["online"]; ok {
		snap.Online = v == "1"
	}
	if v, ok := fields["last_seen"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			snap.LastSeen = time.UnixMilli(ms)
		}
	}
	return snap, nil
}
