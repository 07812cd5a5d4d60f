package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const seatKeyPrefix = "lock:seat:"

// Ownership checks and the guarded mutation must be one atomic step on the
// server, otherwise a claim could be deleted right after its owner changed.
var (
	releaseScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)
	refreshScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('PEXPIRE', KEYS[1], ARGV[2])
		end
		return 0
	`)
)

// Redis is the distributed lock backend.  Each claim is one key holding the
// owner client id with a server-side TTL, so claims vanish on expiry even if
// this process dies.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an already-connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func seatKey(seatID string) string { return seatKeyPrefix + seatID }

// Acquire issues SET NX PX and falls back to a refresh when the caller
// already owns the key, so re-acquisition by the holder never conflicts.
func (r *Redis) Acquire(ctx context.Context, seatID, clientID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, seatKey(seatID), clientID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ok {
		return true, nil
	}
	return r.Refresh(ctx, seatID, clientID, ttl)
}

// Refresh extends the key's TTL only when clientID still owns it.
func (r *Redis) Refresh(ctx context.Context, seatID, clientID string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, r.client, []string{seatKey(seatID)}, clientID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Release deletes the key only when clientID still owns it.
func (r *Redis) Release(ctx context.Context, seatID, clientID string) error {
	if err := releaseScript.Run(ctx, r.client, []string{seatKey(seatID)}, clientID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Snapshot scans the seat lock keyspace and returns seat id -> owner.
func (r *Redis) Snapshot(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	iter := r.client.Scan(ctx, 0, seatKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		owner, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out[strings.TrimPrefix(key, seatKeyPrefix)] = owner
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}
