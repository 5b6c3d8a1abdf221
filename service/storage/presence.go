package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// value: gateway id, TTL bounds staleness if the process dies without cleanup
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceOnline marks the user online and renews the TTL.
func PresenceOnline(ctx context.Context, user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// PresenceOffline removes the user's presence key.
func PresenceOffline(ctx context.Context, user string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports which gateway, if any, holds the user.
func PresenceLookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, nil
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
