package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence tracks which gateway a user is connected to.
// Key: conv:presence:<user>, value: gateway id, TTL bounds staleness.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func presenceKey(user string) string { return "conv:presence:" + user }

// Online marks the user online on gatewayID and (re)starts the TTL.
func (p *Presence) Online(ctx context.Context, user, gatewayID string) error {
	return p.rdb.Set(ctx, presenceKey(user), gatewayID, p.ttl).Err()
}

// Refresh renews the TTL without touching the value; called on ping.
func (p *Presence) Refresh(ctx context.Context, user string) error {
	return p.rdb.Expire(ctx, presenceKey(user), p.ttl).Err()
}

// Offline actively removes the user (deletes the key).
func (p *Presence) Offline(ctx context.Context, user string) error {
	return p.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the user is online and, if so, where.
func (p *Presence) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
