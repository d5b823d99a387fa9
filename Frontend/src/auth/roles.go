package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleStore holds one role document per provider uid. ok is false when the
// user has no document.
type RoleStore interface {
	Role(ctx context.Context, uid string) (role string, ok bool, err error)
	SetRole(ctx context.Context, uid, role string) error
}

// RedisRoles keeps the document as the hash users:<uid> with field role.
type RedisRoles struct {
	client *redis.Client
}

func NewRedisRoles(redisURL string) (*RedisRoles, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisRoles{client: client}, nil
}

func roleKey(uid string) string { return "users:" + uid }

func (r *RedisRoles) Role(ctx context.Context, uid string) (string, bool, error) {
	role, err := r.client.HGet(ctx, roleKey(uid), "role").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

func (r *RedisRoles) SetRole(ctx context.Context, uid, role string) error {
	return r.client.HSet(ctx, roleKey(uid), "role", role).Err()
}

func (r *RedisRoles) PingContext(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisRoles) Close() error { return r.client.Close() }

// CachedRoles fronts a RoleStore with a small expiring cache. Missing
// documents are not cached, so a role written elsewhere shows up on the
// next lookup.
type CachedRoles struct {
	next  RoleStore
	cache *expirable.LRU[string, string]
}

func NewCachedRoles(next RoleStore, size int, ttl time.Duration) *CachedRoles {
	return &CachedRoles{next: next, cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *CachedRoles) Role(ctx context.Context, uid string) (string, bool, error) {
	if role, ok := c.cache.Get(uid); ok {
		return role, true, nil
	}
	role, ok, err := c.next.Role(ctx, uid)
	if err == nil && ok {
		c.cache.Add(uid, role)
	}
	return role, ok, err
}

func (c *CachedRoles) SetRole(ctx context.Context, uid, role string) error {
	if err := c.next.SetRole(ctx, uid, role); err != nil {
		c.cache.Remove(uid)
		return err
	}
	c.cache.Add(uid, role)
	return nil
}
