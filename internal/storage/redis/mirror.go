// Package redis mirrors orders and users into Redis. It is never the
// source of truth: disk is authoritative, Redis is a best-effort copy
// populated write-through by storage.CompositeOrderStore/CompositeUserStore.
// The engine and the HTTP endpoints never read from it; GetOrder/GetUser
// exist for readers outside this module.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightledger/matchengine/internal/domain"
)

// Config holds the connection knobs for the Redis mirror.
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	OrderTTL     time.Duration
}

// NewClient builds and pings a pooled Redis client.
func NewClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// OrderMirror caches Order and User snapshots under "order:<id>" and
// "user:<id>" keys, JSON-encoded, with an optional TTL on orders (users
// never expire).
type OrderMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderMirror wraps client for order/user mirroring.
func NewOrderMirror(client *redis.Client, ttl time.Duration) *OrderMirror {
	return &OrderMirror{client: client, ttl: ttl}
}

func orderKey(id uint64) string { return fmt.Sprintf("order:%d", id) }
func userKey(id string) string  { return fmt.Sprintf("user:%s", id) }

// SaveOrder writes o into the cache.
func (m *OrderMirror) SaveOrder(o *domain.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("redis: marshal order %d: %w", o.ID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.client.Set(ctx, orderKey(o.ID), b, m.ttl).Err()
}

// GetOrder reads a cached order, returning (nil, nil) on a cache miss.
func (m *OrderMirror) GetOrder(id uint64) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := m.client.Get(ctx, orderKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get order %d: %w", id, err)
	}
	var o domain.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("redis: unmarshal order %d: %w", id, err)
	}
	return &o, nil
}

// SaveUser writes u into the cache, no expiry.
func (m *OrderMirror) SaveUser(u *domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("redis: marshal user %s: %w", u.ID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.client.Set(ctx, userKey(u.ID), b, 0).Err()
}

// GetUser reads a cached user, returning (nil, nil) on a cache miss.
func (m *OrderMirror) GetUser(id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := m.client.Get(ctx, userKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get user %s: %w", id, err)
	}
	var u domain.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("redis: unmarshal user %s: %w", id, err)
	}
	return &u, nil
}

// Close closes the underlying client.
func (m *OrderMirror) Close() error {
	return m.client.Close()
}
