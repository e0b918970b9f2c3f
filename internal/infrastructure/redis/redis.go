package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/pkg/config"
)

const (
	dedupKeyPrefix      = "dedup:"
	notificationChannel = "notifications:"
	defaultDedupTTL     = 24 * time.Hour
)

var (
	_ ports.Deduplicator = (*Deduplicator)(nil)
	_ ports.Pusher       = (*Pusher)(nil)
)

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Deduplicator SETNX con TTL sobre dedup:<clave>.
type Deduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduplicator(client *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &Deduplicator{client: client, ttl: ttl}
}

func (d *Deduplicator) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: setnx: %w", err)
	}
	return ok, nil
}

func (d *Deduplicator) Forget(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, dedupKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Pusher publica la notificación en notifications:<userID>; los gateways de websocket se suscriben al canal.
type Pusher struct {
	client *redis.Client
}

func NewPusher(client *redis.Client) *Pusher {
	return &Pusher{client: client}
}

// Channel canal pub/sub de un usuario.
func Channel(userID string) string { return notificationChannel + userID }

func (p *Pusher) Push(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis: marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(n.UserID), body).Err(); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}
