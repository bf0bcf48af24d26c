package realtime

import (
	"context"

	"github.com/niosh12/ddeducation/pkg/redis"
)

// RedisRelay 基于 Redis Pub/Sub 的跨实例中继
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay 创建 Redis 中继
func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{client: client, channel: channel}
}

// Publish 发布事件
func (r *RedisRelay) Publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload)
}

// Subscribe 订阅事件频道
func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan []byte, func() error) {
	return r.client.Subscribe(ctx, r.channel)
}
