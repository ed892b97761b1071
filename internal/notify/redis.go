// Package notify delivers queue lifecycle events to external consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"virtual_queue/internal/events"
)

// redisPublisher is the part of *redis.Client the sink needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events as JSON on a pub/sub channel per queue.
type RedisSink struct {
	client redisPublisher
	prefix string
}

// NewRedisSink returns a sink publishing on "<prefix>:<tenant>:<queue>".
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	return newRedisSink(client, prefix)
}

func newRedisSink(client redisPublisher, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "vq:events"
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for a queue.
func (s *RedisSink) Channel(tenantID, queueID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, tenantID, queueID)
}

// Publish implements events.Sink.
func (s *RedisSink) Publish(ctx context.Context, evt events.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(evt.TenantID, evt.QueueID), body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", evt.Type, err)
	}
	return nil
}
