// Package notify publishes configuration change events.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "remoteconf:changes"

// ChangeEvent announces that a source installed a new snapshot.
type ChangeEvent struct {
	Source     string    `json:"source"`
	SnapshotID string    `json:"snapshot_id"`
	Checksum   string    `json:"checksum,omitempty"`
	Keys       []string  `json:"keys"`
	Fallback   bool      `json:"fallback"`
	Time       time.Time `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ChangeEvent) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// RedisPublisher publishes events as JSON on a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects lazily; the first Publish dials addr.
func NewRedisPublisher(addr, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		MaxRetries:  -1,
	})
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Channel() string {
	return p.channel
}

func (p *RedisPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encoding change event")
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publishing to %s", p.channel)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
