package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	plog "github.com/PapNorbert/WatchWise/pkg/log"
)

// RedisPubSub carries gateway events over Redis channels.
type RedisPubSub struct {
	client *redis.Client

	mu   sync.Mutex
	subs map[string]*redis.PubSub // pattern -> subscription
}

// NewRedisPubSub connects and pings the server.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{client: client, subs: make(map[string]*redis.PubSub)}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// SubscribePattern psubscribes to pattern. Replacing an existing pattern
// subscription closes the old one and its channel.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	sub := r.client.PSubscribe(ctx, pattern)
	// Receive waits for the subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	r.mu.Lock()
	previous := r.subs[pattern]
	r.subs[pattern] = sub
	r.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}

	events := make(chan *Event, 100)
	go forwardRedis(ctx, sub.Channel(), events)
	return events, nil
}

// forwardRedis decodes messages until in closes or ctx ends. A full events
// channel applies backpressure instead of dropping.
func forwardRedis(ctx context.Context, in <-chan *redis.Message, events chan<- *Event) {
	defer close(events)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l := plog.L()
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("redis relay: dropping undecodable message")
				continue
			}
			select {
			case events <- &event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close ends every subscription and the client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*redis.PubSub)
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return r.client.Close()
}
