package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gravadigital/urna-api/internal/logger"
)

// RedisChannel is the pub/sub channel shared by every instance
const RedisChannel = "urna:events"

// RedisBroker publishes over Redis pub/sub and re-broadcasts received messages
// into the local hub.
type RedisBroker struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string
	hub     *Hub
	log     *log.Logger
	wg      sync.WaitGroup
}

// RedisOptions selects the Redis server
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBroker connects, subscribes and starts forwarding into hub
func NewRedisBroker(ctx context.Context, opts RedisOptions, hub *Hub) (*RedisBroker, error) {
	l := logger.Notify("redis")

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}

	pubsub := client.Subscribe(ctx, RedisChannel)
	// wait for the subscription confirmation so no publish is missed after return
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", RedisChannel, err)
	}

	b := &RedisBroker{
		client:  client,
		pubsub:  pubsub,
		channel: RedisChannel,
		hub:     hub,
		log:     l,
	}

	b.wg.Add(1)
	go b.run()

	l.Info("Redis notification broker started", "addr", opts.Addr, "channel", RedisChannel)
	return b, nil
}

func (b *RedisBroker) Name() string {
	return "redis"
}

func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	payload, err := e.encode()
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(electionID uuid.UUID) (<-chan Event, func()) {
	return b.hub.Subscribe(electionID)
}

func (b *RedisBroker) run() {
	defer b.wg.Done()

	for msg := range b.pubsub.Channel() {
		e, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			b.log.Warn("Ignoring malformed message", "error", err)
			continue
		}
		b.hub.Broadcast(e)
	}
}

func (b *RedisBroker) Close() error {
	// closing the pubsub closes its channel and ends run
	if err := b.pubsub.Close(); err != nil {
		b.log.Warn("Failed to close subscription", "error", err)
	}
	b.wg.Wait()
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return b.hub.Close()
}
