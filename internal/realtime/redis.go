package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a [RedisBus].
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	Buffer       int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisBus is a [Bus] backed by Redis PUBLISH/SUBSCRIBE on [Topic] channels.
type RedisBus struct {
	client *redis.Client
	buffer int
}

// NewRedisBus connects to Redis and verifies the connection with PING.
func NewRedisBus(ctx context.Context, opts RedisOptions) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return NewRedisBusFromClient(client, opts.Buffer), nil
}

// NewRedisBusFromClient wraps an existing client. Closing the bus closes the client.
func NewRedisBusFromClient(client *redis.Client, buffer int) *RedisBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &RedisBus{client: client, buffer: buffer}
}

func (b *RedisBus) Publish(ctx context.Context, roomID string, data []byte) error {
	if err := b.client.Publish(ctx, Topic(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", Topic(roomID), err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning.
func (b *RedisBus) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Topic(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic(roomID), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		msgs:   pubsub.Channel(),
		ch:     make(chan []byte, b.buffer),
		done:   make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	msgs   <-chan *redis.Message
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// forward copies payloads into ch, dropping them while ch is full.
func (s *redisSubscription) forward() {
	defer close(s.ch)

	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.msgs:
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			case <-s.done:
				return
			default:
			}
		}
	}
}
