package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/colisten/internal/shared"
)

// DefaultBuffer is the per-subscription and per-client queue length used when none is configured.
const DefaultBuffer = 64

// Bus delivers encoded room events to every subscriber of a room, in publish order per publisher.
type Bus interface {
	Publish(ctx context.Context, roomID string, data []byte) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
	Close() error
}

// Subscription is a live subscription to one room topic.
//
// Messages is closed after Close returns or when the bus goes away.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Topic returns the pub/sub topic for a room.
func Topic(roomID string) string {
	return "room:" + roomID
}

// NewBus builds the bus selected by cfg.Backend.
func NewBus(ctx context.Context, cfg shared.RealtimeConfig) (Bus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryBus(cfg.SendBuffer), nil
	case "redis":
		return NewRedisBus(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Buffer:   cfg.SendBuffer,
		})
	default:
		return nil, fmt.Errorf("%w: unknown realtime backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// MemoryBus is an in-process [Bus].
//
// Publish never blocks: a subscriber whose queue is full misses the message.
type MemoryBus struct {
	mu     sync.Mutex
	buffer int
	topics map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBus creates a [MemoryBus] whose subscriptions queue up to buffer messages.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &MemoryBus{buffer: buffer, topics: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, roomID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	for sub := range b.topics[Topic(roomID)] {
		msg := make([]byte, len(data))
		copy(msg, data)
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	topic := Topic(roomID)
	sub := &memorySubscription{bus: b, topic: topic, ch: make(chan []byte, b.buffer)}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySubscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	return sub, nil
}

// Subscribers returns the number of live subscriptions for a room.
func (b *MemoryBus) Subscribers(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[Topic(roomID)])
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.topics, topic)
	}
	return nil
}

type memorySubscription struct {
	bus    *MemoryBus
	topic  string
	ch     chan []byte
	closed bool
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if subs, ok := s.bus.topics[s.topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.topics, s.topic)
		}
	}
	s.closeLocked()
	return nil
}

// closeLocked must be called with the bus lock held.
func (s *memorySubscription) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
