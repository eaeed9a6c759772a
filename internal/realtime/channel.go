package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/colisten/internal/room"
)

// Channel is the live broadcast channel of one room.
//
// Events are applied in bus delivery order by a single goroutine; there is no reordering
// and no deduplication.
type Channel struct {
	roomID string
	bus    Bus
	sub    Subscription
	logger *log.Logger

	mu      sync.RWMutex
	state   room.State
	clients map[*Client]struct{}

	done chan struct{}
}

func newChannel(roomID string, bus Bus, sub Subscription, logger *log.Logger) *Channel {
	ch := &Channel{
		roomID:  roomID,
		bus:     bus,
		sub:     sub,
		logger:  logger,
		clients: make(map[*Client]struct{}),
		done:    make(chan struct{}),
	}
	go ch.run()
	return ch
}

func (ch *Channel) RoomID() string { return ch.roomID }

// State returns a copy of the reduced room state.
func (ch *Channel) State() room.State {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.state.Clone()
}

// Len returns the number of connected clients.
func (ch *Channel) Len() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.clients)
}

// Publish encodes e and publishes it to the room topic. The channel applies it when the bus delivers it back.
func (ch *Channel) Publish(ctx context.Context, e room.Event) error {
	data, err := room.Encode(e)
	if err != nil {
		return err
	}
	if err := ch.bus.Publish(ctx, ch.roomID, data); err != nil {
		return fmt.Errorf("failed to publish %s to room %s: %w", e.Kind(), ch.roomID, err)
	}
	return nil
}

// add registers c and, when the room has state, queues a snapshot for it before any later event.
func (ch *Channel) add(c *Client) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.clients[c] = struct{}{}
	if ch.state.IsZero() {
		return
	}

	data, err := room.Encode(room.Snapshot{State: ch.state})
	if err != nil {
		ch.logger.Error("failed to encode snapshot", "room", ch.roomID, "error", err)
		return
	}
	c.Deliver(data)
}

// remove unregisters c and returns the number of clients left.
func (ch *Channel) remove(c *Client) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	delete(ch.clients, c)
	return len(ch.clients)
}

func (ch *Channel) run() {
	defer close(ch.done)

	for data := range ch.sub.Messages() {
		ev, err := room.Decode(data)
		if err != nil {
			ch.logger.Warn("dropping invalid event", "room", ch.roomID, "error", err)
			continue
		}

		var slow []*Client
		ch.mu.Lock()
		ch.state = ch.state.Apply(ev)
		for c := range ch.clients {
			if !c.Deliver(data) {
				slow = append(slow, c)
			}
		}
		ch.mu.Unlock()

		for _, c := range slow {
			ch.logger.Warn("dropping slow client", "room", ch.roomID, "client", c.ID())
			c.Close()
		}
	}
}

// close ends the subscription, waits for the event loop to exit and closes every client.
func (ch *Channel) close() {
	if err := ch.sub.Close(); err != nil {
		ch.logger.Warn("failed to close subscription", "room", ch.roomID, "error", err)
	}
	<-ch.done

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for c := range ch.clients {
		c.Close()
		delete(ch.clients, c)
	}
}
