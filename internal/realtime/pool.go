package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/shared"
)

var (
	ErrPoolClosed = errors.New("realtime pool closed")
	ErrBusClosed  = errors.New("realtime bus closed")
)

// Pool owns the open room channels, one per room id.
type Pool struct {
	bus    Bus
	logger *log.Logger
	buffer int

	mu       sync.Mutex
	channels map[string]*Channel
	closed   bool
}

// NewPool creates a pool publishing through bus. buffer sizes each client's outbound queue.
func NewPool(bus Bus, logger *log.Logger, buffer int) *Pool {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Pool{
		bus:      bus,
		logger:   shared.WithLogger(logger, "component", "realtime"),
		buffer:   buffer,
		channels: make(map[string]*Channel),
	}
}

// Join adds c to the room's channel, opening the channel on first use.
func (p *Pool) Join(ctx context.Context, roomID string, c *Client) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	ch, ok := p.channels[roomID]
	if !ok {
		sub, err := p.bus.Subscribe(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to open channel for room %s: %w", roomID, err)
		}
		ch = newChannel(roomID, p.bus, sub, p.logger)
		p.channels[roomID] = ch
		p.logger.Debug("channel opened", "room", roomID)
	}

	ch.add(c)
	p.logger.Info("client joined", "room", roomID, "client", c.ID(), "name", c.Name())
	return ch, nil
}

// Leave removes c from the room and tears the channel down when it was the last client.
func (p *Pool) Leave(roomID string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c.Close()
	ch, ok := p.channels[roomID]
	if !ok {
		return
	}

	p.logger.Info("client left", "room", roomID, "client", c.ID())
	if ch.remove(c) == 0 {
		delete(p.channels, roomID)
		ch.close()
		p.logger.Debug("channel closed", "room", roomID)
	}
}

// Channel returns the open channel for a room.
func (p *Pool) Channel(roomID string) (*Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[roomID]
	return ch, ok
}

// State returns the reduced state of a room. Rooms without an open channel report the zero state.
func (p *Pool) State(roomID string) room.State {
	if ch, ok := p.Channel(roomID); ok {
		return ch.State()
	}
	return room.State{Playlist: []string{}}
}

// Publish publishes e to a room whether or not this pool has a channel open for it.
func (p *Pool) Publish(ctx context.Context, roomID string, e room.Event) error {
	data, err := room.Encode(e)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, roomID, data)
}

// Len returns the number of open channels.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

// Close tears down every channel. Later joins fail with [ErrPoolClosed].
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.channels {
		ch.close()
		delete(p.channels, id)
	}
}

// Serve runs a websocket participant until the connection or ctx ends.
//
// Inbound frames are validated with [room.Decode] and republished; snapshots from clients
// and invalid frames are dropped.
func (p *Pool) Serve(ctx context.Context, roomID, name string, conn *websocket.Conn) error {
	client := NewClient(name, p.buffer)
	ch, err := p.Join(ctx, roomID, client)
	if err != nil {
		conn.Close()
		return err
	}
	defer p.Leave(roomID, client)

	go client.writePump(conn)

	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	logger := shared.WithLogger(p.logger, "room", roomID, "client", client.ID())
	client.readPump(conn, logger, func(data []byte) {
		ev, err := room.Decode(data)
		if err != nil {
			logger.Warn("rejected event", "error", err)
			return
		}
		if ev.Kind() == room.KindSnapshot {
			logger.Warn("rejected client snapshot")
			return
		}
		if err := ch.Publish(ctx, ev); err != nil {
			logger.Error("publish failed", "error", err)
		}
	})
	return nil
}
