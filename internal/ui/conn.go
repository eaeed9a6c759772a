package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/shared"
)

// ErrDisconnected is reported once the room connection is gone.
var ErrDisconnected = errors.New("disconnected from room")

const writeWait = 10 * time.Second

// Conn is a participant's connection to a room channel.
type Conn interface {
	Events() <-chan room.Event // closed when the connection ends
	Send(ctx context.Context, e room.Event) error
	Close() error
}

// SocketURL builds the websocket endpoint for roomID on the server at baseURL.
func SocketURL(baseURL, roomID, name string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid server url %q", shared.ErrInvalidConfig, baseURL)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidConfig, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/rooms/" + url.PathEscape(roomID) + "/ws"
	u.RawQuery = url.Values{"name": {name}}.Encode()
	return u.String(), nil
}

// WSConn is a [Conn] over a gorilla websocket.
type WSConn struct {
	conn   *websocket.Conn
	events chan room.Event
	done   chan struct{}
	logger *log.Logger
	mu     sync.Mutex
	once   sync.Once
}

// Dial connects to the room websocket at socketURL and starts reading events.
func Dial(ctx context.Context, socketURL string, logger *log.Logger) (*WSConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s: status %d", shared.ErrServiceUnavailable, socketURL, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	c := &WSConn{conn: conn, events: make(chan room.Event, 32), done: make(chan struct{}), logger: logger}
	go c.read()
	return c, nil
}

func (c *WSConn) Events() <-chan room.Event { return c.events }

func (c *WSConn) read() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("room connection closed", "error", err)
			}
			return
		}

		ev, err := room.Decode(data)
		if err != nil {
			c.logger.Debug("ignored frame", "error", err)
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// Send encodes and writes e. Writes are serialized.
func (c *WSConn) Send(ctx context.Context, e room.Event) error {
	data, err := room.Encode(e)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}
