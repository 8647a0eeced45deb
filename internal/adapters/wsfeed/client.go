// Package wsfeed streams raw session parameter snapshots from the call
// gateway over WebSocket.
package wsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/domain/models"
	"github.com/kaverel/callbridge/internal/ports"
	"github.com/kaverel/callbridge/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingPeriod       = 25 * time.Second
)

// Client is a gateway-push session feed. One Run call covers one
// connection; the caller owns reconnection.
type Client struct {
	url      string
	token    string
	roomName string

	onCallData func(protocol.CallDataUpdate)

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

var _ ports.SessionFeed = (*Client)(nil)

// NewClient creates a feed client for one room.
func NewClient(url, token, roomName string) *Client {
	return &Client{
		url:      url,
		token:    token,
		roomName: roomName,
	}
}

// SetCallDataHandler registers a callback for call-data frames.
func (c *Client) SetCallDataHandler(fn func(protocol.CallDataUpdate)) {
	c.onCallData = fn
}

// Run dials the gateway, subscribes to the room, and pushes every session
// state snapshot at the sink until the context ends or the connection
// drops.
func (c *Client) Run(ctx context.Context, sink ports.SessionSink) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	slog.Info("wsfeed: connecting", "url", c.url, "room", c.roomName)
	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial gateway (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	if err := c.subscribe(); err != nil {
		return fmt.Errorf("subscribe to room: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go c.pingLoop(ctx, conn)

	// Close the socket when the context ends so the blocking read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Info("wsfeed: connected", "room", c.roomName)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: read frame: %v", domain.ErrFeedDisconnected, err)
		}
		c.handleFrame(data, sink)
	}
}

func (c *Client) subscribe() error {
	env := protocol.NewEnvelope(c.roomName, protocol.TypeSubscribe, protocol.Subscribe{RoomName: c.roomName})
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(data []byte, sink ports.SessionSink) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		slog.Warn("wsfeed: bad frame", "error", err)
		return
	}

	switch env.Type {
	case protocol.TypeSessionState:
		raw, err := protocol.DecodeBody[models.RawSession](env)
		if err != nil {
			slog.Warn("wsfeed: bad session state body", "error", err)
			return
		}
		sink.Apply(*raw)

	case protocol.TypeCallData:
		update, err := protocol.DecodeBody[protocol.CallDataUpdate](env)
		if err != nil {
			slog.Warn("wsfeed: bad call data body", "error", err)
			return
		}
		if c.onCallData != nil {
			c.onCallData(*update)
		}

	default:
		slog.Debug("wsfeed: ignoring frame", "type", env.Type)
	}
}
