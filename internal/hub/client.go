package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PapNorbert/WatchWise/internal/config"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

// ErrClientClosed is returned when sending to a disconnected client.
var ErrClientClosed = errors.New("client closed")

type Client struct {
	ID     string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	ctx    context.Context
	mu     sync.Mutex
	closed bool
	config config.WebSocketConfig
}

// NewClient creates a client. conn may be nil for clients that are never pumped.
func NewClient(ctx context.Context, id string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &Client{
		ID:     id,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, cfg.SendBuffer),
		ctx:    log.WithConnection(ctx, id),
		config: cfg,
	}
}

// Context carries the connection-scoped logger.
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// trySend queues data without blocking. It reports false only when the
// buffer is full; frames for a closed client are dropped.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads frames until the connection fails, then calls onDisconnect.
func (c *Client) ReadPump(handler func(*Client, []byte), onDisconnect func(*Client)) {
	l := log.Ctx(c.ctx)
	defer func() {
		if onDisconnect != nil {
			onDisconnect(c)
		} else {
			c.Hub.Unregister(c)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a frame for this client only.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	if c.Closed() {
		return ErrClientClosed
	}
	if !c.trySend(data) {
		l := log.Ctx(c.ctx)
		l.Warn().Msg("send buffer full, dropping frame")
	}
	return nil
}
