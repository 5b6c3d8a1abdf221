package relay

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one live transport connection attached to this gateway.
// A user may hold several clients at once (multiple tabs/devices).
type Client struct {
	ConnID string
	WS     *websocket.Conn
	Send   chan []byte // outbound queue, drained by a single writer pump

	mu     sync.Mutex
	userID string // empty until the connection identifies itself via setup
	closed bool
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// User returns the bound user id, empty before setup. Safe from any
// goroutine; the router writes the binding, the read goroutine's pong
// handler reads it.
func (c *Client) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) setUser(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// enqueue offers a payload to the client without blocking. A full queue
// means a slow consumer and a closed client means the connection is
// already gone; either way the frame is dropped (at-most-once delivery).
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the send queue exactly once, stopping the writer pump.
// Fanout jobs queued before the close may still hold this client; their
// late enqueues become no-ops.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
