package push

import (
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 256

// Client is the per-connection state: the websocket itself, the outbound
// message queue drained by the write pump, and a close latch. Messages for
// one connection always flow through send in emission order.
type Client struct {
	userID string
	conn   *websocket.Conn

	send   chan interface{}
	closed chan struct{}
	once   sync.Once
}

func newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan interface{}, sendBuffer),
		closed: make(chan struct{}),
	}
}

// enqueue queues a message for the write pump without ever blocking the
// caller. It reports false when the client is closed or its buffer is
// full; either way the connection is no longer worth delivering to.
func (c *Client) enqueue(msg interface{}) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

// close releases the pumps. Safe to call from any goroutine, any number of
// times.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.closed)
	})
}
