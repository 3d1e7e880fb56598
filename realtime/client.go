package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per connection.
	sendBufferSize = 64
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	UserID uint

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// done signals teardown (displacement or disconnect). The send channel
	// is never closed: pushes may still hold a stale client after the hub
	// lock is released, and sending on a closed channel would panic.
	done      chan struct{}
	closeOnce sync.Once

	// channels tracks this client's subscriptions; mutated only under the
	// hub's lock.
	channels map[uuid.UUID]bool
}

func NewClient(hub *Hub, userID uint, conn *websocket.Conn) *Client {
	return &Client{
		UserID:   userID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		channels: make(map[uuid.UUID]bool),
	}
}

// trySend queues the payload without blocking. Returns false when the
// client is closed or its buffer is full; the event is dropped for this
// client.
func (c *Client) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		log.Printf("realtime: send buffer full for user %d, event dropped", c.UserID)
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump pumps inbound frames from the websocket to the handler. It owns
// the read side of the connection and unregisters the client on exit.
func (c *Client) ReadPump(handle func(data []byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: read error for user %d: %v", c.UserID, err)
			}
			break
		}
		handle(data)
	}
}

// WritePump pumps queued events to the websocket connection and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			// Displaced by a newer connection or shut down.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("realtime: write error for user %d: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
