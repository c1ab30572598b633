package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
)

const writeWait = 10 * time.Second

// Connection wraps a websocket. Writes go through a bounded channel drained
// by a single write loop; a full channel closes the connection.
type Connection struct {
	id     string
	userID string

	ws         *websocket.Conn
	send       chan []byte
	done       chan struct{}
	once       sync.Once
	pingPeriod time.Duration

	// rooms is only touched by the read loop.
	rooms map[string]struct{}
}

func newConnection(ws *websocket.Conn, userID string, buffer int, pingPeriod time.Duration) *Connection {
	return &Connection{
		id:         uuid.NewString(),
		userID:     userID,
		ws:         ws,
		send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
		rooms:      make(map[string]struct{}),
	}
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

// Send queues ev for delivery without blocking.
func (c *Connection) Send(ev event.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", errs.ErrDelivery, ev.Name, err)
	}
	select {
	case <-c.done:
		return fmt.Errorf("%w: connection closed", errs.ErrDelivery)
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		c.Close(CloseGoingAway, "send buffer full")
		return fmt.Errorf("%w: send buffer full", errs.ErrDelivery)
	}
}

// Close sends a close frame and tears down the socket. Safe to call more than once.
// The send channel stays open so a concurrent Send never panics.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) join(conversationID string)  { c.rooms[conversationID] = struct{}{} }
func (c *Connection) leave(conversationID string) { delete(c.rooms, conversationID) }
