// Package server manages individual WebSocket connections, handling the
// outbound delivery queue, read/write pumps, rate limiting, and lifecycle
// control for each socket.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Conn represents one live client connection. It owns the inbound receive
// path and a bounded outbound delivery queue drained by a dedicated write
// pump. The session coordinator that created a Conn owns it; the current
// Room only holds a membership reference keyed by the connection id.
type Conn struct {
	ws       *websocket.Conn
	id       string
	username string
	joinedAt time.Time

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}

	mu            sync.Mutex
	room          *Room
	closed        bool
	writerStarted bool

	closeOnce sync.Once

	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	maxMessageSize int64
}

// NewConn creates a connection record for an accepted, handshake-approved
// socket. The write pump is not running until StartWriter is called.
func NewConn(ws *websocket.Conn, username string) *Conn {
	cfg := currentConfig()
	if ws != nil {
		ws.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Conn{
		ws:             ws,
		id:             uuid.NewString(),
		username:       username,
		joinedAt:       time.Now(),
		send:           make(chan []byte, cfg.SendQueueSize),
		done:           make(chan struct{}),
		writerDone:     make(chan struct{}),
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the generated unique connection id.
func (c *Conn) ID() string { return c.id }

// Username returns the username claimed during the handshake.
func (c *Conn) Username() string { return c.username }

// JoinedAt returns the time the connection passed the handshake.
func (c *Conn) JoinedAt() time.Time { return c.joinedAt }

// String identifies the connection in logs.
func (c *Conn) String() string {
	return fmt.Sprintf("'%s' (%s)", c.username, c.id)
}

// Room returns the room this connection currently broadcasts through.
func (c *Conn) Room() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// setRoom redirects the connection's broadcast target. Only the session
// coordinator reassigns it.
func (c *Conn) setRoom(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = r
}

// Closed reports whether Close has begun.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Enqueue appends a serialized event to the outbound queue. A full queue is
// a capacity failure: the connection is forcibly closed rather than
// blocking the broadcaster or dropping silently.
func (c *Conn) Enqueue(payload []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	select {
	case c.send <- payload:
		return true
	default:
		log.Printf("Delivery queue full for %s; closing connection", c)
		// Close broadcasts the leave event and needs the room lock, which
		// the broadcasting caller may hold right now.
		go c.Close()
		return false
	}
}

// SendEvent serializes an event and enqueues it for this connection only.
func (c *Conn) SendEvent(ev Event) bool {
	payload, err := EncodeEvent(ev)
	if err != nil {
		log.Printf("Error encoding %s event for %s: %v", ev.Kind(), c, err)
		return false
	}
	return c.Enqueue(payload)
}

// StartWriter launches the write pump, the sole consumer of the delivery
// queue and the sole writer to the socket.
func (c *Conn) StartWriter() {
	c.mu.Lock()
	if c.writerStarted || c.closed {
		c.mu.Unlock()
		return
	}
	c.writerStarted = true
	c.mu.Unlock()

	go c.writePump()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeSocket()
		close(c.writerDone)
	}()

	for {
		select {
		case <-c.done:
			c.writeCloseMessage()
			return

		case payload := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c, err)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing to %s: %v", c, err)
				}
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) writeCloseMessage() {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c, err)
		}
	}
}

func (c *Conn) closeSocket() {
	if c.ws == nil {
		return
	}
	if err := c.ws.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing socket for %s: %v", c, err)
		}
	}
}

// setupRead arms the read deadline and pong handler before the receive
// loop starts.
func (c *Conn) setupRead() {
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting read deadline for %s: %v", c, err)
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadEvent blocks for the next inbound frame and decodes it against the
// event schema. Malformed frames are answered with a system error notice
// on this connection only and skipped; the connection stays open. Rate
// limited frames are discarded. A read error means the socket is gone.
func (c *Conn) ReadEvent() (Event, error) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			log.Printf("Received empty frame from %s, ignoring", c)
			continue
		}

		if c.rateLimiter != nil && !c.rateLimiter.allow() {
			log.Printf("Rate limit exceeded for %s (%d frames per %s); discarding frame",
				c, c.rateLimit.Burst, c.rateLimit.RefillInterval)
			continue
		}

		ev, err := DecodeEvent(raw)
		if err != nil {
			log.Printf("Invalid frame from %s: %v", c, err)
			c.SendEvent(NewSystemMessage(SeverityError, "Invalid message format"))
			continue
		}
		return ev, nil
	}
}

// Close is idempotent. On first call it broadcasts a leave event to the
// current room so history and membership stay consistent, then stops the
// write pump and waits for it to finish before marking the connection
// closed. Later calls are no-ops.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		room := c.room
		writerStarted := c.writerStarted
		c.mu.Unlock()

		log.Printf("Closing connection for %s", c)
		if room != nil {
			room.Broadcast(NewUserLeave(c.username))
		}

		close(c.done)
		if writerStarted {
			<-c.writerDone
		} else {
			c.closeSocket()
		}
	})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// isDisconnect reports whether a read error is an ordinary client
// disconnect rather than something worth logging loudly.
func isDisconnect(err error) bool {
	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived)
}
