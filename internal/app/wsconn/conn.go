/*
Package wsconn adapts a gorilla WebSocket connection to the user.Connection contract.

A Conn queues outbound messages as JSON envelopes on a buffered channel drained by
WritePump, and hands every inbound envelope to a caller-supplied handler from ReadPump.
Close is asynchronous: it records the reason, and WritePump sends the close frame.
*/
package wsconn

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzarena/internal/app/user"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// sendQueueSize is the number of outbound messages buffered per connection.
	sendQueueSize = 256

	// maxCloseReason is the longest reason a close frame can carry.
	maxCloseReason = 123
)

// Custom WebSocket Close Codes (4000-4999 range).
const (
	// CloseCodeServerClosed signals that the server ended the session, for
	// example because it idled out or the server is shutting down.
	CloseCodeServerClosed = 4000

	// CloseCodeSessionKicked signals that the session was replaced by a new connection.
	CloseCodeSessionKicked = 4001
)

var (
	// ErrClosed is returned by Send once the connection is closing or closed.
	ErrClosed = errors.New("connection closed")

	// ErrQueueFull is returned by Send when the client is not draining its queue.
	ErrQueueFull = errors.New("client send queue full")
)

// Envelope is the wire form of every message.
type Envelope struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Inbound is a message received from the client. Payload is decoded by the handler.
type Inbound struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler processes one inbound message on the connection's read goroutine.
type Handler func(c *Conn, msg Inbound)

// Conn is a live WebSocket session.
type Conn struct {
	// underlying WebSocket connection object.
	ws *websocket.Conn

	// ip is the client address with the port stripped.
	ip string

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// done is closed once by Close; WritePump then sends the close frame.
	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	status      user.Status
	closeReason string

	// structured logger with connection context.
	logger zerolog.Logger
}

// New wraps ws. remoteAddr is the client's address as seen by the HTTP server.
func New(ws *websocket.Conn, remoteAddr string) *Conn {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}

	return &Conn{
		ws:     ws,
		ip:     ip,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		status: user.StatusAwaitingLogin,
		logger: logx.Logger().With().
			Str("component", "wsconn").
			Str("remote_ip", logx.AnonymizeIP(ip)).
			Logger(),
	}
}

// SetLogger replaces the connection's logger to add identity context. Call it
// before starting the pumps.
func (c *Conn) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// MarkLoggedIn moves the connection out of the awaiting-login state.
func (c *Conn) MarkLoggedIn() {
	c.mu.Lock()
	if c.status == user.StatusAwaitingLogin || c.status == user.StatusAwaitingPassword {
		c.status = user.StatusOK
	}
	c.mu.Unlock()
}

// Send wraps payload in an envelope and queues it. It never blocks: a full
// queue drops the message and returns ErrQueueFull.
func (c *Conn) Send(msgType string, payload any) error {
	if !c.Status().Live() {
		return ErrClosed
	}

	messageBytes, err := json.Marshal(Envelope{
		ID:        randx.MessageID(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		c.logger.Error().Err(err).Str("msg_type", msgType).Msg("Error marshaling data for client")
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrQueueFull
	}
}

func (c *Conn) Status() user.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Address returns the client IP.
func (c *Conn) Address() string {
	return c.ip
}

// SameOrigin reports whether other is a different connection from the same client IP.
func (c *Conn) SameOrigin(other user.Connection) bool {
	o, ok := other.(*Conn)
	return ok && o != c && o.ip == c.ip
}

// Close asks WritePump to send a close frame carrying reason and end the
// session. Only the first call has any effect.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.status.Live() {
			c.status = user.StatusClosing
		}
		c.closeReason = reason
		c.mu.Unlock()

		c.logger.Info().Str("reason", reason).Msg("Closing connection.")
		close(c.done)
	})
}

// ReadPump reads inbound envelopes until the connection fails, passing each one
// to handle. onClose runs once after the read loop ends.
func (c *Conn) ReadPump(handle Handler, onClose func()) {
	defer func() {
		c.mu.Lock()
		c.status = user.StatusDisconnected
		c.mu.Unlock()

		// unblock WritePump if the client went away first
		c.closeOnce.Do(func() { close(c.done) })

		if onClose != nil {
			onClose()
		}

		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(messageBytes, &msg); err != nil || msg.Type == "" {
			c.logger.Warn().Err(err).Int("bytes", len(messageBytes)).Msg("Client sent invalid JSON")
			continue
		}

		handle(c, msg)
	}
}

// WritePump writes queued messages and heartbeats until Close is called or a write fails.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message := <-c.send:
			if !c.writeMessage(websocket.TextMessage, message) {
				return
			}

		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.flush()
			c.writeClose()
			return
		}
	}
}

// flush writes whatever was queued before Close, so the close notice follows
// the messages that explain it.
func (c *Conn) flush() {
	for {
		select {
		case message := <-c.send:
			if !c.writeMessage(websocket.TextMessage, message) {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) writeMessage(messageType int, data []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.ws.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

// writeClose sends the close frame for the recorded reason.
func (c *Conn) writeClose() {
	c.mu.Lock()
	reason := c.closeReason
	c.mu.Unlock()

	code := CloseCodeServerClosed
	if reason == user.ReasonSessionReplaced {
		code = CloseCodeSessionKicked
	}
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}

	c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
