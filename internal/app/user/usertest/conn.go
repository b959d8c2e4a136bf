// Package usertest provides an in-memory user.Connection for tests.
package usertest

import (
	"errors"
	"sync"

	"hzarena/internal/app/user"
)

// ErrSendFailed is returned by Send on a connection set to fail.
var ErrSendFailed = errors.New("usertest: send failed")

// Message is one message recorded by Conn.
type Message struct {
	Type    string
	Payload any
}

// Conn records every message sent to it.
type Conn struct {
	addr   string
	origin string

	mu      sync.Mutex
	status  user.Status
	fail    bool
	sent    []Message
	closes  []string
	onClose func(reason string)
}

// NewConn returns a live connection. Connections sharing origin are SameOrigin.
func NewConn(addr, origin string) *Conn {
	return &Conn{addr: addr, origin: origin, status: user.StatusOK}
}

func (c *Conn) Send(msgType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail {
		return ErrSendFailed
	}
	c.sent = append(c.sent, Message{Type: msgType, Payload: payload})
	return nil
}

func (c *Conn) Status() user.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Conn) Address() string {
	return c.addr
}

// Close records reason and marks the connection disconnected.
func (c *Conn) Close(reason string) {
	c.mu.Lock()
	c.closes = append(c.closes, reason)
	c.status = user.StatusDisconnected
	hook := c.onClose
	c.mu.Unlock()

	if hook != nil {
		hook(reason)
	}
}

func (c *Conn) SameOrigin(other user.Connection) bool {
	o, ok := other.(*Conn)
	return ok && o != c && o.origin != "" && o.origin == c.origin
}

func (c *Conn) SetStatus(s user.Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// SetFail makes every later Send return ErrSendFailed.
func (c *Conn) SetFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

func (c *Conn) OnClose(fn func(reason string)) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

// Sent returns a copy of every message received so far.
func (c *Conn) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

// SentOfType returns the messages with type msgType.
func (c *Conn) SentOfType(msgType string) []Message {
	var out []Message
	for _, m := range c.Sent() {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Closes returns the reasons passed to Close, in order.
func (c *Conn) Closes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.closes...)
}
