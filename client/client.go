// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package client is a Go client for the medsbuddy realtime endpoint. It
// maintains a websocket connection with automatic reconnection, dispatches
// server events to registered callbacks, and keeps a small in-memory buffer
// of received notifications.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Connection states.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrAuthRejected is returned when the server refuses the handshake with a
// 401. Retrying with the same token cannot succeed, so the client stops.
var ErrAuthRejected = errors.New("authentication rejected")

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client closed")

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Notification is one buffered server notification.
type Notification struct {
	Event      string
	Payload    map[string]any
	ReceivedAt time.Time
	Read       bool
}

// notificationBufferSize bounds the in-memory notification history.
const notificationBufferSize = 50

// Handler receives the raw payload of a server event.
type Handler func(data json.RawMessage)

// Options tunes the reconnect behavior.
type Options struct {
	// MaxAttempts caps consecutive failed connection attempts before the
	// client gives up. Zero means 5.
	MaxAttempts int

	// BaseDelay is the first reconnect delay; it doubles per attempt up to
	// MaxDelay. Zero means 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means 30s.
	MaxDelay time.Duration

	// PingInterval is the keepalive cadence. Zero means 25s.
	PingInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.BaseDelay == 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.PingInterval == 0 {
		o.PingInterval = 25 * time.Second
	}
}

// Client is a realtime connection to a medsbuddy server.
type Client struct {
	url   string
	token string
	opts  Options

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	handlers map[string][]Handler

	notifications []Notification
	unread        int

	done   chan struct{}
	closed sync.Once
	err    error
}

// Dial connects to url (ws:// or wss://) using token for authentication and
// starts the receive loop. The first connection attempt is synchronous so
// bad addresses and bad tokens fail fast; later reconnects happen in the
// background.
func Dial(ctx context.Context, url, token string, opts Options) (*Client, error) {
	opts.applyDefaults()
	c := &Client{
		url:      url,
		token:    token,
		opts:     opts,
		state:    StateConnecting,
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}

	conn, err := c.connect(ctx)
	if err != nil {
		c.setState(StateClosed)
		return nil, err
	}
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.run()
	return c, nil
}

// connect performs one handshake attempt.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", ErrAuthRejected, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	return conn, nil
}

// run owns the read loop and the reconnect state machine.
func (c *Client) run() {
	pinger := time.NewTicker(c.opts.PingInterval)
	defer pinger.Stop()
	go c.pingLoop(pinger)

	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}

		err := c.readLoop(conn)
		if err == nil {
			// Close() tore the connection down.
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateDisconnected)
		if !c.reconnect() {
			return
		}
	}
}

// readLoop reads frames until the connection fails. A nil return means the
// client was closed deliberately.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return err
			}
		}
		c.dispatch(env)
	}
}

// reconnect retries the handshake with exponential backoff plus jitter.
// Returns false when the client should stop: closed, auth rejected, or out
// of attempts.
func (c *Client) reconnect() bool {
	delay := c.opts.BaseDelay
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		c.setState(StateConnecting)

		jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
		select {
		case <-c.done:
			return false
		case <-time.After(delay + jitter):
		}

		conn, err := c.connect(context.Background())
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.state = StateConnected
			c.mu.Unlock()
			return true
		}
		if errors.Is(err, ErrAuthRejected) {
			c.fail(err)
			return false
		}

		delay *= 2
		if delay > c.opts.MaxDelay {
			delay = c.opts.MaxDelay
		}
	}
	c.fail(fmt.Errorf("gave up after %d reconnect attempts", c.opts.MaxAttempts))
	return false
}

func (c *Client) pingLoop(ticker *time.Ticker) {
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.Emit("ping", nil)
		}
	}
}

// dispatch routes one server frame to callbacks and the notification buffer.
func (c *Client) dispatch(env envelope) {
	switch env.Event {
	case "system_notification", "medication_reminder", "adherence_alert":
		c.buffer(env)
	}

	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers[env.Event]))
	copy(handlers, c.handlers[env.Event])
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(env.Data)
	}
}

// buffer appends a notification, evicting the oldest past the cap.
func (c *Client) buffer(env envelope) {
	var payload map[string]any
	_ = json.Unmarshal(env.Data, &payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, Notification{
		Event:      env.Event,
		Payload:    payload,
		ReceivedAt: time.Now(),
	})
	if len(c.notifications) > notificationBufferSize {
		c.notifications = c.notifications[len(c.notifications)-notificationBufferSize:]
	}
	c.unread++
}

// On registers a callback for a server event name. Callbacks run on the
// read goroutine; long work should be handed off.
func (c *Client) On(event string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// Emit sends an event with the given payload.
func (c *Client) Emit(event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		data = encoded
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}
	if c.conn == nil || c.state != StateConnected {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(envelope{Event: event, Data: data})
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal error, if the client stopped on one.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Notifications returns a snapshot of the buffered notifications, oldest
// first.
func (c *Client) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.notifications))
	copy(out, c.notifications)
	return out
}

// UnreadCount returns the number of notifications received since the last
// MarkAllRead.
func (c *Client) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// MarkAllRead clears the unread counter and flags buffered notifications.
func (c *Client) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread = 0
	for i := range c.notifications {
		c.notifications[i].Read = true
	}
}

// Close tears the connection down and stops reconnecting. Safe to call more
// than once.
func (c *Client) Close() error {
	c.closed.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.state = StateClosed
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		}
	})
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}

// fail records a terminal error and releases everything waiting on done,
// the ping loop included.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = StateClosed
		c.err = err
	}
	c.mu.Unlock()
	_ = c.Close()
}
