// Package realtime keeps remote viewers in sync: a long-lived subscription to
// external change events that triggers a local refresh, with exponential
// backoff reconnection. The concrete subscription socket is an injected
// Transport; this package owns only the state machine.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ChangeEvent is one insert/update/delete notification on a watched table.
// It carries only enough to trigger a refresh; the refresh re-reads current
// state from the store.
type ChangeEvent struct {
	Type    string
	Table   string
	Payload json.RawMessage
}

// Subscription is a live watch handle.
type Subscription interface {
	Unsubscribe() error
}

// Transport is the external subscription boundary.
type Transport interface {
	// Connected reports whether the underlying transport-level connection is
	// up. Checked before each subscribe attempt so a doomed subscribe is
	// deferred instead of attempted.
	Connected() bool
	Subscribe(table string, onEvent func(ChangeEvent), onError func(error)) (Subscription, error)
}

// NoticeKind classifies user-visible channel notices.
type NoticeKind int

const (
	NoticeReconnecting NoticeKind = iota
	NoticeRestored
	NoticeConnectionIssue
	NoticeRemoteUpdate
)

// Notice is a user-visible message emitted by the channel.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// State is the channel lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Config configures a Channel.
type Config struct {
	Table      string
	OnRefresh  func()
	OnNotice   func(Notice)
	Logger     *logrus.Logger
	BaseDelay  time.Duration // default 1s
	MaxDelay   time.Duration // default 30s
	MaxRetries int           // default 5
}

// Channel is the reconnect-resilient subscription to one table.
type Channel struct {
	cfg       Config
	transport Transport
	afterFunc func(time.Duration, func()) *time.Timer

	mu           sync.Mutex
	state        State
	retries      int
	sub          Subscription
	pendingTimer *time.Timer
	delivered    bool
	closed       bool
}

// NewChannel builds a channel; call Start to begin subscribing.
func NewChannel(transport Transport, cfg Config) *Channel {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Channel{
		cfg:       cfg,
		transport: transport,
		afterFunc: time.AfterFunc,
		state:     StateDisconnected,
	}
}

// Start makes the first subscribe attempt.
func (c *Channel) Start() {
	c.connect()
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pendingTimer = nil

	if !c.transport.Connected() {
		// Transport-level connection is down. Defer and re-check rather than
		// attempting a doomed subscribe; the retry counter is untouched.
		c.state = StateReconnecting
		c.pendingTimer = c.afterFunc(c.cfg.BaseDelay, c.connect)
		c.mu.Unlock()
		c.cfg.Logger.WithField("table", c.cfg.Table).Debug("Transport down, deferring subscribe")
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	sub, err := c.transport.Subscribe(c.cfg.Table, c.handleChange, c.handleChannelError)
	if err != nil {
		c.handleChannelError(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.sub = sub
	c.state = StateSubscribed
	recovered := c.retries > 0
	c.retries = 0
	c.mu.Unlock()

	c.cfg.Logger.WithField("table", c.cfg.Table).Info("Change subscription established")
	if recovered {
		c.notify(Notice{Kind: NoticeRestored, Message: "Connection restored"})
	}
}

// handleChannelError drives the backoff state machine for both channel errors
// and subscribe timeouts.
func (c *Channel) handleChannelError(err error) {
	c.mu.Lock()
	if c.closed || c.state == StateFailed || c.pendingTimer != nil {
		c.mu.Unlock()
		return
	}
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}

	c.retries++
	if c.retries > c.cfg.MaxRetries {
		c.state = StateFailed
		c.mu.Unlock()
		c.cfg.Logger.WithFields(map[string]interface{}{
			"table": c.cfg.Table,
			"error": err.Error(),
		}).Error("Change subscription gave up after retry ceiling")
		c.notify(Notice{Kind: NoticeConnectionIssue, Message: "Connection issue: live updates are unavailable"})
		return
	}

	delay := c.backoffDelay(c.retries)
	c.state = StateReconnecting
	c.pendingTimer = c.afterFunc(delay, c.connect)
	retries := c.retries
	c.mu.Unlock()

	c.cfg.Logger.WithFields(map[string]interface{}{
		"table":   c.cfg.Table,
		"error":   err.Error(),
		"retry":   retries,
		"delay_s": int(delay.Seconds()),
	}).Warn("Change subscription lost, reconnecting")
	c.notify(Notice{
		Kind:    NoticeReconnecting,
		Message: fmt.Sprintf("Connection lost, reconnecting in %d seconds", int(delay.Seconds())),
	})
}

func (c *Channel) handleChange(ev ChangeEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	first := !c.delivered
	c.delivered = true
	c.mu.Unlock()

	c.cfg.Logger.WithFields(map[string]interface{}{
		"table": ev.Table,
		"type":  ev.Type,
	}).Debug("Change event received")
	if c.cfg.OnRefresh != nil {
		c.cfg.OnRefresh()
	}
	// The very first delivery after process start is the initial load echo;
	// a notice there would be spurious.
	if !first {
		c.notify(Notice{Kind: NoticeRemoteUpdate, Message: "Records were updated by another session"})
	}
}

// Close tears the channel down: unsubscribes and cancels any pending
// reconnect timer. Safe to call multiple times.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
	}
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// backoffDelay is base * 2^(retry-1), capped at MaxDelay.
func (c *Channel) backoffDelay(retry int) time.Duration {
	d := c.cfg.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
	}
	if d > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return d
}

func (c *Channel) notify(n Notice) {
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(n)
	}
}
