// Package channel carries control messages between the foreground
// application and the background controller.
//
// The two sides never share state. They exchange Message values through a
// Port, and replies are matched to requests by request id.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action names a control message.
type Action string

const (
	ActionClearData   Action = "clear_data"
	ActionDataCleared Action = "data_cleared"
	ActionClearFailed Action = "clear_failed"
)

// Message is the only value that crosses between contexts.
type Message struct {
	Action    Action `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// Port accepts messages for the other side.
type Port interface {
	PostMessage(Message) error
}

// Claimer is implemented by a Port that tracks outstanding requests. The
// controller claims a request before doing anything destructive; a request
// that already timed out cannot be claimed.
type Claimer interface {
	Claim(requestID string) bool
}

// DefaultTimeout bounds how long RequestClear waits for the controller to
// pick up a request.
const DefaultTimeout = 5 * time.Second

var (
	ErrNoController       = errors.New("no active background controller")
	ErrClearFailed        = errors.New("background controller failed to clear data")
	ErrChannelTimeout     = errors.New("timed out waiting for background controller")
	ErrRequestOutstanding = errors.New("a clear request is already outstanding")
)

// Client is the foreground end of the channel. It owns the table of pending
// requests and delivers replies posted back to it.
type Client struct {
	timeout time.Duration
	log     *slog.Logger

	mu         sync.Mutex
	controller Port
	pending    map[string]*pendingRequest
}

type pendingRequest struct {
	reply   chan Message
	claimed bool
}

// NewClient creates a client with no controller attached. A zero timeout
// means DefaultTimeout.
func NewClient(timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		timeout: timeout,
		log:     log,
		pending: make(map[string]*pendingRequest),
	}
}

// Attach sets the active controller. Passing nil detaches it.
func (c *Client) Attach(p Port) {
	c.mu.Lock()
	c.controller = p
	c.mu.Unlock()
}

// Active reports whether a controller is attached.
func (c *Client) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller != nil
}

// RequestClear asks the controller to wipe cached assets and the database,
// and waits for its reply, the timeout, or ctx.
//
// The timeout only applies until the controller claims the request. Once
// claimed, the wipe is under way and RequestClear waits for its outcome.
func (c *Client) RequestClear(ctx context.Context) error {
	id := uuid.NewString()
	req := &pendingRequest{reply: make(chan Message, 1)}

	c.mu.Lock()
	controller := c.controller
	if controller == nil {
		c.mu.Unlock()
		return ErrNoController
	}
	if len(c.pending) > 0 {
		c.mu.Unlock()
		return ErrRequestOutstanding
	}
	c.pending[id] = req
	c.mu.Unlock()

	defer c.expire(id)

	if err := controller.PostMessage(Message{Action: ActionClearData, RequestID: id}); err != nil {
		return fmt.Errorf("posting clear request: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-req.reply:
			return replyErr(msg)
		case <-timer.C:
			c.mu.Lock()
			_, stillPending := c.pending[id]
			claimed := req.claimed
			if stillPending && !claimed {
				delete(c.pending, id)
			}
			c.mu.Unlock()

			switch {
			case !stillPending:
				// The reply was taken off the table just now.
				return replyErr(<-req.reply)
			case claimed:
				c.log.Info("controller is still clearing, waiting for reply", "request_id", id)
				continue
			}
			c.log.Warn("clear request timed out", "request_id", id, "timeout", c.timeout)
			return ErrChannelTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func replyErr(msg Message) error {
	if msg.Action == ActionDataCleared {
		return nil
	}
	return ErrClearFailed
}

func (c *Client) expire(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Claim marks a pending request as being worked on. It reports false for
// unknown or expired requests, which the controller must then ignore.
func (c *Client) Claim(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[requestID]
	if !ok {
		return false
	}
	req.claimed = true
	return true
}

// PostMessage delivers a reply from the controller. Replies with an unknown
// or expired request id are dropped.
func (c *Client) PostMessage(msg Message) error {
	if msg.Action != ActionDataCleared && msg.Action != ActionClearFailed {
		c.log.Warn("ignoring unexpected message", "action", msg.Action)
		return nil
	}

	c.mu.Lock()
	req, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warn("dropping reply for unknown request", "action", msg.Action, "request_id", msg.RequestID)
		return nil
	}
	req.reply <- msg
	return nil
}
