package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// portFunc adapts a function to Port.
type portFunc func(Message) error

func (f portFunc) PostMessage(m Message) error { return f(m) }

// replyingPort answers every clear_data with action on the client, from its
// own goroutine.
func replyingPort(c *Client, action Action) Port {
	return portFunc(func(m Message) error {
		go c.PostMessage(Message{Action: action, RequestID: m.RequestID})
		return nil
	})
}

// TestMessageWireShape verifies the JSON field names.
func TestMessageWireShape(t *testing.T) {
	b, err := json.Marshal(Message{Action: ActionClearData, RequestID: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"action":"clear_data","request_id":"r1"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
	b, _ = json.Marshal(Message{Action: ActionDataCleared})
	if got, want := string(b), `{"action":"data_cleared"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

// TestRequestClearNoController verifies that nothing is posted without an
// attached controller.
func TestRequestClearNoController(t *testing.T) {
	c := NewClient(time.Second, testLogger())
	if c.Active() {
		t.Error("new client reports active")
	}
	if err := c.RequestClear(context.Background()); !errors.Is(err, ErrNoController) {
		t.Errorf("err = %v, want ErrNoController", err)
	}
}

// TestRequestClearReplies verifies the outcome for each reply action.
func TestRequestClearReplies(t *testing.T) {
	tests := []struct {
		action Action
		want   error
	}{
		{ActionDataCleared, nil},
		{ActionClearFailed, ErrClearFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			c := NewClient(time.Second, testLogger())
			c.Attach(replyingPort(c, tt.action))
			if err := c.RequestClear(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestRequestClearPostError verifies that a failed post is reported and the
// pending entry is released.
func TestRequestClearPostError(t *testing.T) {
	c := NewClient(time.Second, testLogger())
	boom := errors.New("inbox closed")
	c.Attach(portFunc(func(Message) error { return boom }))
	if err := c.RequestClear(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if n := len(c.pending); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

// TestRequestClearTimeoutDropsLateReply verifies that the timeout wins over a
// slow controller and that its eventual reply is discarded.
func TestRequestClearTimeoutDropsLateReply(t *testing.T) {
	c := NewClient(20*time.Millisecond, testLogger())
	posted := make(chan Message, 1)
	c.Attach(portFunc(func(m Message) error {
		posted <- m
		return nil
	}))

	if err := c.RequestClear(context.Background()); !errors.Is(err, ErrChannelTimeout) {
		t.Fatalf("err = %v, want ErrChannelTimeout", err)
	}

	req := <-posted
	if req.Action != ActionClearData || req.RequestID == "" {
		t.Errorf("posted %+v, want clear_data with request id", req)
	}

	// The late reply has nowhere to go.
	if err := c.PostMessage(Message{Action: ActionDataCleared, RequestID: req.RequestID}); err != nil {
		t.Errorf("late PostMessage: %v", err)
	}
	if n := len(c.pending); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}

	// A new request is not satisfied by the stale reply.
	c.Attach(replyingPort(c, ActionClearFailed))
	if err := c.RequestClear(context.Background()); !errors.Is(err, ErrClearFailed) {
		t.Errorf("second request err = %v, want ErrClearFailed", err)
	}
}

// TestRequestClearOutstanding verifies that only one request may be in flight.
func TestRequestClearOutstanding(t *testing.T) {
	c := NewClient(time.Second, testLogger())
	posted := make(chan Message, 1)
	c.Attach(portFunc(func(m Message) error {
		posted <- m
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- c.RequestClear(context.Background()) }()
	first := <-posted

	if err := c.RequestClear(context.Background()); !errors.Is(err, ErrRequestOutstanding) {
		t.Errorf("second err = %v, want ErrRequestOutstanding", err)
	}

	c.PostMessage(Message{Action: ActionDataCleared, RequestID: first.RequestID})
	if err := <-done; err != nil {
		t.Errorf("first err = %v, want nil", err)
	}
}

// TestRequestClearContextCanceled verifies that the caller can abandon the wait.
func TestRequestClearContextCanceled(t *testing.T) {
	c := NewClient(time.Minute, testLogger())
	c.Attach(portFunc(func(Message) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.RequestClear(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// TestClaimedRequestOutlivesTimeout verifies that once the controller has
// claimed a request, RequestClear waits for its reply past the timeout.
func TestClaimedRequestOutlivesTimeout(t *testing.T) {
	c := NewClient(20*time.Millisecond, testLogger())
	c.Attach(portFunc(func(m Message) error {
		if !c.Claim(m.RequestID) {
			t.Errorf("Claim(%s) = false, want true", m.RequestID)
		}
		go func() {
			time.Sleep(100 * time.Millisecond)
			c.PostMessage(Message{Action: ActionDataCleared, RequestID: m.RequestID})
		}()
		return nil
	}))

	if err := c.RequestClear(context.Background()); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

// TestClaimAfterTimeout verifies that a timed-out request can no longer be
// claimed.
func TestClaimAfterTimeout(t *testing.T) {
	c := NewClient(20*time.Millisecond, testLogger())
	posted := make(chan Message, 1)
	c.Attach(portFunc(func(m Message) error {
		posted <- m
		return nil
	}))

	if err := c.RequestClear(context.Background()); !errors.Is(err, ErrChannelTimeout) {
		t.Fatalf("err = %v, want ErrChannelTimeout", err)
	}
	req := <-posted
	if c.Claim(req.RequestID) {
		t.Errorf("Claim after timeout = true, want false")
	}
	if c.Claim("unknown") {
		t.Errorf("Claim(unknown) = true, want false")
	}
}
