// Package background runs the controller that owns the asset cache and
// performs full data wipes on request from the foreground.
package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meltforce/gainslog/internal/channel"
	"golang.org/x/sync/errgroup"
)

// ErrInboxFull is returned when the worker cannot accept another message.
var ErrInboxFull = errors.New("background inbox full")

const inboxSize = 8

// Assets is the asset cache as seen by the worker.
type Assets interface {
	Install(ctx context.Context) error
	Activate(ctx context.Context) error
	Purge(ctx context.Context) error
}

// DropFunc deletes the whole database.
type DropFunc func(ctx context.Context) error

// Worker is the background controller. It receives messages on its own
// inbox and answers through reply.
type Worker struct {
	assets Assets
	drop   DropFunc
	reply  channel.Port
	inbox  chan channel.Message
	log    *slog.Logger
}

// New creates a worker. reply receives data_cleared and clear_failed.
func New(assets Assets, drop DropFunc, reply channel.Port, log *slog.Logger) *Worker {
	return &Worker{
		assets: assets,
		drop:   drop,
		reply:  reply,
		inbox:  make(chan channel.Message, inboxSize),
		log:    log,
	}
}

// Start installs and activates the asset cache. A nil error means the
// controller is active and may be attached to the foreground.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.assets.Install(ctx); err != nil {
		return fmt.Errorf("installing assets: %w", err)
	}
	if err := w.assets.Activate(ctx); err != nil {
		return fmt.Errorf("activating assets: %w", err)
	}
	return nil
}

// PostMessage queues msg for Run without blocking.
func (w *Worker) PostMessage(msg channel.Message) error {
	select {
	case w.inbox <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}

// Run processes the inbox until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.inbox:
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg channel.Message) {
	if msg.Action != channel.ActionClearData {
		w.log.Warn("ignoring unexpected message", "action", msg.Action)
		return
	}

	if c, ok := w.reply.(channel.Claimer); ok && !c.Claim(msg.RequestID) {
		w.log.Warn("skipping expired clear request", "request_id", msg.RequestID)
		return
	}

	w.log.Info("clearing all data", "request_id", msg.RequestID)

	// Both run to completion even if one fails.
	var g errgroup.Group
	g.Go(func() error {
		if err := w.assets.Purge(ctx); err != nil {
			return fmt.Errorf("purging asset cache: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := w.drop(ctx); err != nil {
			return fmt.Errorf("dropping database: %w", err)
		}
		return nil
	})

	out := channel.Message{Action: channel.ActionDataCleared, RequestID: msg.RequestID}
	if err := g.Wait(); err != nil {
		w.log.Error("clearing data failed", "request_id", msg.RequestID, "error", err)
		out.Action = channel.ActionClearFailed
	}
	if err := w.reply.PostMessage(out); err != nil {
		w.log.Error("posting reply", "action", out.Action, "error", err)
	}
}
