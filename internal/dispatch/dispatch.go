// Package dispatch runs the inbound loop: long-poll the chat transport from
// an explicit cursor, handle every update of a batch in delivery order, and
// move the cursor past the batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
)

// Message is the text part of an inbound update.
type Message struct {
	ChatID   int64
	Username string
	Text     string
}

// Update is one inbound event. Message is nil for updates that carry no
// chat message.
type Update struct {
	ID      int64
	Message *Message
}

// Transport is the chat transport boundary.
type Transport interface {
	// FetchUpdates long-polls for updates with id >= cursor.
	FetchUpdates(ctx context.Context, cursor int64) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Store is the part of database.Store the loop needs.
type Store interface {
	GetOrCreateSession(ctx context.Context, chatID int64, username string) (*database.ChatSession, bool, error)
	IsUpdateProcessed(ctx context.Context, updateID int64) (bool, error)
	MarkUpdateProcessed(ctx context.Context, updateID, chatID int64) error
	LastProcessedUpdateID(ctx context.Context) (int64, bool, error)
}

// Gate admits verified sessions and answers all others.
type Gate interface {
	Admit(ctx context.Context, session *database.ChatSession) error
}

// Handler runs the conversation for an admitted session.
type Handler interface {
	Handle(ctx context.Context, session *database.ChatSession, text string) error
}

// Deps provides dependencies for the Dispatcher.
type Deps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Store        Store
	Transport    Transport
	Gate         Gate
	Conversation Handler
}

// Dispatcher processes updates one at a time. It holds no cursor of its own.
type Dispatcher struct {
	deps Deps
	log  *slog.Logger
}

// New creates a Dispatcher.
func New(deps Deps) *Dispatcher {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{deps: deps, log: log.With("component", "dispatch")}
}

// StartCursor returns the cursor to resume from: one past the last update
// recorded as processed, or 0 when the ledger is empty.
func (d *Dispatcher) StartCursor(ctx context.Context) (int64, error) {
	last, ok, err := d.deps.Store.LastProcessedUpdateID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read start cursor: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last + 1, nil
}

// Run polls until ctx is cancelled. A failed fetch is retried with the same
// cursor after the configured delay.
func (d *Dispatcher) Run(ctx context.Context, cursor int64) error {
	d.log.InfoContext(ctx, "Dispatch loop started", "cursor", cursor)

	for {
		next, err := d.Poll(ctx, cursor)
		if ctx.Err() != nil {
			d.log.InfoContext(ctx, "Dispatch loop stopped", "cursor", cursor)
			return nil
		}
		if err != nil {
			d.log.ErrorContext(ctx, "Failed to fetch updates", "cursor", cursor, "error", err)
			if !sleep(ctx, d.deps.Config.Bot.FetchRetryDelay) {
				d.log.InfoContext(ctx, "Dispatch loop stopped", "cursor", cursor)
				return nil
			}
			continue
		}
		cursor = next
	}
}

// Poll fetches one batch from cursor, processes it in order and returns the
// cursor for the next poll.
func (d *Dispatcher) Poll(ctx context.Context, cursor int64) (int64, error) {
	updates, err := d.deps.Transport.FetchUpdates(ctx, cursor)
	if err != nil {
		return cursor, errs.NewTransportError("fetch updates", err)
	}

	next := cursor
	for _, u := range updates {
		if u.ID >= next {
			next = u.ID + 1
		}
		if err := d.Process(ctx, u); err != nil {
			d.log.ErrorContext(ctx, "Failed to process update", "update_id", u.ID, "error", err)
		}
	}
	if len(updates) > 0 {
		d.log.DebugContext(ctx, "Processed batch", "updates", len(updates), "next_cursor", next)
	}
	return next, nil
}

// Process handles a single update and records it as processed. Updates that
// were already recorded are skipped.
func (d *Dispatcher) Process(ctx context.Context, u Update) error {
	done, err := d.deps.Store.IsUpdateProcessed(ctx, u.ID)
	if err != nil {
		return err
	}
	if done {
		d.log.DebugContext(ctx, "Skipping redelivered update", "update_id", u.ID)
		return nil
	}

	var chatID int64
	if u.Message != nil {
		chatID = u.Message.ChatID
		if err := d.handleMessage(ctx, u.ID, u.Message); err != nil {
			return err
		}
	} else {
		d.log.DebugContext(ctx, "Ignoring update without message", "update_id", u.ID)
	}

	return d.deps.Store.MarkUpdateProcessed(ctx, u.ID, chatID)
}

func (d *Dispatcher) handleMessage(ctx context.Context, updateID int64, msg *Message) error {
	log := d.log.With("update_id", updateID, "chat_id", msg.ChatID)

	session, created, err := d.deps.Store.GetOrCreateSession(ctx, msg.ChatID, msg.Username)
	if err != nil {
		return fmt.Errorf("failed to load session for chat %d: %w", msg.ChatID, err)
	}
	if created {
		log.InfoContext(ctx, "First contact from chat", "username", msg.Username)
	}

	if err := d.deps.Gate.Admit(ctx, session); err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			log.InfoContext(ctx, "Unverified chat answered with verification code")
			return nil
		}
		d.replyError(ctx, msg.ChatID)
		return fmt.Errorf("verification gate failed: %w", err)
	}

	if err := d.deps.Conversation.Handle(ctx, session, msg.Text); err != nil {
		log.ErrorContext(ctx, "Conversation handler failed", "state", session.State, "error", err)
		d.replyError(ctx, msg.ChatID)
	}
	return nil
}

func (d *Dispatcher) replyError(ctx context.Context, chatID int64) {
	if err := d.deps.Transport.SendMessage(ctx, chatID, d.deps.Config.Messages.GeneralError); err != nil {
		d.log.ErrorContext(ctx, "Failed to send error reply", "chat_id", chatID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
