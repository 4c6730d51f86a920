package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
)

// Store is the part of database.Store the gate needs.
type Store interface {
	SetVerificationCode(ctx context.Context, sessionID int64, code string) error
	VerifySession(ctx context.Context, code string, userID int64) (*database.ChatSession, error)
}

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Deps provides dependencies for the Gate.
type Deps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  Store
	Sender Sender
}

// Gate keeps unverified chats out of the conversation.
type Gate struct {
	deps Deps
	log  *slog.Logger
}

// NewGate creates a Gate.
func NewGate(deps Deps) *Gate {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Gate{deps: deps, log: log.With("component", "verification")}
}

// Admit returns nil for verified sessions. For any other session it issues a
// new code, stores it, sends it to the chat and returns an Unauthorized error.
func (g *Gate) Admit(ctx context.Context, session *database.ChatSession) error {
	if session.Verified {
		return nil
	}

	code, err := NewCode(g.deps.Config.Bot.VerificationCodeLength)
	if err != nil {
		return err
	}
	err = g.deps.Store.SetVerificationCode(ctx, session.ID, code)
	if errors.Is(err, errs.ErrNotFound) {
		// Verified out of band since the session was loaded. Completion
		// already told the chat; this message is dropped without a new code.
		g.log.InfoContext(ctx, "Chat verified while its message was in flight", "chat_id", session.ChatID)
		return errs.NewUnauthorizedError(fmt.Sprintf("chat %d was verified concurrently", session.ChatID))
	}
	if err != nil {
		return fmt.Errorf("failed to store verification code for chat %d: %w", session.ChatID, err)
	}
	session.VerificationCode = code

	text := fmt.Sprintf(g.deps.Config.Messages.VerificationCode, code)
	if err := g.deps.Sender.SendMessage(ctx, session.ChatID, text); err != nil {
		g.log.ErrorContext(ctx, "Failed to send verification code", "chat_id", session.ChatID, "error", err)
	} else {
		g.log.InfoContext(ctx, "Verification code issued", "chat_id", session.ChatID)
	}

	return errs.NewUnauthorizedError(fmt.Sprintf("chat %d is not verified", session.ChatID))
}

// Complete redeems code for userID and tells the chat it is now linked.
// A failed notification is logged; the verification itself stands.
func (g *Gate) Complete(ctx context.Context, userID int64, code string) (*database.ChatSession, error) {
	session, err := g.deps.Store.VerifySession(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	if g.deps.Sender != nil {
		if err := g.deps.Sender.SendMessage(ctx, session.ChatID, g.deps.Config.Messages.VerificationCompleted); err != nil {
			g.log.WarnContext(ctx, "Failed to notify chat about verification", "chat_id", session.ChatID, "error", err)
		}
	}
	return session, nil
}
