// Package conversation implements the per-chat dialog of verified sessions:
// listing goals, and the three-step goal creation
// idle -> awaiting category -> awaiting goal title -> idle.
package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/logger"
)

// HandlerFunc handles one inbound text for a session. Handlers persist the
// next state before they reply.
type HandlerFunc func(ctx context.Context, session *database.ChatSession, text string) error

// Machine routes texts by the session's conversation state.
type Machine struct {
	deps     Deps
	log      *slog.Logger
	commands map[string]Command
	steps    map[database.ConversationState]HandlerFunc
}

// NewMachine wires the command registry and the dialog steps.
func NewMachine(deps Deps) *Machine {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	m := &Machine{
		deps: deps,
		log:  deps.Logger.With("component", "conversation"),
	}
	m.commands = RegisterAllCommands(deps, m)
	m.steps = map[database.ConversationState]HandlerFunc{
		database.StateIdle:                   m.handleIdle,
		database.StateAwaitingCategoryChoice: m.handleCategoryChoice,
		database.StateAwaitingGoalTitle:      m.handleGoalTitle,
	}
	return m
}

// Commands returns the registered commands for menu registration.
func (m *Machine) Commands() []Command {
	cmds := make([]Command, 0, len(m.commands))
	for _, name := range commandOrder {
		if cmd, ok := m.commands[name]; ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Handle processes text for a verified session and updates session in place.
func (m *Machine) Handle(ctx context.Context, session *database.ChatSession, text string) error {
	if !session.UserID.Valid {
		return fmt.Errorf("chat %d has no linked user", session.ChatID)
	}

	step, ok := m.steps[session.State]
	if !ok {
		m.log.WarnContext(ctx, "Session in unknown state, resetting", "chat_id", session.ChatID, "state", session.State)
		return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, m.deps.Config.Messages.UnknownCommand)
	}
	return step(ctx, session, text)
}

func (m *Machine) handleIdle(ctx context.Context, session *database.ChatSession, text string) error {
	name, ok := m.parseCommand(text)
	if ok {
		if cmd, found := m.commands[name]; found {
			m.log.InfoContext(ctx, "Handling command", "command", name, "chat_id", session.ChatID)
			return cmd.Handler(ctx, session, text)
		}
	}
	m.log.DebugContext(ctx, "Unrecognized input", "chat_id", session.ChatID, "text", logger.TruncateString(text, 64))
	return m.reply(ctx, session.ChatID, m.deps.Config.Messages.UnknownCommand)
}

// parseCommand accepts "/name" and "/name@thisbot", with surrounding
// whitespace, and nothing else.
func (m *Machine) parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || strings.ContainsAny(text, " \t\n") {
		return "", false
	}

	name, mention, hasMention := strings.Cut(text, "@")
	if hasMention {
		botName := m.deps.Config.Telegram.BotUsername
		if botName != "" && !strings.EqualFold(mention, botName) {
			return "", false
		}
	}
	return name, true
}

// transition persists the next state, then sends reply.
func (m *Machine) transition(
	ctx context.Context,
	session *database.ChatSession,
	next database.ConversationState,
	pending sql.NullInt64,
	reply string,
) error {
	if err := m.deps.Store.SaveSessionState(ctx, session.ID, next, pending); err != nil {
		return fmt.Errorf("failed to move chat %d to %s: %w", session.ChatID, next, err)
	}
	if session.State != next {
		m.log.DebugContext(ctx, "Conversation state changed", "chat_id", session.ChatID, "from", session.State, "to", next)
	}
	session.State = next
	session.PendingCategoryID = pending
	return m.reply(ctx, session.ChatID, reply)
}

// reply sends text. Delivery failures are logged and not returned: the
// state change they report is already stored.
func (m *Machine) reply(ctx context.Context, chatID int64, text string) error {
	if err := m.deps.Sender.SendMessage(ctx, chatID, text); err != nil {
		m.log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
	}
	return nil
}
