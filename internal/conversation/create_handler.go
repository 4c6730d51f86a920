package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/errs"
)

// NewCreateHandler returns a handler for the /create command, the first
// step of goal creation.
func NewCreateHandler(m *Machine) HandlerFunc {
	return createHandler{m}.Handle
}

type createHandler struct {
	m *Machine
}

func (h createHandler) Handle(ctx context.Context, session *database.ChatSession, _ string) error {
	categories, err := h.m.deps.Store.ListVisibleCategories(ctx, session.UserID.Int64)
	if err != nil {
		return fmt.Errorf("failed to list categories for chat %d: %w", session.ChatID, err)
	}

	msgs := h.m.deps.Config.Messages
	if len(categories) == 0 {
		return h.m.reply(ctx, session.ChatID, msgs.NoCategories)
	}

	var b strings.Builder
	b.WriteString(msgs.ChooseCategory)
	for _, c := range categories {
		b.WriteString("\n")
		b.WriteString(c.Title)
	}
	return h.m.transition(ctx, session, database.StateAwaitingCategoryChoice, sql.NullInt64{}, b.String())
}

// handleCategoryChoice matches text exactly against the visible categories.
func (m *Machine) handleCategoryChoice(ctx context.Context, session *database.ChatSession, text string) error {
	msgs := m.deps.Config.Messages

	category, err := m.deps.Store.FindVisibleCategory(ctx, session.UserID.Int64, text)
	if errors.Is(err, errs.ErrNotFound) {
		return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, msgs.CategoryNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to find category for chat %d: %w", session.ChatID, err)
	}

	pending := sql.NullInt64{Int64: category.ID, Valid: true}
	return m.transition(ctx, session, database.StateAwaitingGoalTitle, pending, msgs.EnterGoalTitle)
}

// handleGoalTitle creates the goal in the pending category. Empty or
// over-long titles are rejected without leaving the step.
func (m *Machine) handleGoalTitle(ctx context.Context, session *database.ChatSession, text string) error {
	msgs := m.deps.Config.Messages

	if !session.PendingCategoryID.Valid {
		m.log.WarnContext(ctx, "Awaiting goal title without a pending category", "chat_id", session.ChatID)
		return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, msgs.CategoryNotFound)
	}

	// The text is stored as sent; blank input only counts as empty.
	switch {
	case strings.TrimSpace(text) == "":
		return m.reply(ctx, session.ChatID, msgs.GoalTitleEmpty)
	case utf8.RuneCountInString(text) > database.MaxTitleLength:
		return m.reply(ctx, session.ChatID, fmt.Sprintf(msgs.GoalTitleTooLong, database.MaxTitleLength))
	}

	goal, err := m.deps.Store.CreateGoal(ctx, session.UserID.Int64, session.PendingCategoryID.Int64, text)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, msgs.CategoryNotFound)
	case errors.Is(err, errs.ErrForbidden):
		m.log.InfoContext(ctx, "Goal creation refused by board role", "chat_id", session.ChatID,
			"category_id", session.PendingCategoryID.Int64)
		return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, msgs.GoalForbidden)
	}
	if err != nil {
		return fmt.Errorf("failed to create goal for chat %d: %w", session.ChatID, err)
	}

	m.log.InfoContext(ctx, "Goal created from chat", "chat_id", session.ChatID, "goal_id", goal.ID)
	return m.transition(ctx, session, database.StateIdle, sql.NullInt64{}, fmt.Sprintf(msgs.GoalCreated, goal.ID, goal.Title))
}
