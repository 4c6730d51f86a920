package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/goalbot/internal/database"
)

// NewGoalsHandler returns a handler for the /goals command.
func NewGoalsHandler(m *Machine) HandlerFunc {
	return goalsHandler{m}.Handle
}

// goalsHandler lists the non-archived goals of every board the user is on.
type goalsHandler struct {
	m *Machine
}

func (h goalsHandler) Handle(ctx context.Context, session *database.ChatSession, _ string) error {
	goals, err := h.m.deps.Store.ListVisibleGoals(ctx, session.UserID.Int64)
	if err != nil {
		return fmt.Errorf("failed to list goals for chat %d: %w", session.ChatID, err)
	}

	msgs := h.m.deps.Config.Messages
	if len(goals) == 0 {
		return h.m.reply(ctx, session.ChatID, msgs.NoGoals)
	}

	var b strings.Builder
	b.WriteString(msgs.GoalsHeader)
	for _, g := range goals {
		b.WriteString("\n- ")
		b.WriteString(g.Title)
	}
	return h.m.reply(ctx, session.ChatID, b.String())
}
