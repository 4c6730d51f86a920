package conversation

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/database"
)

// Store is the part of database.Store the dialog reads and writes.
type Store interface {
	SaveSessionState(ctx context.Context, sessionID int64, state database.ConversationState, pending sql.NullInt64) error
	ListVisibleCategories(ctx context.Context, userID int64) ([]database.Category, error)
	FindVisibleCategory(ctx context.Context, userID int64, title string) (*database.Category, error)
	ListVisibleGoals(ctx context.Context, userID int64) ([]database.Goal, error)
	CreateGoal(ctx context.Context, userID, categoryID int64, title string) (*database.Goal, error)
}

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Deps provides dependencies for the command handlers and dialog steps.
type Deps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  Store
	Sender Sender
}
