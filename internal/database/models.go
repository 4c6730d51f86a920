package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/edgard/goalbot/internal/access"
)

// ConversationState is the dialog step a chat session is in.
type ConversationState string

const (
	StateIdle                   ConversationState = "idle"
	StateAwaitingCategoryChoice ConversationState = "awaiting_category"
	StateAwaitingGoalTitle      ConversationState = "awaiting_goal_title"
)

// Valid reports whether s is one of the known states.
func (s ConversationState) Valid() bool {
	switch s {
	case StateIdle, StateAwaitingCategoryChoice, StateAwaitingGoalTitle:
		return true
	}
	return false
}

// GoalStatus is the lifecycle status of a goal.
type GoalStatus int

const (
	GoalStatusToDo       GoalStatus = 1
	GoalStatusInProgress GoalStatus = 2
	GoalStatusDone       GoalStatus = 3
	GoalStatusArchived   GoalStatus = 4
)

func (s GoalStatus) String() string {
	switch s {
	case GoalStatusToDo:
		return "to_do"
	case GoalStatusInProgress:
		return "in_progress"
	case GoalStatusDone:
		return "done"
	case GoalStatusArchived:
		return "archived"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// GoalPriority ranks goals from low to critical.
type GoalPriority int

const (
	GoalPriorityLow      GoalPriority = 1
	GoalPriorityMedium   GoalPriority = 2
	GoalPriorityHigh     GoalPriority = 3
	GoalPriorityCritical GoalPriority = 4
)

func (p GoalPriority) String() string {
	switch p {
	case GoalPriorityLow:
		return "low"
	case GoalPriorityMedium:
		return "medium"
	case GoalPriorityHigh:
		return "high"
	case GoalPriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MaxTitleLength bounds board, category and goal titles (in characters).
const MaxTitleLength = 255

// ChatSession links one external chat to an account and holds its dialog state.
// PendingCategoryID is set only while State is StateAwaitingGoalTitle.
type ChatSession struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID            int64             `db:"chat_id"`
	Username          string            `db:"username"`
	UserID            sql.NullInt64     `db:"user_id"`
	Verified          bool              `db:"verified"`
	VerificationCode  string            `db:"verification_code"`
	State             ConversationState `db:"state"`
	PendingCategoryID sql.NullInt64     `db:"pending_category_id"`
}

// User is an account that chats and board participants refer to.
type User struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Username  string    `db:"username"`
}

// Board is a shared workspace of categories and goals.
type Board struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Title     string `db:"title"`
	IsDeleted bool   `db:"is_deleted"`
}

// BoardParticipant grants a user a role on a board.
type BoardParticipant struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	BoardID  int64       `db:"board_id"`
	UserID   int64       `db:"user_id"`
	Username string      `db:"username"` // joined from users, read-only
	Role     access.Role `db:"role"`
}

// Participant is a user/role pair used when sharing a board.
type Participant struct {
	UserID int64
	Role   access.Role
}

// Category groups goals inside a board.
type Category struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	BoardID   int64  `db:"board_id"`
	UserID    int64  `db:"user_id"`
	Title     string `db:"title"`
	IsDeleted bool   `db:"is_deleted"`
}

// Goal is a trackable objective inside one category.
type Goal struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	CategoryID  int64        `db:"category_id"`
	UserID      int64        `db:"user_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	DueDate     sql.NullTime `db:"due_date"`
	Status      GoalStatus   `db:"status"`
	Priority    GoalPriority `db:"priority"`
}

// UserBoard is a board as seen by one participant.
type UserBoard struct {
	Board
	Role access.Role `db:"role"`
}
