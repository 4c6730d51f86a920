package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/edgard/goalbot/internal/access"
	"github.com/edgard/goalbot/internal/logger"
)

// Store defines the interface for database operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// GetOrCreateSession returns the session of chatID, creating it on first
	// contact. The bool reports whether it was created.
	GetOrCreateSession(ctx context.Context, chatID int64, username string) (*ChatSession, bool, error)

	// GetSession returns the session of chatID or a NotFound error.
	GetSession(ctx context.Context, chatID int64) (*ChatSession, error)

	// SetVerificationCode replaces the pending verification code of a session.
	SetVerificationCode(ctx context.Context, sessionID int64, code string) error

	// SaveSessionState persists the dialog state. pending must be valid only
	// together with StateAwaitingGoalTitle.
	SaveSessionState(ctx context.Context, sessionID int64, state ConversationState, pending sql.NullInt64) error

	// VerifySession links the unverified session holding code to userID.
	VerifySession(ctx context.Context, code string, userID int64) (*ChatSession, error)

	// ListVisibleCategories returns non-deleted categories of the user's boards.
	ListVisibleCategories(ctx context.Context, userID int64) ([]Category, error)

	// FindVisibleCategory returns the first visible category titled exactly title.
	FindVisibleCategory(ctx context.Context, userID int64, title string) (*Category, error)

	// ListVisibleGoals returns non-archived goals of the user's boards.
	ListVisibleGoals(ctx context.Context, userID int64) ([]Goal, error)

	// CreateGoal adds a goal to a visible category. userID must be owner or
	// writer of its board, otherwise a Forbidden error is returned.
	CreateGoal(ctx context.Context, userID, categoryID int64, title string) (*Goal, error)

	CreateUser(ctx context.Context, username string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateBoard creates a board with userID as its owner in one transaction.
	CreateBoard(ctx context.Context, userID int64, title string) (*Board, error)
	ListBoards(ctx context.Context, userID int64) ([]UserBoard, error)
	ListParticipants(ctx context.Context, userID, boardID int64) ([]BoardParticipant, error)
	// ShareBoard replaces the non-owner participants of a board.
	ShareBoard(ctx context.Context, actorID, boardID int64, participants []Participant) error
	// DeleteBoard soft-deletes a board with its categories and archives their goals.
	DeleteBoard(ctx context.Context, actorID, boardID int64) error

	CreateCategory(ctx context.Context, actorID, boardID int64, title string) (*Category, error)
	// DeleteCategory soft-deletes a category and archives its goals.
	DeleteCategory(ctx context.Context, actorID, categoryID int64) error

	// IsUpdateProcessed reports whether an inbound update was already handled.
	IsUpdateProcessed(ctx context.Context, updateID int64) (bool, error)
	MarkUpdateProcessed(ctx context.Context, updateID, chatID int64) error
	// LastProcessedUpdateID returns the highest recorded update id. The bool
	// is false when nothing was recorded yet.
	LastProcessedUpdateID(ctx context.Context) (int64, bool, error)
	// PruneProcessedUpdates removes ledger rows processed before cutoff.
	PruneProcessedUpdates(ctx context.Context, cutoff time.Time) (int64, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance executes VACUUM followed by PRAGMA optimize.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

// withTx runs fn inside a transaction and commits when it returns nil.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// roleOn returns the role of userID on a non-deleted board.
func roleOn(ctx context.Context, q sqlx.QueryerContext, userID, boardID int64) (access.Role, error) {
	var role access.Role
	err := sqlx.GetContext(ctx, q, &role, `
        SELECT p.role
        FROM board_participants p
        JOIN boards b ON b.id = p.board_id
        WHERE p.board_id = ? AND p.user_id = ? AND b.is_deleted = 0;
    `, boardID, userID)
	if err != nil {
		return 0, err
	}
	return role, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func validTitle(title string) bool {
	n := len([]rune(title))
	return n > 0 && n <= MaxTitleLength
}
