package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/goalbot/internal/access"
	"github.com/edgard/goalbot/internal/errs"
)

func (s *sqlxStore) CreateUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, errs.NewValidationError("username must not be empty", nil)
	}

	user := User{CreatedAt: s.now(), Username: username}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO users (username, created_at) VALUES (:username, :created_at);`, &user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.NewValidationError(fmt.Sprintf("username %q already exists", username), err)
		}
		s.logger.ErrorContext(ctx, "Failed to create user", "username", username, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	s.logger.InfoContext(ctx, "User created", "user_id", user.ID, "username", username)
	return &user, nil
}

func (s *sqlxStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT id, created_at, username FROM users WHERE username = ?;`, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errs.NewNotFoundError(fmt.Sprintf("user %q not found", username))
	case err != nil:
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	return &user, nil
}

func (s *sqlxStore) CreateBoard(ctx context.Context, userID int64, title string) (*Board, error) {
	if !validTitle(title) {
		return nil, errs.NewValidationError(
			fmt.Sprintf("board title must be 1 to %d characters", MaxTitleLength), nil)
	}

	now := s.now()
	board := Board{CreatedAt: now, UpdatedAt: now, Title: title}

	err := s.withTx(ctx, "create_board", func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
            INSERT INTO boards (title, is_deleted, created_at, updated_at)
            VALUES (:title, :is_deleted, :created_at, :updated_at);
        `, &board)
		if err != nil {
			return fmt.Errorf("failed to insert board: %w", err)
		}
		if board.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read board id: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO board_participants (board_id, user_id, role, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?);
        `, board.ID, userID, access.RoleOwner, now, now)
		if err != nil {
			return fmt.Errorf("failed to add board owner: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create board", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Board created", "board_id", board.ID, "owner_id", userID)
	return &board, nil
}

func (s *sqlxStore) ListBoards(ctx context.Context, userID int64) ([]UserBoard, error) {
	var boards []UserBoard
	err := s.db.SelectContext(ctx, &boards, `
        SELECT b.id, b.created_at, b.updated_at, b.title, b.is_deleted, p.role
        FROM boards b
        JOIN board_participants p ON p.board_id = b.id AND p.user_id = ?
        WHERE b.is_deleted = 0
        ORDER BY b.title, b.id;
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards for user %d: %w", userID, err)
	}
	return boards, nil
}

func (s *sqlxStore) ListParticipants(ctx context.Context, userID, boardID int64) ([]BoardParticipant, error) {
	role, err := s.boardRole(ctx, s.db, userID, boardID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(role) {
		return nil, errs.NewForbiddenError(fmt.Sprintf("role %s cannot read board %d", role, boardID))
	}

	var participants []BoardParticipant
	err = s.db.SelectContext(ctx, &participants, `
        SELECT p.id, p.created_at, p.updated_at, p.board_id, p.user_id, u.username, p.role
        FROM board_participants p
        JOIN users u ON u.id = p.user_id
        WHERE p.board_id = ?
        ORDER BY p.role, u.username;
    `, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of board %d: %w", boardID, err)
	}
	return participants, nil
}

// ShareBoard drops every non-owner participant and adds the given ones.
// Only the owner may share, and only editable roles can be granted.
func (s *sqlxStore) ShareBoard(ctx context.Context, actorID, boardID int64, participants []Participant) error {
	for _, p := range participants {
		if !p.Role.Editable() {
			return errs.NewValidationError(fmt.Sprintf("role %s cannot be granted", p.Role), nil)
		}
		if p.UserID == actorID {
			return errs.NewValidationError("the board owner cannot change their own role", nil)
		}
	}

	err := s.withTx(ctx, "share_board", func(tx *sqlx.Tx) error {
		role, err := s.boardRole(ctx, tx, actorID, boardID)
		if err != nil {
			return err
		}
		if !access.CanManageBoard(role) {
			return errs.NewForbiddenError(fmt.Sprintf("only the owner can share board %d", boardID))
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM board_participants WHERE board_id = ? AND role != ?;`, boardID, access.RoleOwner); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}

		now := s.now()
		for _, p := range participants {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?);`, p.UserID); err != nil {
				return fmt.Errorf("failed to look up user %d: %w", p.UserID, err)
			}
			if !exists {
				return errs.NewNotFoundError(fmt.Sprintf("user %d not found", p.UserID))
			}

			res, err := tx.ExecContext(ctx, `
                INSERT INTO board_participants (board_id, user_id, role, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?)
                ON CONFLICT (board_id, user_id) DO NOTHING;
            `, boardID, p.UserID, p.Role, now, now)
			if err != nil {
				return fmt.Errorf("failed to add participant %d: %w", p.UserID, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return errs.NewValidationError(fmt.Sprintf("user %d is already an owner of board %d", p.UserID, boardID), nil)
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE boards SET updated_at = ? WHERE id = ?;`, now, boardID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Board shared", "board_id", boardID, "participants", len(participants))
	return nil
}

func (s *sqlxStore) DeleteBoard(ctx context.Context, actorID, boardID int64) error {
	err := s.withTx(ctx, "delete_board", func(tx *sqlx.Tx) error {
		role, err := s.boardRole(ctx, tx, actorID, boardID)
		if err != nil {
			return err
		}
		if !access.CanManageBoard(role) {
			return errs.NewForbiddenError(fmt.Sprintf("only the owner can delete board %d", boardID))
		}

		now := s.now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE boards SET is_deleted = 1, updated_at = ? WHERE id = ?;`, now, boardID); err != nil {
			return fmt.Errorf("failed to delete board: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE goals SET status = ?, updated_at = ?
            WHERE category_id IN (SELECT id FROM categories WHERE board_id = ?);
        `, GoalStatusArchived, now, boardID); err != nil {
			return fmt.Errorf("failed to archive board goals: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET is_deleted = 1, updated_at = ? WHERE board_id = ?;`, now, boardID); err != nil {
			return fmt.Errorf("failed to delete board categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Board deleted", "board_id", boardID, "user_id", actorID)
	return nil
}

func (s *sqlxStore) CreateCategory(ctx context.Context, actorID, boardID int64, title string) (*Category, error) {
	if !validTitle(title) {
		return nil, errs.NewValidationError(
			fmt.Sprintf("category title must be 1 to %d characters", MaxTitleLength), nil)
	}

	now := s.now()
	category := Category{CreatedAt: now, UpdatedAt: now, BoardID: boardID, UserID: actorID, Title: title}

	err := s.withTx(ctx, "create_category", func(tx *sqlx.Tx) error {
		role, err := s.boardRole(ctx, tx, actorID, boardID)
		if err != nil {
			return err
		}
		if !access.CanEditContent(role) {
			return errs.NewForbiddenError(fmt.Sprintf("role %s cannot add categories to board %d", role, boardID))
		}

		res, err := tx.NamedExecContext(ctx, `
            INSERT INTO categories (board_id, user_id, title, is_deleted, created_at, updated_at)
            VALUES (:board_id, :user_id, :title, :is_deleted, :created_at, :updated_at);
        `, &category)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		category.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Category created", "category_id", category.ID, "board_id", boardID)
	return &category, nil
}

func (s *sqlxStore) DeleteCategory(ctx context.Context, actorID, categoryID int64) error {
	err := s.withTx(ctx, "delete_category", func(tx *sqlx.Tx) error {
		var boardID int64
		err := tx.GetContext(ctx, &boardID,
			`SELECT board_id FROM categories WHERE id = ? AND is_deleted = 0;`, categoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return errs.NewNotFoundError(fmt.Sprintf("category %d not found", categoryID))
		case err != nil:
			return fmt.Errorf("failed to load category %d: %w", categoryID, err)
		}

		role, err := s.boardRole(ctx, tx, actorID, boardID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.NewNotFoundError(fmt.Sprintf("category %d not found", categoryID))
			}
			return err
		}
		if !access.CanEditContent(role) {
			return errs.NewForbiddenError(fmt.Sprintf("role %s cannot delete categories", role))
		}

		now := s.now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET status = ?, updated_at = ? WHERE category_id = ?;`,
			GoalStatusArchived, now, categoryID); err != nil {
			return fmt.Errorf("failed to archive category goals: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET is_deleted = 1, updated_at = ? WHERE id = ?;`, now, categoryID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Category deleted", "category_id", categoryID, "user_id", actorID)
	return nil
}

// boardRole maps a missing participation to NotFound so boards outside the
// user's scope look the same as boards that do not exist.
func (s *sqlxStore) boardRole(ctx context.Context, q sqlx.QueryerContext, userID, boardID int64) (access.Role, error) {
	role, err := roleOn(ctx, q, userID, boardID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, errs.NewNotFoundError(fmt.Sprintf("board %d not found", boardID))
	case err != nil:
		return 0, fmt.Errorf("failed to load role on board %d: %w", boardID, err)
	}
	return role, nil
}
