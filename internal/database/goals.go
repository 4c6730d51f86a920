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

// A category or goal is visible to a user when its board is not deleted and
// the user participates in it with any role.
const visibleCategories = `
        FROM categories c
        JOIN boards b ON b.id = c.board_id AND b.is_deleted = 0
        JOIN board_participants p ON p.board_id = b.id AND p.user_id = ?
        WHERE c.is_deleted = 0`

const categoryColumns = `c.id, c.created_at, c.updated_at, c.board_id, c.user_id, c.title, c.is_deleted`

func (s *sqlxStore) ListVisibleCategories(ctx context.Context, userID int64) ([]Category, error) {
	var categories []Category
	err := s.db.SelectContext(ctx, &categories,
		`SELECT `+categoryColumns+visibleCategories+` ORDER BY c.id;`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list categories", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list categories for user %d: %w", userID, err)
	}
	return categories, nil
}

// FindVisibleCategory matches title exactly and case-sensitively. When
// several categories share the title the oldest wins.
func (s *sqlxStore) FindVisibleCategory(ctx context.Context, userID int64, title string) (*Category, error) {
	var category Category
	err := s.db.GetContext(ctx, &category,
		`SELECT `+categoryColumns+visibleCategories+` AND c.title = ? ORDER BY c.id LIMIT 1;`, userID, title)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errs.NewNotFoundError(fmt.Sprintf("category %q not found", title))
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to find category", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to find category for user %d: %w", userID, err)
	}
	return &category, nil
}

func (s *sqlxStore) ListVisibleGoals(ctx context.Context, userID int64) ([]Goal, error) {
	var goals []Goal
	err := s.db.SelectContext(ctx, &goals, `
        SELECT g.id, g.created_at, g.updated_at, g.category_id, g.user_id, g.title, g.description,
               g.due_date, g.status, g.priority
        FROM goals g
        JOIN categories c ON c.id = g.category_id AND c.is_deleted = 0
        JOIN boards b ON b.id = c.board_id AND b.is_deleted = 0
        JOIN board_participants p ON p.board_id = b.id AND p.user_id = ?
        WHERE g.status != ?
        ORDER BY g.title, g.id;
    `, userID, GoalStatusArchived)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list goals", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list goals for user %d: %w", userID, err)
	}
	return goals, nil
}

// CreateGoal requires an owner or writer role on the category's board.
func (s *sqlxStore) CreateGoal(ctx context.Context, userID, categoryID int64, title string) (*Goal, error) {
	if !validTitle(title) {
		return nil, errs.NewValidationError(
			fmt.Sprintf("goal title must be 1 to %d characters", MaxTitleLength), nil)
	}

	now := s.now()
	goal := Goal{
		CreatedAt:  now,
		UpdatedAt:  now,
		CategoryID: categoryID,
		UserID:     userID,
		Title:      title,
		Status:     GoalStatusToDo,
		Priority:   GoalPriorityMedium,
	}

	err := s.withTx(ctx, "create_goal", func(tx *sqlx.Tx) error {
		var boardID int64
		err := tx.GetContext(ctx, &boardID, `SELECT c.board_id`+visibleCategories+` AND c.id = ?;`, userID, categoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return errs.NewNotFoundError(fmt.Sprintf("category %d not found", categoryID))
		case err != nil:
			return fmt.Errorf("failed to check category %d: %w", categoryID, err)
		}

		role, err := s.boardRole(ctx, tx, userID, boardID)
		if err != nil {
			return err
		}
		if !access.CanEditContent(role) {
			return errs.NewForbiddenError(fmt.Sprintf("role %s cannot add goals to board %d", role, boardID))
		}

		res, err := tx.NamedExecContext(ctx, `
            INSERT INTO goals (category_id, user_id, title, description, due_date, status, priority, created_at, updated_at)
            VALUES (:category_id, :user_id, :title, :description, :due_date, :status, :priority, :created_at, :updated_at);
        `, &goal)
		if err != nil {
			return fmt.Errorf("failed to insert goal: %w", err)
		}
		goal.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) && !errors.Is(err, errs.ErrForbidden) {
			s.logger.ErrorContext(ctx, "Failed to create goal", "user_id", userID, "category_id", categoryID, "error", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Goal created", "goal_id", goal.ID, "category_id", categoryID, "user_id", userID)
	return &goal, nil
}
