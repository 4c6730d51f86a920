package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/goalbot/internal/errs"
)

const sessionColumns = `id, created_at, updated_at, chat_id, username, user_id, verified,
        verification_code, state, pending_category_id`

func (s *sqlxStore) GetOrCreateSession(ctx context.Context, chatID int64, username string) (*ChatSession, bool, error) {
	var (
		session ChatSession
		created bool
	)
	err := s.withTx(ctx, "get_or_create_session", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM chat_sessions WHERE chat_id = ?;`, chatID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load chat session %d: %w", chatID, err)
		}

		now := s.now()
		session = ChatSession{
			CreatedAt: now,
			UpdatedAt: now,
			ChatID:    chatID,
			Username:  username,
			State:     StateIdle,
		}
		res, err := tx.NamedExecContext(ctx, `
            INSERT INTO chat_sessions (chat_id, username, verified, verification_code, state, created_at, updated_at)
            VALUES (:chat_id, :username, :verified, :verification_code, :state, :created_at, :updated_at);
        `, &session)
		if err != nil {
			return fmt.Errorf("failed to create chat session %d: %w", chatID, err)
		}
		if session.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read chat session id: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get or create chat session", "chat_id", chatID, "error", err)
		return nil, false, err
	}

	if created {
		s.logger.InfoContext(ctx, "Chat session created", "chat_id", chatID, "session_id", session.ID)
	}
	return &session, created, nil
}

func (s *sqlxStore) GetSession(ctx context.Context, chatID int64) (*ChatSession, error) {
	var session ChatSession
	err := s.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM chat_sessions WHERE chat_id = ?;`, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errs.NewNotFoundError(fmt.Sprintf("chat session %d not found", chatID))
	case err != nil:
		return nil, fmt.Errorf("failed to load chat session %d: %w", chatID, err)
	}
	return &session, nil
}

func (s *sqlxStore) SetVerificationCode(ctx context.Context, sessionID int64, code string) error {
	if code == "" {
		return errs.NewValidationError("verification code must not be empty", nil)
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE chat_sessions SET verification_code = ?, updated_at = ?
        WHERE id = ? AND verified = 0;
    `, code, s.now(), sessionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store verification code", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.NewNotFoundError(fmt.Sprintf("unverified chat session %d not found", sessionID))
	}
	return nil
}

func (s *sqlxStore) SaveSessionState(ctx context.Context, sessionID int64, state ConversationState, pending sql.NullInt64) error {
	if !state.Valid() {
		return errs.NewValidationError(fmt.Sprintf("unknown conversation state %q", state), nil)
	}
	if pending.Valid != (state == StateAwaitingGoalTitle) {
		return errs.NewValidationError(
			fmt.Sprintf("pending category must be set exactly in state %q", StateAwaitingGoalTitle), nil)
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE chat_sessions SET state = ?, pending_category_id = ?, updated_at = ?
        WHERE id = ? AND (verified = 1 OR ? = 'idle');
    `, state, pending, s.now(), sessionID, state)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save session state", "session_id", sessionID, "state", state, "error", err)
		return fmt.Errorf("failed to save session state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.NewUnauthorizedError(fmt.Sprintf("chat session %d is missing or not verified", sessionID))
	}

	s.logger.DebugContext(ctx, "Session state saved", "session_id", sessionID, "state", state)
	return nil
}

func (s *sqlxStore) VerifySession(ctx context.Context, code string, userID int64) (*ChatSession, error) {
	if code == "" {
		return nil, errs.NewValidationError("verification code must not be empty", nil)
	}

	var session ChatSession
	err := s.withTx(ctx, "verify_session", func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?);`, userID); err != nil {
			return fmt.Errorf("failed to look up user %d: %w", userID, err)
		}
		if !exists {
			return errs.NewNotFoundError(fmt.Sprintf("user %d not found", userID))
		}

		err := tx.GetContext(ctx, &session, `SELECT `+sessionColumns+`
            FROM chat_sessions WHERE verification_code = ? AND verified = 0
            ORDER BY id LIMIT 1;`, code)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return errs.NewNotFoundError("verification code not found")
		case err != nil:
			return fmt.Errorf("failed to look up verification code: %w", err)
		}

		session.UserID = sql.NullInt64{Int64: userID, Valid: true}
		session.Verified = true
		session.VerificationCode = ""
		session.UpdatedAt = s.now()
		if _, err := tx.NamedExecContext(ctx, `
            UPDATE chat_sessions
            SET user_id = :user_id, verified = :verified, verification_code = :verification_code, updated_at = :updated_at
            WHERE id = :id;
        `, &session); err != nil {
			return fmt.Errorf("failed to mark session verified: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Chat session verified", "chat_id", session.ChatID, "user_id", userID)
	return &session, nil
}
