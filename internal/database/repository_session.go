package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreateSession stores a refresh token session
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, s.UserID, s.RefreshTokenHash, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSessionByTokenHash retrieves a live session by its token hash
func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, expires_at, created_at
		FROM user_sessions
		WHERE refresh_token_hash = $1 AND expires_at > NOW()
	`

	s := &Session{}
	err := r.db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session by token hash (logout)
func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM user_sessions WHERE refresh_token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes all of a user's sessions
func (r *Repository) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry
func (r *Repository) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM user_sessions WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
