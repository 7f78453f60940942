package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
)

// SessionRepository stores bearer tokens issued at sign-in.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Issue creates a session for userID valid for ttl.
func (r *SessionRepository) Issue(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		Token:     shared.GenerateID(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := r.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return conflict(err, "session for %s", session.UserID)
	}
	return nil
}

// Get returns a live session. Expired sessions are removed and reported as [shared.ErrTokenExpired].
func (r *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`

	var session models.Session
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if session.Expired(time.Now()) {
		if err := r.Delete(ctx, token); err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
			return nil, err
		}
		return nil, shared.ErrTokenExpired
	}

	return &session, nil
}

// Delete revokes a session.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return affected(result, shared.ErrSessionNotFound, "token")
}

// Purge removes every session that expired before now and returns how many were removed.
func (r *SessionRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
