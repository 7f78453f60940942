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

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, sequence, user_id, password_hash, nickname, profile_image, created_at, updated_at, deleted_at`

// Create inserts a new user into the database with generated ID and sequence.
// A taken user id fails with [shared.ErrAlreadyExists].
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO users (id, sequence, user_id, password_hash, nickname, profile_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id, sequence, user.UserID, user.PasswordHash, user.Nickname, user.ProfileImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return conflict(err, "user %s", user.UserID)
	}

	user.ID = id
	user.Sequence = sequence
	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByUserID retrieves a user by their public handle.
func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID), userID)
}

// Update modifies the editable profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()

	query := `
		UPDATE users
		SET nickname = ?, profile_image = ?, updated_at = ?
		WHERE user_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, user.Nickname, user.ProfileImage, now, user.UserID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := affected(result, shared.ErrUserNotFound, user.UserID); err != nil {
		return err
	}

	user.UpdatedAt = now
	return nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(result, shared.ErrUserNotFound, id)
}

// Follow records that follower follows followee. Following twice is not an error.
func (r *UserRepository) Follow(ctx context.Context, follower, followee string) error {
	if follower == followee {
		return fmt.Errorf("%w: users cannot follow themselves", shared.ErrInvalidInput)
	}
	if _, err := r.GetByUserID(ctx, followee); err != nil {
		return err
	}

	query := `INSERT OR IGNORE INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, follower, followee, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

// Unfollow removes a follow edge. Removing a missing edge is not an error.
func (r *UserRepository) Unfollow(ctx context.Context, follower, followee string) error {
	query := `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`
	if _, err := r.db.ExecContext(ctx, query, follower, followee); err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	return nil
}

// Profile builds the public view of a user, including follow and playlist counts.
// Only playlists visible to viewer are counted.
func (r *UserRepository) Profile(ctx context.Context, userID, viewer string) (*models.Profile, error) {
	user, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE followee_id = ?),
			(SELECT COUNT(*) FROM follows WHERE follower_id = ?),
			(SELECT COUNT(*) FROM playlists
				WHERE user_id = ? AND deleted_at IS NULL AND (public = 1 OR user_id = ?))
	`

	profile := &models.Profile{
		UserID:       user.UserID,
		Nickname:     user.Nickname,
		ProfileImage: user.ProfileImage,
	}
	err = r.db.QueryRowContext(ctx, query, userID, userID, userID, viewer).
		Scan(&profile.Followers, &profile.Following, &profile.Playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to count profile relations: %w", err)
	}

	return profile, nil
}

// ListFollowing returns one page of the users userID follows, most recently followed first,
// together with the total. Playlist counts include public playlists only.
func (r *UserRepository) ListFollowing(ctx context.Context, userID string, offset, limit int) ([]models.Profile, int, error) {
	if _, err := r.GetByUserID(ctx, userID); err != nil {
		return nil, 0, err
	}

	from := `
		FROM follows f
		JOIN users u ON u.user_id = f.followee_id
		WHERE f.follower_id = ? AND u.deleted_at IS NULL
	`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count followed users: %w", err)
	}

	query := `
		SELECT u.user_id, u.nickname, u.profile_image,
			(SELECT COUNT(*) FROM follows WHERE followee_id = u.user_id),
			(SELECT COUNT(*) FROM follows WHERE follower_id = u.user_id),
			(SELECT COUNT(*) FROM playlists p
				WHERE p.user_id = u.user_id AND p.deleted_at IS NULL AND p.public = 1)
	` + from + ` ORDER BY f.created_at DESC, u.sequence DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list followed users: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.UserID, &p.Nickname, &p.ProfileImage, &p.Followers, &p.Following, &p.Playlists); err != nil {
			return nil, 0, fmt.Errorf("failed to scan followed user: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate followed users: %w", err)
	}
	return profiles, total, nil
}

func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	var (
		user      models.User
		deletedAt sql.NullTime
	)

	err := row.Scan(&user.ID, &user.Sequence, &user.UserID, &user.PasswordHash, &user.Nickname,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	return &user, nil
}
