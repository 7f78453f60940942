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

// PlaylistRepository implements models.Repository[*models.Playlist] for playlists and their likes.
//
// Listings apply the visibility rule: a private playlist is only returned to its owner.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistSelect = `
	SELECT p.id, p.sequence, p.title, p.user_id, u.nickname, u.profile_image, p.tags, p.img_urls, p.public,
		(SELECT COUNT(*) FROM likes l WHERE l.playlist_id = p.id),
		p.created_at, p.updated_at
	FROM playlists p
	JOIN users u ON u.user_id = p.user_id AND u.deleted_at IS NULL
`

const visibleTo = `(p.public = 1 OR p.user_id = ?)`

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return err
	}

	tags, err := encodeList(shared.NormalizeTags(playlist.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	imgURLs, err := encodeList(playlist.ImgURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO playlists (id, sequence, user_id, title, tags, img_urls, public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		playlist.UserID,
		playlist.Title,
		tags,
		imgURLs,
		playlist.Public,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return conflict(err, "playlist %s", playlist.Title)
	}

	playlist.ID = id
	playlist.Sequence = sequence
	playlist.Tags = shared.NormalizeTags(playlist.Tags)
	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := playlistSelect + ` WHERE p.id = ? AND p.deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetVisible retrieves a playlist by ID if viewer may see it.
// Private playlists of other users are reported as [shared.ErrPlaylistNotFound].
func (r *PlaylistRepository) GetVisible(ctx context.Context, id, viewer string) (*models.Playlist, error) {
	query := playlistSelect + ` WHERE p.id = ? AND p.deleted_at IS NULL AND ` + visibleTo
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, viewer), id)
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return affected(result, shared.ErrPlaylistNotFound, id)
}

// ListByOwner returns one page of owner's playlists as seen by viewer, newest first,
// together with the number of playlists viewer may see in total.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, owner, viewer string, offset, limit int) ([]models.Playlist, int, error) {
	where := ` WHERE p.user_id = ? AND p.deleted_at IS NULL AND ` + visibleTo

	var total int
	count := `SELECT COUNT(*) FROM playlists p` + where
	if err := r.db.QueryRowContext(ctx, count, owner, viewer).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count playlists: %w", err)
	}

	query := playlistSelect + where + ` ORDER BY p.sequence DESC LIMIT ? OFFSET ?`
	playlists, err := r.list(ctx, query, owner, viewer, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return playlists, total, nil
}

// ListLiked returns one page of the playlists liked by userID that viewer may see, most recently
// liked first, together with the total.
func (r *PlaylistRepository) ListLiked(ctx context.Context, userID, viewer string, offset, limit int) ([]models.Playlist, int, error) {
	join := ` JOIN likes lk ON lk.playlist_id = p.id`
	where := ` WHERE lk.user_id = ? AND p.deleted_at IS NULL AND ` + visibleTo

	var total int
	count := `SELECT COUNT(*) FROM playlists p` + join + where
	if err := r.db.QueryRowContext(ctx, count, userID, viewer).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count liked playlists: %w", err)
	}

	query := playlistSelect + join + where + ` ORDER BY lk.created_at DESC, p.sequence DESC LIMIT ? OFFSET ?`
	playlists, err := r.list(ctx, query, userID, viewer, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return playlists, total, nil
}

// ListVisible returns every playlist viewer may see, newest first. Search ranks over this set.
func (r *PlaylistRepository) ListVisible(ctx context.Context, viewer string) ([]models.Playlist, error) {
	query := playlistSelect + ` WHERE p.deleted_at IS NULL AND ` + visibleTo + ` ORDER BY p.sequence DESC`
	return r.list(ctx, query, viewer)
}

// Like records that userID likes the playlist. Liking twice is not an error.
func (r *PlaylistRepository) Like(ctx context.Context, userID, playlistID string) error {
	if _, err := r.GetVisible(ctx, playlistID, userID); err != nil {
		return err
	}

	query := `INSERT OR IGNORE INTO likes (user_id, playlist_id, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, playlistID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to like playlist: %w", err)
	}
	return nil
}

// Unlike removes a like. Removing a missing like is not an error.
func (r *PlaylistRepository) Unlike(ctx context.Context, userID, playlistID string) error {
	query := `DELETE FROM likes WHERE user_id = ? AND playlist_id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, playlistID); err != nil {
		return fmt.Errorf("failed to unlike playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) list(ctx context.Context, query string, args ...any) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row, id string) (*models.Playlist, error) {
	playlist, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return playlist, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PlaylistRepository) scan(s scanner) (*models.Playlist, error) {
	var (
		playlist models.Playlist
		tags     string
		imgURLs  string
	)

	err := s.Scan(&playlist.ID, &playlist.Sequence, &playlist.Title, &playlist.UserID, &playlist.Nickname,
		&playlist.ProfileImage, &tags, &imgURLs, &playlist.Public, &playlist.Likes,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if playlist.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of %s: %w", playlist.ID, err)
	}
	if playlist.ImgURLs, err = decodeList(imgURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls of %s: %w", playlist.ID, err)
	}
	return &playlist, nil
}
