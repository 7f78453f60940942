// package services defines interface Service for talking to the playlist sharing API
package services

import (
	"context"

	"github.com/desertthunder/playshare/internal/models"
)

// Service defines the operations the TUI and CLI perform against the playlist sharing API.
type Service interface {
	// SignUp creates an account and returns its profile.
	SignUp(ctx context.Context, userID, password, nickname string) (*models.Profile, error)

	// SignIn exchanges credentials for a session token and keeps it for later calls.
	SignIn(ctx context.Context, userID, password string) (*Credentials, error)

	// SignOut forgets the current session.
	SignOut()

	// CurrentUser returns the signed-in user id, if any.
	CurrentUser() (string, bool)

	// Profile retrieves a user's public profile.
	Profile(ctx context.Context, userID string) (*models.Profile, error)

	// UpdateProfile edits the signed-in user's nickname and profile image.
	UpdateProfile(ctx context.Context, nickname, profileImage string) (*models.Profile, error)

	// Playlists retrieves one page of a user's playlists.
	Playlists(ctx context.Context, userID string, offset, limit int) (*PlaylistPage, error)

	// Liked retrieves one page of the playlists a user liked.
	Liked(ctx context.Context, userID string, offset, limit int) (*LikePage, error)

	// Following retrieves one page of the users userID follows.
	Following(ctx context.Context, userID string, offset, limit int) (*FollowingPage, error)

	// Search retrieves one page of playlists matching term, ordered by filter ("recent" or "popular").
	Search(ctx context.Context, term, filter string, offset, limit int) (*SearchPage, error)

	// CreatePlaylist creates a playlist owned by the signed-in user.
	CreatePlaylist(ctx context.Context, title string, tags, imgURLs []string, public bool) (*models.Playlist, error)

	// Like and Unlike toggle the signed-in user's like on a playlist.
	Like(ctx context.Context, playlistID string) error
	Unlike(ctx context.Context, playlistID string) error

	// Follow and Unfollow toggle the signed-in user's follow on another user.
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
}

// PlaylistPage is one page of a user's playlists together with the owner's header fields.
type PlaylistPage struct {
	UserID       string            `json:"userId"`
	Nickname     string            `json:"nickname"`
	ProfileImage string            `json:"profileImage"`
	Playlists    []models.Playlist `json:"playlists"`
	Total        int               `json:"total"`
}

// LikePage is one page of liked playlists.
type LikePage struct {
	LikedPlaylists []models.Playlist `json:"likedPlaylists"`
	Total          int               `json:"total"`
}

// FollowingPage is one page of followed users.
type FollowingPage struct {
	Following []models.Profile `json:"following"`
	Total     int              `json:"total"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Playlists []models.Playlist `json:"playlists"`
	Total     int               `json:"total"`
}
