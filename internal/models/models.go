// package models defines the data model for the playlist sharing service
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Model is implemented by every persistent entity.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the base data access operations shared by the repositories.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error     // Create inserts a new model
	Get(ctx context.Context, id string) (T, error) // Get retrieves a model by its key
	Delete(ctx context.Context, id string) error   // Delete soft-deletes a model by its key
}

// ErrValidation is wrapped by every Validate failure.
var ErrValidation = errors.New("validation failed")

// User is an account. UserID is the public handle used in URLs.
type User struct {
	ID           string     `json:"-"`
	Sequence     int        `json:"-"`
	UserID       string     `json:"userId"`
	PasswordHash string     `json:"-"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profileImage"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"-"`
}

// NewUser creates a [User] with timestamps set to now.
func NewUser(userID, passwordHash, nickname string) *User {
	now := time.Now().UTC()
	return &User{
		UserID:       userID,
		PasswordHash: passwordHash,
		Nickname:     nickname,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.ContainsAny(u.UserID, " /?#") {
		return fmt.Errorf("%w: user id %q contains reserved characters", ErrValidation, u.UserID)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("%w: password hash is required", ErrValidation)
	}
	if u.Nickname == "" {
		return fmt.Errorf("%w: nickname is required", ErrValidation)
	}
	return nil
}

// Playlist is a user's shared playlist. Private playlists (Public false) are only listed to their owner.
type Playlist struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"-"`
	Title        string    `json:"title"`
	UserID       string    `json:"userId"`
	Nickname     string    `json:"nickname,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Tags         []string  `json:"tags"`
	ImgURLs      []string  `json:"imgUrl"`
	Public       bool      `json:"disclosureStatus"`
	Likes        int       `json:"likes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewPlaylist creates a [Playlist] owned by userID with timestamps set to now.
func NewPlaylist(userID, title string, tags, imgURLs []string, public bool) *Playlist {
	now := time.Now().UTC()
	return &Playlist{
		UserID:    userID,
		Title:     title,
		Tags:      tags,
		ImgURLs:   imgURLs,
		Public:    public,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Playlist) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: playlist owner is required", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: playlist title is required", ErrValidation)
	}
	return nil
}

// Cover returns the first image URL, or "" when the playlist has none.
func (p Playlist) Cover() string {
	if len(p.ImgURLs) == 0 {
		return ""
	}
	return p.ImgURLs[0]
}

// Session is a bearer token issued at sign-in.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Validate() error {
	if s.Token == "" || s.UserID == "" {
		return fmt.Errorf("%w: session token and user are required", ErrValidation)
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return fmt.Errorf("%w: session expires before it is created", ErrValidation)
	}
	return nil
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Profile is the public view of a user.
type Profile struct {
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
	Followers    int    `json:"followers"`
	Following    int    `json:"following"`
	Playlists    int    `json:"playlists"`
}

// Page is one slice of a paginated collection.
//
// Total is set only when the source knows the size of the whole collection.
type Page[T any] struct {
	Items []T  `json:"items"`
	Total *int `json:"total,omitempty"`
}

// Total returns a pointer to n, for building pages with a known total.
func Total(n int) *int {
	return &n
}
