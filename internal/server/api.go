package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/repositories"
	"github.com/desertthunder/playshare/internal/shared"
)

// DefaultPageLimit is used when a paged request omits limit.
const DefaultPageLimit = 12

// SignUpRequest is the body of POST /api/signup.
type SignUpRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// SignInRequest is the body of POST /api/signin.
type SignInRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// SignInResponse carries an oauth2-compatible token plus the signed-in user id.
type SignInResponse struct {
	oauth2.Token
	UserID string `json:"userId"`
}

// ProfileUpdate is the body of PUT /api/profile.
type ProfileUpdate struct {
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
}

// PlaylistRequest is the body of POST /api/playlists.
type PlaylistRequest struct {
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	ImgURLs []string `json:"imgUrls"`
	Public  bool     `json:"disclosureStatus"`
}

// PlaylistPage is the response of GET /api/playlistPage/{userId}.
type PlaylistPage struct {
	UserID       string            `json:"userId"`
	Nickname     string            `json:"nickname"`
	ProfileImage string            `json:"profileImage"`
	Playlists    []models.Playlist `json:"playlists"`
	Total        int               `json:"total"`
}

// LikePage is the response of GET /api/likePage/{userId}.
type LikePage struct {
	LikedPlaylists []models.Playlist `json:"likedPlaylists"`
	Total          int               `json:"total"`
}

// FollowingPage is the response of GET /api/following/{userId}.
type FollowingPage struct {
	Following []models.Profile `json:"following"`
	Total     int              `json:"total"`
}

// SearchPage is the response of GET /api/searchs.
type SearchPage struct {
	Playlists []models.Playlist `json:"playlists"`
	Total     int               `json:"total"`
}

// API serves the playlist sharing endpoints on top of the repositories.
type API struct {
	users      *repositories.UserRepository
	playlists  *repositories.PlaylistRepository
	sessions   *repositories.SessionRepository
	logger     *log.Logger
	sessionTTL time.Duration
	bcryptCost int
}

// Option configures an [API].
type Option func(*API)

// WithSessionTTL sets how long issued tokens stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(a *API) {
		if ttl > 0 {
			a.sessionTTL = ttl
		}
	}
}

// WithBcryptCost sets the password hashing cost. Tests use [bcrypt.MinCost].
func WithBcryptCost(cost int) Option {
	return func(a *API) { a.bcryptCost = cost }
}

// NewAPI creates an [API] backed by the repositories.
func NewAPI(users *repositories.UserRepository, playlists *repositories.PlaylistRepository, sessions *repositories.SessionRepository, logger *log.Logger, opts ...Option) *API {
	a := &API{
		users:      users,
		playlists:  playlists,
		sessions:   sessions,
		logger:     logger,
		sessionTTL: 30 * 24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router builds a [BasicRouter] with logging, recovery and authentication middleware and every
// API route registered.
func (a *API) Router() *BasicRouter {
	r := NewBasicRouter()
	r.Use(Logging(a.logger), Recover(a.logger))
	r.Handler(HealthHandler{})

	r.Use(Authenticate(a.sessions, a.logger))
	a.Register(r)
	return r
}

// Register adds the API routes to r.
func (a *API) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodPost, "/api/signup", a.signUp)
	r.HandleFunc(http.MethodPost, "/api/signin", a.signIn)
	r.HandleFunc(http.MethodGet, "/api/profile/{userId}", a.profile)
	r.HandleFunc(http.MethodPut, "/api/profile", requireViewer(a.logger, a.updateProfile))
	r.HandleFunc(http.MethodGet, "/api/playlistPage/{userId}", a.playlistPage)
	r.HandleFunc(http.MethodGet, "/api/likePage/{userId}", a.likePage)
	r.HandleFunc(http.MethodGet, "/api/following/{userId}", a.following)
	r.HandleFunc(http.MethodGet, "/api/searchs", a.search)
	r.HandleFunc(http.MethodPost, "/api/playlists", requireViewer(a.logger, a.createPlaylist))
	r.HandleFunc(http.MethodPost, "/api/like/{playlistId}", requireViewer(a.logger, a.like))
	r.HandleFunc(http.MethodDelete, "/api/like/{playlistId}", requireViewer(a.logger, a.unlike))
	r.HandleFunc(http.MethodPost, "/api/follow/{userId}", requireViewer(a.logger, a.follow))
	r.HandleFunc(http.MethodDelete, "/api/follow/{userId}", requireViewer(a.logger, a.unfollow))
}

func (a *API) signUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if len(req.Password) < 4 {
		writeError(w, a.logger, fmt.Errorf("%w: password must be at least 4 characters", shared.ErrInvalidInput))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.bcryptCost)
	if err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	user := models.NewUser(strings.TrimSpace(req.UserID), string(hash), strings.TrimSpace(req.Nickname))
	if err := a.users.Create(r.Context(), user); err != nil {
		writeError(w, a.logger, err)
		return
	}

	a.logger.Info("user signed up", "user", user.UserID)
	a.writeProfile(w, r, http.StatusCreated, user.UserID, user.UserID)
}

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	user, err := a.users.GetByUserID(r.Context(), req.UserID)
	if errors.Is(err, shared.ErrUserNotFound) {
		writeError(w, a.logger, shared.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, a.logger, shared.ErrInvalidCredentials)
		return
	}

	session, err := a.sessions.Issue(r.Context(), user.UserID, a.sessionTTL)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, SignInResponse{
		Token: oauth2.Token{
			AccessToken: session.Token,
			TokenType:   "Bearer",
			Expiry:      session.ExpiresAt,
		},
		UserID: user.UserID,
	})
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	a.writeProfile(w, r, http.StatusOK, r.PathValue("userId"), Viewer(r.Context()))
}

func (a *API) writeProfile(w http.ResponseWriter, r *http.Request, status int, userID, viewer string) {
	profile, err := a.users.Profile(r.Context(), userID, viewer)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, status, profile)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request, viewer string) {
	var req ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	user, err := a.users.GetByUserID(r.Context(), viewer)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if nickname := strings.TrimSpace(req.Nickname); nickname != "" {
		user.Nickname = nickname
	}
	user.ProfileImage = strings.TrimSpace(req.ProfileImage)

	if err := a.users.Update(r.Context(), user); err != nil {
		writeError(w, a.logger, err)
		return
	}
	a.writeProfile(w, r, http.StatusOK, viewer, viewer)
}

func (a *API) playlistPage(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r, DefaultPageLimit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	owner, err := a.users.GetByUserID(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	playlists, total, err := a.playlists.ListByOwner(r.Context(), owner.UserID, Viewer(r.Context()), offset, limit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, PlaylistPage{
		UserID:       owner.UserID,
		Nickname:     owner.Nickname,
		ProfileImage: owner.ProfileImage,
		Playlists:    playlists,
		Total:        total,
	})
}

func (a *API) likePage(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r, DefaultPageLimit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	user, err := a.users.GetByUserID(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	playlists, total, err := a.playlists.ListLiked(r.Context(), user.UserID, Viewer(r.Context()), offset, limit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LikePage{LikedPlaylists: playlists, Total: total})
}

func (a *API) following(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r, DefaultPageLimit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	profiles, total, err := a.users.ListFollowing(r.Context(), r.PathValue("userId"), offset, limit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FollowingPage{Following: profiles, Total: total})
}

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r, DefaultPageLimit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	candidates, err := a.playlists.ListVisible(r.Context(), Viewer(r.Context()))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	matches := Search(candidates, r.URL.Query().Get("term"), filter)
	writeJSON(w, http.StatusOK, SearchPage{Playlists: window(matches, offset, limit), Total: len(matches)})
}

func (a *API) createPlaylist(w http.ResponseWriter, r *http.Request, viewer string) {
	var req PlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	playlist := models.NewPlaylist(viewer, strings.TrimSpace(req.Title), req.Tags, req.ImgURLs, req.Public)
	if err := a.playlists.Create(r.Context(), playlist); err != nil {
		writeError(w, a.logger, err)
		return
	}

	created, err := a.playlists.Get(r.Context(), playlist.ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) like(w http.ResponseWriter, r *http.Request, viewer string) {
	a.mutate(w, r, func(ctx context.Context) error {
		return a.playlists.Like(ctx, viewer, r.PathValue("playlistId"))
	})
}

func (a *API) unlike(w http.ResponseWriter, r *http.Request, viewer string) {
	a.mutate(w, r, func(ctx context.Context) error {
		return a.playlists.Unlike(ctx, viewer, r.PathValue("playlistId"))
	})
}

func (a *API) follow(w http.ResponseWriter, r *http.Request, viewer string) {
	a.mutate(w, r, func(ctx context.Context) error {
		return a.users.Follow(ctx, viewer, r.PathValue("userId"))
	})
}

func (a *API) unfollow(w http.ResponseWriter, r *http.Request, viewer string) {
	a.mutate(w, r, func(ctx context.Context) error {
		return a.users.Unfollow(ctx, viewer, r.PathValue("userId"))
	})
}

func (a *API) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandler answers liveness checks.
type HealthHandler struct{}

func (HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
