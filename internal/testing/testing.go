// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
)

var _ services.Service = (*MockService)(nil)

// MockService is an in-memory test double for [services.Service].
//
// UserPlaylists, LikedPlaylists and FollowedUsers are keyed by user id. Err, when set, is returned by every call; FailNext
// fails only the next n calls.
type MockService struct {
	mu sync.Mutex

	Profiles       map[string]*models.Profile
	UserPlaylists  map[string][]models.Playlist
	LikedPlaylists map[string][]models.Playlist
	FollowedUsers  map[string][]models.Profile
	Results        []models.Playlist
	Err            error
	FailNext       int
	Calls          map[string]int
	Requests       []PageRequest

	user string
}

// PageRequest records one paged call made against a [MockService].
type PageRequest struct {
	Method string
	Key    string
	Offset int
	Limit  int
}

// NewMockService returns an empty [MockService].
func NewMockService() *MockService {
	return &MockService{
		Profiles:       map[string]*models.Profile{},
		UserPlaylists:  map[string][]models.Playlist{},
		LikedPlaylists: map[string][]models.Playlist{},
		FollowedUsers:  map[string][]models.Profile{},
		Calls:          map[string]int{},
	}
}

// SeedPlaylists gives userID n public playlists titled "<userID> mix NN".
func (m *MockService) SeedPlaylists(userID string, n int) []models.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range n {
		m.UserPlaylists[userID] = append(m.UserPlaylists[userID], models.Playlist{
			ID:      fmt.Sprintf("%s-%02d", userID, i),
			Title:   fmt.Sprintf("%s mix %02d", userID, i),
			UserID:  userID,
			Tags:    []string{"mix"},
			ImgURLs: []string{fmt.Sprintf("https://img.example/%s/%02d.png", userID, i)},
			Public:  true,
		})
	}
	return m.UserPlaylists[userID]
}

// CallCount returns how many times method was called.
func (m *MockService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockService) call(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	if m.Err != nil {
		return m.Err
	}
	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("%w: injected failure", shared.ErrServiceUnavailable)
	}
	return nil
}

func (m *MockService) page(method, key string, items []models.Playlist, offset, limit int) ([]models.Playlist, int) {
	m.record(method, key, offset, limit)
	return window(items, offset, limit), len(items)
}

func (m *MockService) record(method, key string, offset, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, PageRequest{Method: method, Key: key, Offset: offset, Limit: limit})
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func (m *MockService) SignUp(ctx context.Context, userID, password, nickname string) (*models.Profile, error) {
	if err := m.call("SignUp"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Profiles[userID]; ok {
		return nil, shared.ErrAlreadyExists
	}
	p := &models.Profile{UserID: userID, Nickname: nickname}
	m.Profiles[userID] = p
	return p, nil
}

func (m *MockService) SignIn(ctx context.Context, userID, password string) (*services.Credentials, error) {
	if err := m.call("SignIn"); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	m.mu.Lock()
	m.user = userID
	m.mu.Unlock()

	creds := &services.Credentials{UserID: userID}
	creds.AccessToken = "token-" + userID
	creds.TokenType = "Bearer"
	creds.Expiry = time.Now().Add(time.Hour)
	return creds, nil
}

func (m *MockService) SignOut() {
	m.mu.Lock()
	m.user = ""
	m.mu.Unlock()
}

func (m *MockService) CurrentUser() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.user != ""
}

func (m *MockService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	if err := m.call("Profile"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Profiles[userID]; ok {
		return p, nil
	}
	return &models.Profile{UserID: userID, Nickname: userID, Playlists: len(m.UserPlaylists[userID])}, nil
}

func (m *MockService) UpdateProfile(ctx context.Context, nickname, profileImage string) (*models.Profile, error) {
	if err := m.call("UpdateProfile"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == "" {
		return nil, shared.ErrNotAuthenticated
	}
	p := &models.Profile{UserID: m.user, Nickname: nickname, ProfileImage: profileImage}
	m.Profiles[m.user] = p
	return p, nil
}

// Playlists hides private playlists from everyone but their owner.
func (m *MockService) Playlists(ctx context.Context, userID string, offset, limit int) (*services.PlaylistPage, error) {
	if err := m.call("Playlists"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	items := make([]models.Playlist, 0, len(m.UserPlaylists[userID]))
	for _, p := range m.UserPlaylists[userID] {
		if p.Public || p.UserID == m.user {
			items = append(items, p)
		}
	}
	m.mu.Unlock()

	page, total := m.page("Playlists", userID, items, offset, limit)
	return &services.PlaylistPage{UserID: userID, Nickname: userID, Playlists: page, Total: total}, nil
}

func (m *MockService) Liked(ctx context.Context, userID string, offset, limit int) (*services.LikePage, error) {
	if err := m.call("Liked"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	items := m.LikedPlaylists[userID]
	m.mu.Unlock()

	page, total := m.page("Liked", userID, items, offset, limit)
	return &services.LikePage{LikedPlaylists: page, Total: total}, nil
}

func (m *MockService) Search(ctx context.Context, term, filter string, offset, limit int) (*services.SearchPage, error) {
	if err := m.call("Search"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	items := m.Results
	m.mu.Unlock()

	page, total := m.page("Search", term, items, offset, limit)
	return &services.SearchPage{Playlists: page, Total: total}, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, title string, tags, imgURLs []string, public bool) (*models.Playlist, error) {
	if err := m.call("CreatePlaylist"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Playlist{ID: fmt.Sprintf("new-%d", m.Calls["CreatePlaylist"]), Title: title, UserID: m.user, Tags: tags, ImgURLs: imgURLs, Public: public}
	m.UserPlaylists[m.user] = append([]models.Playlist{p}, m.UserPlaylists[m.user]...)
	return &p, nil
}

func (m *MockService) Like(ctx context.Context, playlistID string) error {
	return m.call("Like")
}

func (m *MockService) Unlike(ctx context.Context, playlistID string) error {
	return m.call("Unlike")
}

func (m *MockService) Following(ctx context.Context, userID string, offset, limit int) (*services.FollowingPage, error) {
	if err := m.call("Following"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	items := m.FollowedUsers[userID]
	m.mu.Unlock()

	m.record("Following", userID, offset, limit)
	return &services.FollowingPage{Following: window(items, offset, limit), Total: len(items)}, nil
}

// Follow adds userID to the signed-in user's FollowedUsers.
func (m *MockService) Follow(ctx context.Context, userID string) error {
	if err := m.call("Follow"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != "" {
		m.FollowedUsers[m.user] = append(m.FollowedUsers[m.user], models.Profile{UserID: userID, Nickname: userID})
	}
	return nil
}

func (m *MockService) Unfollow(ctx context.Context, userID string) error {
	if err := m.call("Unfollow"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowedUsers[m.user] = slices.DeleteFunc(m.FollowedUsers[m.user], func(p models.Profile) bool {
		return p.UserID == userID
	})
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
