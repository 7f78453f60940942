package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/repositories"
	"github.com/desertthunder/playshare/internal/shared"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	api := NewAPI(
		repositories.NewUserRepository(db),
		repositories.NewPlaylistRepository(db),
		repositories.NewSessionRepository(db),
		log.New(io.Discard),
		WithBcryptCost(bcrypt.MinCost),
		WithSessionTTL(time.Hour),
	)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body any, out any) int {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	if err != nil {
		a.t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("failed to decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *testAPI) signUpAndIn(userID string) string {
	a.t.Helper()
	if code := a.do("POST", "/api/signup", "", SignUpRequest{UserID: userID, Password: "secret", Nickname: "nick " + userID}, nil); code != http.StatusCreated {
		a.t.Fatalf("signup %s: status %d", userID, code)
	}
	var resp SignInResponse
	if code := a.do("POST", "/api/signin", "", SignInRequest{UserID: userID, Password: "secret"}, &resp); code != http.StatusOK {
		a.t.Fatalf("signin %s: status %d", userID, code)
	}
	return resp.AccessToken
}

func (a *testAPI) createPlaylist(token, title string, public bool) models.Playlist {
	a.t.Helper()
	var p models.Playlist
	req := PlaylistRequest{Title: title, Tags: []string{"chill"}, ImgURLs: []string{"https://img/" + title}, Public: public}
	if code := a.do("POST", "/api/playlists", token, req, &p); code != http.StatusCreated {
		a.t.Fatalf("create playlist %s: status %d", title, code)
	}
	return p
}

func TestAuth(t *testing.T) {
	t.Run("sign up then sign in", func(t *testing.T) {
		api := newTestAPI(t)

		var profile models.Profile
		code := api.do("POST", "/api/signup", "", SignUpRequest{UserID: "alice", Password: "secret", Nickname: "Alice"}, &profile)
		if code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", code)
		}
		if profile.UserID != "alice" || profile.Nickname != "Alice" {
			t.Errorf("unexpected profile %+v", profile)
		}

		var resp SignInResponse
		if code := api.do("POST", "/api/signin", "", SignInRequest{UserID: "alice", Password: "secret"}, &resp); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if resp.AccessToken == "" || resp.TokenType != "Bearer" || resp.UserID != "alice" {
			t.Errorf("unexpected token response %+v", resp)
		}
		if !resp.Expiry.After(time.Now()) {
			t.Errorf("expected expiry in the future, got %v", resp.Expiry)
		}
	})

	t.Run("duplicate sign up conflicts", func(t *testing.T) {
		api := newTestAPI(t)
		api.signUpAndIn("alice")

		code := api.do("POST", "/api/signup", "", SignUpRequest{UserID: "alice", Password: "other", Nickname: "x"}, nil)
		if code != http.StatusConflict {
			t.Errorf("expected 409, got %d", code)
		}
	})

	t.Run("invalid sign ups are rejected", func(t *testing.T) {
		api := newTestAPI(t)

		tt := []SignUpRequest{
			{UserID: "", Password: "secret", Nickname: "x"},
			{UserID: "bob", Password: "abc", Nickname: "x"},
			{UserID: "bob", Password: "secret", Nickname: ""},
		}
		for _, req := range tt {
			if code := api.do("POST", "/api/signup", "", req, nil); code != http.StatusBadRequest {
				t.Errorf("signup %+v: expected 400, got %d", req, code)
			}
		}
	})

	t.Run("wrong password and unknown user are unauthorized", func(t *testing.T) {
		api := newTestAPI(t)
		api.signUpAndIn("alice")

		if code := api.do("POST", "/api/signin", "", SignInRequest{UserID: "alice", Password: "nope"}, nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401 for wrong password, got %d", code)
		}
		if code := api.do("POST", "/api/signin", "", SignInRequest{UserID: "ghost", Password: "secret"}, nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401 for unknown user, got %d", code)
		}
	})

	t.Run("protected routes need a valid token", func(t *testing.T) {
		api := newTestAPI(t)

		if code := api.do("POST", "/api/playlists", "", PlaylistRequest{Title: "x"}, nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401 without token, got %d", code)
		}
		if code := api.do("GET", "/api/searchs", "bogus", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401 for unknown token, got %d", code)
		}
	})
}

func TestProfile(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signUpAndIn("alice")
	bob := api.signUpAndIn("bob")

	if code := api.do("POST", "/api/follow/alice", bob, nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204 for follow, got %d", code)
	}
	if code := api.do("POST", "/api/follow/bob", bob, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for self follow, got %d", code)
	}

	var updated models.Profile
	code := api.do("PUT", "/api/profile", alice, ProfileUpdate{Nickname: "Alice", ProfileImage: "https://img/a.png"}, &updated)
	if code != http.StatusOK {
		t.Fatalf("expected 200 for profile update, got %d", code)
	}
	if updated.Nickname != "Alice" || updated.Followers != 1 {
		t.Errorf("unexpected updated profile %+v", updated)
	}

	var fetched models.Profile
	api.do("GET", "/api/profile/alice", "", nil, &fetched)
	if fetched.ProfileImage != "https://img/a.png" {
		t.Errorf("expected profile image to persist, got %+v", fetched)
	}

	if code := api.do("GET", "/api/profile/ghost", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown profile, got %d", code)
	}

	if code := api.do("DELETE", "/api/follow/alice", bob, nil, nil); code != http.StatusNoContent {
		t.Errorf("expected 204 for unfollow, got %d", code)
	}
}

func TestPlaylistPage(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signUpAndIn("alice")
	bob := api.signUpAndIn("bob")

	for i := range 14 {
		api.createPlaylist(alice, fmt.Sprintf("mix %02d", i), true)
	}
	api.createPlaylist(alice, "diary", false)

	t.Run("pages with total", func(t *testing.T) {
		var page PlaylistPage
		if code := api.do("GET", "/api/playlistPage/alice?offset=0&limit=12", bob, nil, &page); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if len(page.Playlists) != 12 || page.Total != 14 {
			t.Errorf("expected 12 of 14 for bob, got %d of %d", len(page.Playlists), page.Total)
		}
		if page.Nickname != "nick alice" {
			t.Errorf("expected owner nickname, got %q", page.Nickname)
		}

		api.do("GET", "/api/playlistPage/alice?offset=12&limit=12", bob, nil, &page)
		if len(page.Playlists) != 2 {
			t.Errorf("expected short second page of 2, got %d", len(page.Playlists))
		}
	})

	t.Run("owner sees private playlists", func(t *testing.T) {
		var page PlaylistPage
		api.do("GET", "/api/playlistPage/alice", alice, nil, &page)
		if page.Total != 15 {
			t.Errorf("expected 15 for the owner, got %d", page.Total)
		}
	})

	t.Run("bad paging parameters", func(t *testing.T) {
		for _, q := range []string{"offset=-1", "limit=0", "limit=abc"} {
			if code := api.do("GET", "/api/playlistPage/alice?"+q, "", nil, nil); code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", q, code)
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if code := api.do("GET", "/api/playlistPage/ghost", "", nil, nil); code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", code)
		}
	})
}

func TestLikes(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signUpAndIn("alice")
	bob := api.signUpAndIn("bob")

	open := api.createPlaylist(alice, "open", true)
	hidden := api.createPlaylist(alice, "hidden", false)

	if code := api.do("POST", "/api/like/"+open.ID, bob, nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204 for like, got %d", code)
	}
	if code := api.do("POST", "/api/like/"+hidden.ID, bob, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 liking a hidden playlist, got %d", code)
	}

	var page LikePage
	api.do("GET", "/api/likePage/bob", bob, nil, &page)
	if page.Total != 1 || page.LikedPlaylists[0].ID != open.ID || page.LikedPlaylists[0].Likes != 1 {
		t.Errorf("unexpected like page %+v", page)
	}

	api.do("DELETE", "/api/like/"+open.ID, bob, nil, nil)
	api.do("GET", "/api/likePage/bob", bob, nil, &page)
	if page.Total != 0 {
		t.Errorf("expected no likes after unlike, got %d", page.Total)
	}
}

func TestFollowing(t *testing.T) {
	api := newTestAPI(t)
	bob := api.signUpAndIn("bob")
	for _, userID := range []string{"alice", "carol", "dave"} {
		api.signUpAndIn(userID)
		if code := api.do("POST", "/api/follow/"+userID, bob, nil, nil); code != http.StatusNoContent {
			t.Fatalf("expected 204 following %s, got %d", userID, code)
		}
	}

	var page FollowingPage
	if code := api.do("GET", "/api/following/bob?offset=0&limit=2", "", nil, &page); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(page.Following) != 2 || page.Total != 3 {
		t.Errorf("expected 2 of 3, got %d of %d", len(page.Following), page.Total)
	}

	api.do("GET", "/api/following/bob?offset=2&limit=2", "", nil, &page)
	if len(page.Following) != 1 || page.Following[0].Followers != 1 {
		t.Errorf("unexpected short page %+v", page.Following)
	}

	api.do("DELETE", "/api/follow/alice", bob, nil, nil)
	api.do("GET", "/api/following/bob", "", nil, &page)
	if page.Total != 2 {
		t.Errorf("expected 2 after unfollow, got %d", page.Total)
	}

	if code := api.do("GET", "/api/following/ghost", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", code)
	}
	if code := api.do("GET", "/api/following/bob?limit=0", "", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signUpAndIn("alice")
	bob := api.signUpAndIn("bob")

	jazz := api.createPlaylist(alice, "late night jazz", true)
	api.createPlaylist(alice, "jazz standards", true)
	api.createPlaylist(alice, "metal", true)
	api.createPlaylist(alice, "jazz diary", false)
	api.do("POST", "/api/like/"+jazz.ID, bob, nil, nil)

	var page SearchPage
	if code := api.do("GET", "/api/searchs?term=jazz&filter=popular", bob, nil, &page); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 visible jazz playlists, got %d", page.Total)
	}
	if page.Playlists[0].ID != jazz.ID {
		t.Errorf("expected the liked playlist first, got %q", page.Playlists[0].Title)
	}

	if code := api.do("GET", "/api/searchs?term=jazz&filter=oldest", bob, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %d", code)
	}

	api.do("GET", "/api/searchs?term=jazz", alice, nil, &page)
	if page.Total != 3 {
		t.Errorf("expected owner search to include private playlist, got %d", page.Total)
	}
}

func TestRouter(t *testing.T) {
	api := newTestAPI(t)

	if code := api.do("GET", "/healthz", "", nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 from health check, got %d", code)
	}
	if code := api.do("PATCH", "/api/signin", "", nil, nil); code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", code)
	}
	if code := api.do("GET", "/api/nothing", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("outer"), mw("inner"))
	r.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	want := []string{"outer", "inner", "handler"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(log.New(io.Discard))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
