package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playshare/internal/modal"
	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
	th "github.com/desertthunder/playshare/internal/testing"
	"go.uber.org/goleak"
)

func newTestModel(t *testing.T, svc *th.MockService, opts Options) *Model {
	t.Helper()
	if opts.ScrollRateLimit == 0 {
		opts.ScrollRateLimit = 10 * time.Millisecond
	}
	if opts.Clipboard == nil {
		opts.Clipboard = func(string) error { return nil }
	}
	m := NewModel(context.Background(), svc, opts)
	t.Cleanup(m.Close)
	return m
}

func seededService(n int) *th.MockService {
	svc := th.NewMockService()
	svc.Results = svc.SeedPlaylists("bob", n)
	return svc
}

// settle runs a single (non-batch) command and feeds its message back into the model.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	m.Update(cmd())
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelPaging(t *testing.T) {
	t.Run("first page then one more per near-bottom signal", func(t *testing.T) {
		svc := seededService(30)
		m := newTestModel(t, svc, Options{})

		settle(t, m, m.activate(SearchView))
		feed := m.views[SearchView].feed
		if got := len(feed.Visible()); got != 12 {
			t.Fatalf("expected 12 visible after first page, got %d", got)
		}

		cmd := m.handleNearBottom(SearchView)
		if cmd == nil {
			t.Fatal("expected a fetch for the near-bottom signal")
		}
		if dup := m.handleNearBottom(SearchView); dup != nil {
			t.Error("expected no second fetch while one is in flight")
		}
		settle(t, m, cmd)

		if got := len(feed.Visible()); got != 24 {
			t.Errorf("expected 24 visible, got %d", got)
		}
		if svc.CallCount("Search") != 2 {
			t.Errorf("expected 2 search calls, got %d", svc.CallCount("Search"))
		}
	})

	t.Run("signals for inactive views are ignored", func(t *testing.T) {
		m := newTestModel(t, seededService(30), Options{})
		settle(t, m, m.activate(SearchView))

		if cmd := m.handleNearBottom(LikedView); cmd != nil {
			t.Error("expected inactive view signal to be ignored")
		}
	})

	t.Run("failure shows a notice and keeps state for a retry", func(t *testing.T) {
		svc := seededService(30)
		m := newTestModel(t, svc, Options{})
		settle(t, m, m.activate(SearchView))

		svc.FailNext = 1
		settle(t, m, m.handleNearBottom(SearchView))

		s := m.views[SearchView].feed.State()
		if s.Loading || !s.HasMore || s.VisibleCount != 12 {
			t.Errorf("unexpected state after failure: %+v", s)
		}
		if !m.failed || !strings.Contains(m.notice, "couldn't load more search") {
			t.Errorf("expected failure notice, got %q", m.notice)
		}

		settle(t, m, m.handleNearBottom(SearchView))
		if got := m.views[SearchView].feed.State().VisibleCount; got != 24 {
			t.Errorf("expected retry to reach 24, got %d", got)
		}
	})

	t.Run("results for a previous search are discarded", func(t *testing.T) {
		m := newTestModel(t, seededService(30), Options{})
		settle(t, m, m.activate(SearchView))

		stale := m.handleNearBottom(SearchView)
		m.search.SetValue("mix 01")
		fresh := m.prime(SearchView)
		if fresh == nil {
			t.Fatal("expected a new search to prime")
		}

		settle(t, m, stale)
		if got := m.views[SearchView].feed.Len(); got != 0 {
			t.Fatalf("expected stale page to be dropped, got %d items", got)
		}

		settle(t, m, fresh)
		if got := m.views[SearchView].feed.Len(); got != 12 {
			t.Errorf("expected 12 items for the new search, got %d", got)
		}
	})

	t.Run("order key rebinds the search", func(t *testing.T) {
		svc := seededService(30)
		m := newTestModel(t, svc, Options{})
		settle(t, m, m.activate(SearchView))

		_, cmd := m.Update(runes("o"))
		settle(t, m, cmd)

		if filters[m.filter] != "recent" {
			t.Errorf("expected recent filter, got %q", filters[m.filter])
		}
		if got := m.views[SearchView].feed.Controller().Identity(); got != services.SearchKey("", "recent") {
			t.Errorf("unexpected identity %q", got)
		}
	})
}

func TestNewModelPageSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "default", in: 0, want: 12},
		{name: "configured", in: 30, want: 30},
		{name: "capped at the server limit", in: shared.MaxPageSize + 50, want: shared.MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, th.NewMockService(), Options{PageSize: tt.in})
			if got := m.views[SearchView].feed.Controller().PageSize(); got != tt.want {
				t.Errorf("page size = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestModelScrollSampling(t *testing.T) {
	svc := seededService(30)
	m := newTestModel(t, svc, Options{ScrollRateLimit: 10 * time.Millisecond})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	settle(t, m, m.activate(SearchView))

	time.Sleep(50 * time.Millisecond)
	for len(m.signals) > 0 {
		<-m.signals
	}

	for range 11 {
		m.Update(runes("j"))
	}

	select {
	case view := <-m.signals:
		if view != SearchView {
			t.Fatalf("expected a signal for the search view, got %v", view)
		}
		settle(t, m, m.handleNearBottom(view))
	case <-time.After(time.Second):
		t.Fatal("expected a near-bottom signal after scrolling to the end")
	}

	if got := m.views[SearchView].feed.State().VisibleCount; got != 24 {
		t.Errorf("expected 24 visible after scrolling, got %d", got)
	}
}

func TestModelViewActivation(t *testing.T) {
	t.Run("switching views moves the scroll handle", func(t *testing.T) {
		m := newTestModel(t, seededService(5), Options{})
		settle(t, m, m.activate(SearchView))

		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.view != PlaylistsView {
			t.Fatalf("expected playlists view, got %v", m.view)
		}
		if m.views[SearchView].attached() {
			t.Error("expected search handle released")
		}
		if !m.views[PlaylistsView].attached() {
			t.Error("expected playlists handle attached")
		}
		if n := m.views[SearchView].source.Subscribers(); n != 0 {
			t.Errorf("expected no subscribers on the search source, got %d", n)
		}
	})

	t.Run("deactivated views start over", func(t *testing.T) {
		svc := seededService(30)
		m := newTestModel(t, svc, Options{})
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
		settle(t, m, m.activate(SearchView))
		settle(t, m, m.handleNearBottom(SearchView))
		if got := m.views[SearchView].feed.Len(); got != 24 {
			t.Fatalf("expected 24 results before switching, got %d", got)
		}

		stale := m.views[SearchView].feed.NearBottom()
		m.switchTo(PlaylistsView)
		if got := m.views[SearchView].feed.Len(); got != 0 {
			t.Errorf("expected the search feed reset on deactivation, got %d items", got)
		}
		if s := m.views[SearchView].feed.State(); s.Loading || !s.HasMore {
			t.Errorf("expected a fresh pagination state, got %+v", s)
		}

		m.Update(pageFetchedMsg(SearchView, stale(context.Background())))
		if got := m.views[SearchView].feed.Len(); got != 0 {
			t.Errorf("expected a fetch from before the reset to be dropped, got %d items", got)
		}

		settle(t, m, m.switchTo(SearchView))
		if got := m.views[SearchView].feed.Len(); got != 12 {
			t.Errorf("expected only the first page after reactivation, got %d", got)
		}
		last := svc.Requests[len(svc.Requests)-1]
		if last.Offset != 0 {
			t.Errorf("expected reactivation to fetch from offset 0, got %d", last.Offset)
		}
	})

	t.Run("signing in rebinds the open playlists to the new viewer", func(t *testing.T) {
		svc := seededService(3)
		svc.UserPlaylists["bob"] = append(svc.UserPlaylists["bob"], models.Playlist{ID: "bob-secret", Title: "bob secret", UserID: "bob"})
		m := newTestModel(t, svc, Options{})

		m.owner = "bob"
		settle(t, m, m.switchTo(PlaylistsView))
		if got := m.views[PlaylistsView].feed.Len(); got != 3 {
			t.Fatalf("expected 3 public playlists while signed out, got %d", got)
		}

		creds, err := svc.SignIn(context.Background(), "bob", "pw")
		if err != nil {
			t.Fatal(err)
		}
		cmd := m.applyForm(formSubmitted{name: modal.SignIn, creds: creds})
		if cmd == nil {
			t.Fatal("expected commands after sign in")
		}
		if got := m.views[PlaylistsView].feed.Len(); got != 0 {
			t.Errorf("expected the anonymous page dropped after sign in, got %d", got)
		}
		if !m.views[PlaylistsView].feed.State().Loading {
			t.Error("expected the playlists to reload for the signed-in viewer")
		}
		want := services.AsViewer(services.PlaylistsKey("bob"), "bob")
		if got := m.views[PlaylistsView].feed.Controller().Identity(); got != want {
			t.Errorf("expected identity %q, got %q", want, got)
		}

		m.views[PlaylistsView].clear()
		settle(t, m, m.prime(PlaylistsView))
		if got := m.views[PlaylistsView].feed.Len(); got != 4 {
			t.Errorf("expected bob to see his private playlist, got %d playlists", got)
		}
	})

	t.Run("quit releases every handle", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		m := NewModel(context.Background(), seededService(5), Options{ScrollRateLimit: 5 * time.Millisecond})
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
		settle(t, m, m.activate(SearchView))

		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		for _, v := range m.views {
			if v.attached() {
				t.Errorf("expected %v released", v.state)
			}
		}
		for len(m.signals) > 0 {
			<-m.signals
		}
		if msg := m.waitForNearBottom()(); msg != nil {
			t.Errorf("expected no signal after close, got %v", msg)
		}
		m.Close()
	})

	t.Run("liked view asks for a session", func(t *testing.T) {
		m := newTestModel(t, seededService(5), Options{})
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
		settle(t, m, m.activate(SearchView))

		if cmd := m.switchTo(LikedView); cmd != nil {
			t.Error("expected no fetch without a session")
		}
		if !strings.Contains(m.View(), "Sign in to see") {
			t.Error("expected the sign-in hint")
		}
	})

	t.Run("enter opens the owner's playlists", func(t *testing.T) {
		m := newTestModel(t, seededService(5), Options{})
		settle(t, m, m.activate(SearchView))

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != PlaylistsView || m.owner != "bob" {
			t.Fatalf("expected bob's playlists, got view %v owner %q", m.view, m.owner)
		}
		if !m.views[PlaylistsView].feed.State().Loading {
			t.Error("expected the owner's first page to be loading")
		}
	})

	t.Run("signed-in users start on their playlists", func(t *testing.T) {
		svc := seededService(5)
		svc.SeedPlaylists("alice", 2)
		if _, err := svc.SignIn(context.Background(), "alice", "pw"); err != nil {
			t.Fatal(err)
		}
		m := newTestModel(t, svc, Options{})

		if m.view != PlaylistsView || m.owner != "alice" {
			t.Fatalf("expected alice's playlists, got view %v owner %q", m.view, m.owner)
		}
		settle(t, m, m.activate(m.view))
		if got := m.views[PlaylistsView].feed.Len(); got != 2 {
			t.Errorf("expected 2 playlists, got %d", got)
		}
	})
}

func TestModelModals(t *testing.T) {
	t.Run("opening one modal closes the other", func(t *testing.T) {
		m := newTestModel(t, seededService(1), Options{})

		m.Update(runes("s"))
		if !m.Modals().IsOpen(modal.SignIn) {
			t.Fatal("expected sign in open")
		}

		m.openModal(modal.SignUp)
		if m.Modals().IsOpen(modal.SignIn) || !m.Modals().IsOpen(modal.SignUp) {
			t.Fatal("expected only sign up open")
		}
		view := m.View()
		if !strings.Contains(view, "Create an account") || strings.Contains(view, "Sign in") {
			t.Error("expected only the sign up form rendered")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if _, ok := m.Modals().Current(); ok {
			t.Error("expected no modal after esc")
		}
		if m.form != nil {
			t.Error("expected form dropped")
		}
	})

	t.Run("closing a modal that is not open does nothing", func(t *testing.T) {
		m := newTestModel(t, seededService(1), Options{})
		m.openModal(modal.SignUp)

		m.Modals().Close(modal.SignIn)
		if !m.Modals().IsOpen(modal.SignUp) || m.form == nil {
			t.Error("expected sign up to stay open")
		}
	})

	t.Run("sign in submits and saves credentials", func(t *testing.T) {
		svc := seededService(1)
		path := filepath.Join(t.TempDir(), "token.json")
		m := newTestModel(t, svc, Options{TokenPath: path})

		m.Update(runes("s"))
		m.Update(runes("alice"))
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m.Update(runes("secret"))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if !m.form.busy {
			t.Error("expected form busy while submitting")
		}
		settle(t, m, cmd)

		if _, ok := m.Modals().Current(); ok {
			t.Error("expected modal closed after sign in")
		}
		if user, _ := svc.CurrentUser(); user != "alice" {
			t.Errorf("expected alice signed in, got %q", user)
		}
		if m.owner != "alice" {
			t.Errorf("expected owner alice, got %q", m.owner)
		}
		if !strings.Contains(m.notice, "signed in as alice") {
			t.Errorf("unexpected notice %q", m.notice)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("missing fields keep the form open", func(t *testing.T) {
		m := newTestModel(t, seededService(1), Options{})

		m.Update(runes("s"))
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		if cmd != nil {
			t.Error("expected no submission")
		}
		if m.form == nil || m.form.err == nil || !strings.Contains(m.form.err.Error(), "user id") {
			t.Errorf("expected missing user id error, got %v", m.form.err)
		}
		if !m.Modals().IsOpen(modal.SignIn) {
			t.Error("expected sign in to stay open")
		}
	})

	t.Run("edit profile without a session opens sign in", func(t *testing.T) {
		m := newTestModel(t, seededService(1), Options{})

		m.Update(runes("e"))
		if !m.Modals().IsOpen(modal.SignIn) {
			t.Error("expected sign in open")
		}
	})

	t.Run("edit profile updates the header", func(t *testing.T) {
		svc := seededService(1)
		if _, err := svc.SignIn(context.Background(), "alice", "pw"); err != nil {
			t.Fatal(err)
		}
		m := newTestModel(t, svc, Options{})

		m.Update(runes("e"))
		if !m.Modals().IsOpen(modal.ProfileEdit) {
			t.Fatal("expected profile edit open")
		}
		m.Update(runes("Alice"))
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		settle(t, m, cmd)

		if m.header == nil || m.header.Nickname != "Alice" {
			t.Errorf("expected header nickname Alice, got %+v", m.header)
		}
		if m.Modals().IsOpen(modal.ProfileEdit) {
			t.Error("expected profile edit closed")
		}
	})
}

func TestModelActions(t *testing.T) {
	t.Run("copy puts the share link on the clipboard", func(t *testing.T) {
		var copied string
		svc := seededService(3)
		m := newTestModel(t, svc, Options{
			BaseURL:   "http://localhost:8080/",
			Clipboard: func(s string) error { copied = s; return nil },
		})
		settle(t, m, m.activate(SearchView))

		_, cmd := m.Update(runes("c"))
		settle(t, m, cmd)

		want := "http://localhost:8080/api/playlistPage/bob#bob-00"
		if copied != want {
			t.Errorf("expected %q, got %q", want, copied)
		}
		if !strings.HasPrefix(m.notice, "copied") {
			t.Errorf("unexpected notice %q", m.notice)
		}
	})

	t.Run("like without a session asks to sign in", func(t *testing.T) {
		svc := seededService(3)
		m := newTestModel(t, svc, Options{})
		settle(t, m, m.activate(SearchView))

		m.Update(runes("j"))
		_, cmd := m.Update(runes("l"))
		svc.Err = shared.ErrNotAuthenticated
		settle(t, m, cmd)

		if svc.CallCount("Like") != 1 {
			t.Errorf("expected 1 like call, got %d", svc.CallCount("Like"))
		}
		if !m.failed || !strings.Contains(m.notice, "sign in first") {
			t.Errorf("unexpected notice %q", m.notice)
		}
	})

	t.Run("expired notices clear only their own text", func(t *testing.T) {
		m := newTestModel(t, seededService(1), Options{})
		m.setNotice("first", false)
		first := m.noticeID
		m.setNotice("second", false)

		m.Update(noticeExpiredMsg(first))
		if m.notice != "second" {
			t.Errorf("expected second notice to remain, got %q", m.notice)
		}
		m.Update(noticeExpiredMsg(m.noticeID))
		if m.notice != "" {
			t.Errorf("expected notice cleared, got %q", m.notice)
		}
	})
}
