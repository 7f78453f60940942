package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/playshare/internal/modal"
	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/paging"
	"github.com/desertthunder/playshare/internal/scroll"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
)

const (
	noticeTTL = 4 * time.Second
	// lines used by tabs, title, search box, status and help around the viewport
	chromeLines = 8
)

var filters = []string{"", "recent", "popular"}

// Options configures a [Model]. Zero values fall back to the package defaults.
type Options struct {
	PageSize        int
	ScrollThreshold int
	ScrollRateLimit time.Duration
	BaseURL         string
	TokenPath       string
	Logger          *log.Logger
	Clipboard       func(string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	svc     services.Service
	opts    Options
	logger  *log.Logger
	view    ViewState
	views   [viewCount]*feedView
	signals chan ViewState
	done    chan struct{}
	closed  bool

	modals  *modal.Registry
	unwatch func()
	form    *form

	search    textinput.Model
	searching bool
	filter    int
	owner     string
	header    *models.Profile

	width    int
	height   int
	notice   string
	failed   bool
	noticeID int
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. The signed-in user's playlists open first; without a
// session the search view does.
func NewModel(ctx context.Context, svc services.Service, opts Options) *Model {
	if opts.PageSize <= 0 {
		opts.PageSize = paging.DefaultPageSize
	}
	opts.PageSize = min(opts.PageSize, shared.MaxPageSize)
	if opts.ScrollThreshold <= 0 {
		opts.ScrollThreshold = scroll.DefaultThreshold
	}
	if opts.ScrollRateLimit <= 0 {
		opts.ScrollRateLimit = scroll.DefaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	search := textinput.New()
	search.Placeholder = "search titles and tags"
	search.Prompt = "/ "
	search.CharLimit = 64

	m := &Model{
		ctx:     ctx,
		svc:     svc,
		opts:    opts,
		logger:  opts.Logger,
		signals: make(chan ViewState, int(viewCount)),
		done:    make(chan struct{}),
		modals:  modal.NewRegistry(),
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	for v := range viewCount {
		m.views[v] = newFeedView(v, opts.PageSize, shared.WithLogger(opts.Logger, "view", v.String()))
	}
	m.views[PlaylistsView].empty = "Sign in, or press enter on a playlist to browse its owner."
	m.views[LikedView].empty = "Sign in to see the playlists you liked."

	if user, ok := svc.CurrentUser(); ok {
		m.owner = user
		m.view = PlaylistsView
	}
	m.unwatch = m.modals.Subscribe(m.onModalChange)
	return m
}

// Modals exposes the registry the model opens its forms through.
func (m *Model) Modals() *modal.Registry {
	return m.modals
}

// Init attaches the first view and starts listening for near-bottom signals.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForNearBottom(), m.activate(m.view)}
	if m.owner != "" {
		cmds = append(cmds, m.loadProfile(m.owner))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		for _, v := range m.views {
			v.resize(msg.Width, max(msg.Height-chromeLines, 1))
		}
		return m, nil

	case tea.KeyMsg:
		if _, ok := m.modals.Current(); ok && m.form != nil {
			return m, m.handleFormKeys(msg)
		}
		if m.searching {
			return m, m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)

	case tea.MouseMsg:
		v := m.views[m.view]
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		v.sync()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m, m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgNearBottom:
		return tea.Batch(m.handleNearBottom(msg.data.(ViewState)), m.waitForNearBottom())
	case MsgPageFetched:
		return m.applyPage(msg.data.(pageFetched))
	case MsgProfileLoaded:
		d := msg.data.(profileLoaded)
		if d.err != nil {
			return m.setNotice(fmt.Sprintf("couldn't load profile: %v", d.err), true)
		}
		if d.profile.UserID == m.owner {
			m.header = d.profile
		}
		return nil
	case MsgFormSubmitted:
		return m.applyForm(msg.data.(formSubmitted))
	case MsgActionDone:
		d := msg.data.(actionDone)
		if d.err != nil {
			return m.setNotice(describe(d.err), true)
		}
		return m.setNotice(d.notice, false)
	case MsgNoticeExpired:
		if msg.data.(int) == m.noticeID {
			m.notice, m.failed = "", false
		}
	}
	return nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.views[m.view]
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.switchTo((m.view + 1) % viewCount)
	case key.Matches(msg, m.keys.prev):
		return m, m.switchTo((m.view + viewCount - 1) % viewCount)
	case key.Matches(msg, m.keys.up):
		v.move(-1)
	case key.Matches(msg, m.keys.down):
		v.move(1)
	case key.Matches(msg, m.keys.search):
		cmd := m.switchTo(SearchView)
		m.searching = true
		return m, tea.Batch(cmd, m.search.Focus())
	case key.Matches(msg, m.keys.order):
		if m.view != SearchView {
			return m, nil
		}
		m.filter = (m.filter + 1) % len(filters)
		return m, m.prime(SearchView)
	case key.Matches(msg, m.keys.enter):
		if p, ok := v.selected(); ok {
			return m, m.openOwner(p.UserID)
		}
	case key.Matches(msg, m.keys.like):
		if p, ok := v.selected(); ok {
			return m, m.like(p)
		}
	case key.Matches(msg, m.keys.follow):
		if p, ok := v.selected(); ok {
			return m, m.follow(p.UserID)
		}
	case key.Matches(msg, m.keys.copy):
		if p, ok := v.selected(); ok {
			return m, m.copyLink(p)
		}
	case key.Matches(msg, m.keys.refresh):
		v.clear()
		return m, m.prime(m.view)
	case key.Matches(msg, m.keys.signIn):
		m.openModal(modal.SignIn)
	case key.Matches(msg, m.keys.signUp):
		m.openModal(modal.SignUp)
	case key.Matches(msg, m.keys.edit):
		return m, m.editProfile()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		v.sync()
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m.prime(SearchView)
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return nil
	case tea.KeyCtrlC:
		m.Close()
		return tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	switch msg.Type {
	case tea.KeyEsc:
		m.modals.Close(f.name)
		return nil
	case tea.KeyCtrlC:
		m.Close()
		return tea.Quit
	case tea.KeyTab, tea.KeyDown:
		return f.move(1)
	case tea.KeyShiftTab, tea.KeyUp:
		return f.move(-1)
	case tea.KeyEnter:
		if !f.last() {
			return f.move(1)
		}
		return m.submit(f)
	}
	if f.busy {
		return nil
	}
	return f.update(msg)
}

// switchTo deactivates the current view and activates next.
func (m *Model) switchTo(next ViewState) tea.Cmd {
	if next == m.view && m.views[next].attached() {
		return nil
	}
	m.views[m.view].release()
	return m.activate(next)
}

// activate attaches the view's scroll handle and loads its first page if needed.
func (m *Model) activate(view ViewState) tea.Cmd {
	m.view = view
	m.views[view].attach(func() { m.signal(view) },
		scroll.WithThreshold(m.opts.ScrollThreshold),
		scroll.WithRateLimit(m.opts.ScrollRateLimit),
		scroll.WithLogger(shared.WithLogger(m.logger, "view", view.String())),
	)
	return m.prime(view)
}

// bind points view at the collection it should show for the current session, search and
// owner. It reports false when there is nothing to show yet.
func (m *Model) bind(view ViewState) bool {
	v := m.views[view]
	user, signedIn := m.svc.CurrentUser()
	switch view {
	case SearchView:
		term, filter := strings.TrimSpace(m.search.Value()), filters[m.filter]
		v.bind(services.AsViewer(services.SearchKey(term, filter), user), services.SearchFetcher(m.svc, term, filter))
	case PlaylistsView:
		if m.owner == "" {
			return false
		}
		v.bind(services.AsViewer(services.PlaylistsKey(m.owner), user), services.PlaylistFetcher(m.svc, m.owner))
	case LikedView:
		if !signedIn {
			return false
		}
		v.bind(services.AsViewer(services.LikedKey(user), user), services.LikedFetcher(m.svc, user))
	}
	return true
}

// prime binds view and starts its first fetch when nothing is loaded.
func (m *Model) prime(view ViewState) tea.Cmd {
	if !m.bind(view) {
		return nil
	}
	return m.run(view, m.views[view].feed.Prime())
}

func (m *Model) run(view ViewState, fetch paging.Fetch[models.Playlist]) tea.Cmd {
	if fetch == nil {
		return nil
	}
	return func() tea.Msg {
		return pageFetchedMsg(view, fetch(m.ctx))
	}
}

// signal runs on the sampler's timer goroutine and must not block.
func (m *Model) signal(view ViewState) {
	select {
	case m.signals <- view:
	default:
	}
}

func (m *Model) waitForNearBottom() tea.Cmd {
	return func() tea.Msg {
		select {
		case view := <-m.signals:
			return nearBottomMsg(view)
		case <-m.done:
			return nil
		case <-m.ctx.Done():
			return nil
		}
	}
}

// handleNearBottom asks the active view's feed for the next page. Signals from a view that
// has since been deactivated are ignored.
func (m *Model) handleNearBottom(view ViewState) tea.Cmd {
	if m.closed || view != m.view {
		return nil
	}
	return m.run(view, m.views[view].feed.NearBottom())
}

func (m *Model) applyPage(d pageFetched) tea.Cmd {
	v := m.views[d.view]
	s, applied := v.feed.Apply(d.result)
	if !applied {
		return nil
	}
	m.logger.Debug("page settled", "view", d.view, "visible", s.VisibleCount, "more", s.HasMore)
	v.refresh()
	if err := d.result.Err(); err != nil {
		return m.setNotice(fmt.Sprintf("couldn't load more %s: %s", d.view, describe(err)), true)
	}
	return nil
}

// openModal opens name through the registry and builds its form.
func (m *Model) openModal(name modal.Name, values ...string) {
	m.modals.Open(name)
	if m.modals.IsOpen(name) {
		m.form = newForm(name, values...)
	}
}

// onModalChange is the registry observer; it drops the form once no modal is open.
func (m *Model) onModalChange(name modal.Name) {
	m.logger.Debug("modal changed", "open", name)
	if _, ok := m.modals.Current(); !ok {
		m.form = nil
	}
}

func (m *Model) editProfile() tea.Cmd {
	user, ok := m.svc.CurrentUser()
	if !ok {
		m.openModal(modal.SignIn)
		return m.setNotice("sign in to edit your profile", true)
	}
	if m.header != nil && m.header.UserID == user {
		m.openModal(modal.ProfileEdit, m.header.Nickname, m.header.ProfileImage)
		return nil
	}
	m.openModal(modal.ProfileEdit)
	return nil
}

func (m *Model) submit(f *form) tea.Cmd {
	if f.busy {
		return nil
	}
	if field := f.missing(); field != "" {
		f.err = fmt.Errorf("%w: %s", shared.ErrMissingArgument, field)
		return nil
	}
	f.busy, f.err = true, nil

	values, name := f.values(), f.name
	return func() tea.Msg {
		switch name {
		case modal.SignIn:
			creds, err := m.signIn(values[0], values[1])
			return formSubmittedMsg(name, creds, nil, err)
		case modal.SignUp:
			p, err := m.svc.SignUp(m.ctx, values[0], values[1], values[2])
			if err != nil {
				return formSubmittedMsg(name, nil, nil, err)
			}
			creds, err := m.signIn(values[0], values[1])
			return formSubmittedMsg(name, creds, p, err)
		default:
			p, err := m.svc.UpdateProfile(m.ctx, values[0], values[1])
			return formSubmittedMsg(name, nil, p, err)
		}
	}
}

func (m *Model) signIn(userID, password string) (*services.Credentials, error) {
	creds, err := m.svc.SignIn(m.ctx, userID, password)
	if err != nil {
		return nil, err
	}
	if m.opts.TokenPath != "" {
		if err := services.SaveCredentials(m.opts.TokenPath, creds); err != nil {
			m.logger.Warn("could not save credentials", "path", m.opts.TokenPath, "error", err)
		}
	}
	return creds, nil
}

func (m *Model) applyForm(d formSubmitted) tea.Cmd {
	if m.form != nil && m.form.name == d.name {
		m.form.busy = false
		if d.err != nil {
			m.form.err = errors.New(describe(d.err))
			return nil
		}
	}
	if d.err != nil {
		return m.setNotice(describe(d.err), true)
	}

	m.modals.Close(d.name)
	switch d.name {
	case modal.SignIn, modal.SignUp:
		if m.owner == "" {
			m.owner = d.creds.UserID
		}
		cmds := []tea.Cmd{
			m.setNotice("signed in as "+d.creds.UserID, false),
			m.prime(m.view),
			m.loadProfile(m.owner),
		}
		return tea.Batch(cmds...)
	default:
		if d.profile.UserID == m.owner {
			m.header = d.profile
			m.views[PlaylistsView].clear()
		}
		return tea.Batch(m.setNotice("profile updated", false), m.prime(m.view))
	}
}

// openOwner shows userID's playlists.
func (m *Model) openOwner(userID string) tea.Cmd {
	if userID != m.owner {
		m.owner, m.header = userID, nil
	}
	return tea.Batch(m.switchTo(PlaylistsView), m.prime(PlaylistsView), m.loadProfile(userID))
}

func (m *Model) loadProfile(userID string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.svc.Profile(m.ctx, userID)
		return profileLoadedMsg(p, err)
	}
}

func (m *Model) like(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.Like(m.ctx, p.ID)
		return actionDoneMsg(fmt.Sprintf("liked %q", p.Title), err)
	}
}

func (m *Model) follow(userID string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.Follow(m.ctx, userID)
		return actionDoneMsg("following "+userID, err)
	}
}

func (m *Model) copyLink(p models.Playlist) tea.Cmd {
	link := ShareLink(m.opts.BaseURL, p)
	return func() tea.Msg {
		if err := m.opts.Clipboard(link); err != nil {
			return actionDoneMsg("", fmt.Errorf("copy link: %w", err))
		}
		return actionDoneMsg("copied "+link, nil)
	}
}

// ShareLink returns the URL of the page that lists p, anchored at p.
func ShareLink(baseURL string, p models.Playlist) string {
	return fmt.Sprintf("%s/api/playlistPage/%s#%s", strings.TrimRight(baseURL, "/"), p.UserID, p.ID)
}

// setNotice shows a transient status line and schedules its removal.
func (m *Model) setNotice(text string, failed bool) tea.Cmd {
	m.noticeID++
	m.notice, m.failed = text, failed
	id := m.noticeID
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg(id) })
}

// describe turns service errors into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return "sign in first (press s)"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "wrong user id or password"
	case errors.Is(err, shared.ErrAlreadyExists):
		return "that user id is taken"
	default:
		return err.Error()
	}
}

// Close releases every scroll handle and stops listening for signals. Safe to call more than once.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, v := range m.views {
		v.release()
	}
	if m.unwatch != nil {
		m.unwatch()
	}
	close(m.done)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if name, ok := m.modals.Current(); ok && m.form != nil && m.form.name == name {
		body := lipgloss.JoinVertical(lipgloss.Left, m.form.view(), "", m.help.ShortHelpView(m.keys.formKeys()))
		if m.width == 0 || m.height == 0 {
			return body
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}

	v := m.views[m.view]
	sections := []string{m.renderTabs(), m.renderTitle()}
	if m.view == SearchView {
		sections = append(sections, m.search.View())
	}
	sections = append(sections, v.viewport.View(), m.renderStatus(), m.help.View(m.keys))
	return strings.Join(sections, "\n")
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for view := range viewCount {
		if view == m.view {
			tabs = append(tabs, styles.active.Render(view.String()))
		} else {
			tabs = append(tabs, styles.tab.Render(view.String()))
		}
	}
	user, ok := m.svc.CurrentUser()
	if !ok {
		user = "not signed in"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, styles.help.Render("  "+user))...)
}

func (m *Model) renderTitle() string {
	switch m.view {
	case SearchView:
		order := filters[m.filter]
		if order == "" {
			order = "relevance"
		}
		return styles.title.Render(fmt.Sprintf("Search playlists (by %s)", order))
	case PlaylistsView:
		if m.header != nil {
			return styles.title.Render(fmt.Sprintf("%s's playlists • %d followers • %d following",
				m.header.Nickname, m.header.Followers, m.header.Following))
		}
		if m.owner != "" {
			return styles.title.Render(m.owner + "'s playlists")
		}
		return styles.title.Render("Playlists")
	default:
		return styles.title.Render("Liked playlists")
	}
}

func (m *Model) renderStatus() string {
	if m.notice != "" {
		if m.failed {
			return styles.err.Render(m.notice)
		}
		return styles.ok.Render(m.notice)
	}
	v := m.views[m.view]
	if !v.bound() {
		return ""
	}
	s := v.feed.State()
	switch {
	case s.Loading:
		return m.spinner.View() + " loading..."
	case !s.HasMore:
		return styles.help.Render(fmt.Sprintf("%d playlists • end of list", v.feed.Len()))
	default:
		return styles.help.Render(fmt.Sprintf("%d playlists", v.feed.Len()))
	}
}
