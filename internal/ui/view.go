package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/paging"
	"github.com/desertthunder/playshare/internal/scroll"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	PlaylistsView
	LikedView
	viewCount
)

func (v ViewState) String() string {
	switch v {
	case SearchView:
		return "search"
	case PlaylistsView:
		return "playlists"
	case LikedView:
		return "liked"
	default:
		return "unknown"
	}
}

// feedView is one list view: the feed it pages through, the viewport it renders into and the
// scroll source its sampler reads.
type feedView struct {
	state    ViewState
	feed     *paging.Feed[models.Playlist]
	source   *scroll.ViewportSource
	handle   *scroll.Handle
	viewport viewport.Model
	cursor   int
	empty    string
}

func newFeedView(state ViewState, pageSize int, logger *log.Logger) *feedView {
	return &feedView{
		state:    state,
		feed:     paging.NewFeed[models.Playlist](pageSize, nil, paging.WithLogger(logger)),
		source:   scroll.NewViewportSource(),
		viewport: viewport.New(0, 0),
		empty:    "Nothing here yet.",
	}
}

// attach starts sampling the view's scroll position. A view already attached keeps its handle.
func (v *feedView) attach(onNearBottom func(), opts ...scroll.Option) {
	if v.handle != nil && v.handle.Attached() {
		return
	}
	v.handle = scroll.Attach(v.source, onNearBottom, opts...)
	v.sync()
}

// release stops sampling and drops the loaded items, so the next activation starts from the
// first page. No near-bottom callback for this view runs after it returns.
func (v *feedView) release() {
	if v.handle != nil {
		v.handle.Release()
	}
	v.clear()
	v.source.Clear()
}

func (v *feedView) attached() bool {
	return v.handle != nil && v.handle.Attached()
}

func (v *feedView) bound() bool {
	return v.feed.Controller().Identity() != ""
}

func (v *feedView) resize(width, height int) {
	v.viewport.Width = width
	v.viewport.Height = height
	v.refresh()
}

// refresh re-renders the visible items and publishes the resulting metrics.
func (v *feedView) refresh() {
	items := v.feed.Visible()
	if v.cursor >= len(items) {
		v.cursor = max(len(items)-1, 0)
	}
	if len(items) == 0 {
		v.viewport.SetContent(styles.help.Render(v.empty))
	} else {
		v.viewport.SetContent(renderItems(items, v.cursor))
	}
	v.sync()
}

// sync pushes the viewport's position into the scroll source.
func (v *feedView) sync() {
	if v.viewport.Height <= 0 {
		v.source.Clear()
		return
	}
	v.source.Update(scroll.Metrics{
		ScrollTop:    v.viewport.YOffset,
		ScrollHeight: v.viewport.TotalLineCount(),
		ClientHeight: v.viewport.Height,
	})
}

// move shifts the cursor by delta items and scrolls it into view.
func (v *feedView) move(delta int) {
	n := len(v.feed.Visible())
	if n == 0 {
		return
	}
	v.cursor = min(max(v.cursor+delta, 0), n-1)

	top := v.cursor * itemLines
	switch {
	case top < v.viewport.YOffset:
		v.viewport.SetYOffset(top)
	case top+itemLines > v.viewport.YOffset+v.viewport.Height:
		v.viewport.SetYOffset(top + itemLines - v.viewport.Height)
	}
	v.refresh()
}

// bind points the feed at a collection, returning to the top when it changed.
func (v *feedView) bind(identity string, fetch paging.Fetcher[models.Playlist]) {
	if v.feed.Bind(identity, fetch) {
		v.cursor = 0
		v.viewport.GotoTop()
		v.refresh()
	}
}

// clear drops the loaded items and returns to the top.
func (v *feedView) clear() {
	v.feed.Reset()
	v.cursor = 0
	v.viewport.GotoTop()
	v.refresh()
}

func (v *feedView) selected() (models.Playlist, bool) {
	items := v.feed.Visible()
	if v.cursor < 0 || v.cursor >= len(items) {
		return models.Playlist{}, false
	}
	return items[v.cursor], true
}
