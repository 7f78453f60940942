// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three list views, each backed by one paginated feed:
//  1. [SearchView] : Search public playlists by title or tag, ordered by relevance, recency or likes
//  2. [PlaylistsView] : Browse one user's playlists (the signed-in user's by default)
//  3. [LikedView] : Browse the playlists the signed-in user liked
//
// Each view renders its feed into a viewport. The viewport's metrics are pushed into a
// [scroll.ViewportSource], and a [scroll.Handle] attached while the view is active samples them and
// signals when the reader nears the bottom. Those signals travel over a channel that a waiting
// command turns back into messages, so every paging decision happens inside Update.
//
// Sign in, sign up and profile editing are text-input forms opened through a [modal.Registry]; at
// most one is ever shown. Keyboard navigation uses vim-style bindings with contextual help displayed
// via charmbracelet/bubbles/help.
package ui
