package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/playshare/internal/models"
)

var _ list.DefaultItem = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.DefaultItem].
//
// Views render items themselves into a viewport so they can report scroll metrics; the
// list interface keeps the title and description format in one place.
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string {
	if !i.playlist.Public {
		return i.playlist.Title + " (private)"
	}
	return i.playlist.Title
}

func (i playlistItem) Description() string {
	owner := i.playlist.Nickname
	if owner == "" {
		owner = i.playlist.UserID
	}
	desc := fmt.Sprintf("by %s • %d likes", owner, i.playlist.Likes)
	if len(i.playlist.Tags) > 0 {
		desc = fmt.Sprintf("%s • #%s", desc, strings.Join(i.playlist.Tags, " #"))
	}
	return desc
}

// itemLines is the number of rendered lines per item, including the separator.
const itemLines = 3

func (i playlistItem) render(selected bool) string {
	marker, title := "  ", i.Title()
	if selected {
		marker, title = "> ", styles.selected.Render(title)
	}
	desc := styles.As(i.Description(), lipgloss.Color("#626262"))
	return fmt.Sprintf("%s%s\n  %s\n", marker, title, desc)
}

func renderItems(items []models.Playlist, cursor int) string {
	var b strings.Builder
	for idx, p := range items {
		b.WriteString(playlistItem{playlist: p}.render(idx == cursor))
		if idx < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
