package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
)

// Filter orders search results.
type Filter string

const (
	FilterRelevance Filter = ""
	FilterRecent    Filter = "recent"
	FilterPopular   Filter = "popular"
)

// ParseFilter validates a filter query parameter.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterRelevance, FilterRecent, FilterPopular:
		return f, nil
	default:
		return "", fmt.Errorf("%w: filter must be recent or popular, got %q", shared.ErrInvalidArgument, s)
	}
}

// searchable exposes playlist titles and tags to the fuzzy matcher.
type searchable []models.Playlist

func (s searchable) String(i int) string {
	return strings.ToLower(s[i].Title + " " + strings.Join(s[i].Tags, " "))
}

func (s searchable) Len() int {
	return len(s)
}

// Search returns the playlists matching term, best match first, then reorders them by filter.
// An empty term matches everything.
func Search(playlists []models.Playlist, term string, filter Filter) []models.Playlist {
	term = strings.ToLower(strings.TrimSpace(term))

	var results []models.Playlist
	if term == "" {
		results = append(results, playlists...)
	} else {
		for _, m := range fuzzy.FindFrom(term, searchable(playlists)) {
			results = append(results, playlists[m.Index])
		}
	}

	switch filter {
	case FilterRecent:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		})
	case FilterPopular:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Likes > results[j].Likes
		})
	}

	if results == nil {
		results = []models.Playlist{}
	}
	return results
}

func window(items []models.Playlist, offset, limit int) []models.Playlist {
	if offset >= len(items) {
		return []models.Playlist{}
	}
	return items[offset:min(offset+limit, len(items))]
}
