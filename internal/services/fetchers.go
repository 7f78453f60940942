package services

import (
	"context"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/paging"
)

// PlaylistFetcher pages through userID's playlists.
func PlaylistFetcher(svc Service, userID string) paging.Fetcher[models.Playlist] {
	return func(ctx context.Context, offset, limit int) (models.Page[models.Playlist], error) {
		page, err := svc.Playlists(ctx, userID, offset, limit)
		if err != nil {
			return models.Page[models.Playlist]{}, err
		}
		return models.Page[models.Playlist]{Items: page.Playlists, Total: models.Total(page.Total)}, nil
	}
}

// LikedFetcher pages through the playlists userID liked.
func LikedFetcher(svc Service, userID string) paging.Fetcher[models.Playlist] {
	return func(ctx context.Context, offset, limit int) (models.Page[models.Playlist], error) {
		page, err := svc.Liked(ctx, userID, offset, limit)
		if err != nil {
			return models.Page[models.Playlist]{}, err
		}
		return models.Page[models.Playlist]{Items: page.LikedPlaylists, Total: models.Total(page.Total)}, nil
	}
}

// SearchFetcher pages through the results for term ordered by filter.
func SearchFetcher(svc Service, term, filter string) paging.Fetcher[models.Playlist] {
	return func(ctx context.Context, offset, limit int) (models.Page[models.Playlist], error) {
		page, err := svc.Search(ctx, term, filter, offset, limit)
		if err != nil {
			return models.Page[models.Playlist]{}, err
		}
		return models.Page[models.Playlist]{Items: page.Playlists, Total: models.Total(page.Total)}, nil
	}
}

// FollowingFetcher pages through the users userID follows.
func FollowingFetcher(svc Service, userID string) paging.Fetcher[models.Profile] {
	return func(ctx context.Context, offset, limit int) (models.Page[models.Profile], error) {
		page, err := svc.Following(ctx, userID, offset, limit)
		if err != nil {
			return models.Page[models.Profile]{}, err
		}
		return models.Page[models.Profile]{Items: page.Following, Total: models.Total(page.Total)}, nil
	}
}

// PlaylistsKey, LikedKey and SearchKey name a collection for [paging.Feed.Bind].
func PlaylistsKey(userID string) string { return "playlists:" + userID }
func LikedKey(userID string) string     { return "liked:" + userID }
func SearchKey(term, filter string) string {
	return "search:" + filter + ":" + term
}

// AsViewer scopes key to the signed-in viewer. Private playlists are visible only to their owner,
// so one collection seen by two viewers is bound as two collections. Anonymous keys are unchanged.
func AsViewer(key, viewer string) string {
	if viewer == "" {
		return key
	}
	return key + "@" + viewer
}
