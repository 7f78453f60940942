package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playshare/internal/formatter"
	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/paging"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
)

// SourceKind selects which collection a [Source] reads.
type SourceKind int

const (
	UserPlaylists SourceKind = iota
	UserLiked
	SearchResults
)

// Source names one paginated collection on the API.
type Source struct {
	Kind   SourceKind
	UserID string
	Term   string
	Filter string
}

// PlaylistsOf, LikedBy and SearchFor build the three kinds of [Source].
func PlaylistsOf(userID string) Source { return Source{Kind: UserPlaylists, UserID: userID} }
func LikedBy(userID string) Source     { return Source{Kind: UserLiked, UserID: userID} }
func SearchFor(term, filter string) Source {
	return Source{Kind: SearchResults, Term: term, Filter: filter}
}

// String returns the collection identity, as used by [paging.Feed.Bind].
func (s Source) String() string {
	switch s.Kind {
	case UserLiked:
		return services.LikedKey(s.UserID)
	case SearchResults:
		return services.SearchKey(s.Term, s.Filter)
	default:
		return services.PlaylistsKey(s.UserID)
	}
}

func (s Source) fetcher(svc services.Service) paging.Fetcher[models.Playlist] {
	switch s.Kind {
	case UserLiked:
		return services.LikedFetcher(svc, s.UserID)
	case SearchResults:
		return services.SearchFetcher(svc, s.Term, s.Filter)
	default:
		return services.PlaylistFetcher(svc, s.UserID)
	}
}

// title names the exported collection, preferring the owner's nickname.
func (s Source) title(owner *models.Profile) string {
	name := s.UserID
	if owner != nil && owner.Nickname != "" {
		name = owner.Nickname
	}
	switch s.Kind {
	case UserLiked:
		return fmt.Sprintf("%s's liked playlists", name)
	case SearchResults:
		if s.Term == "" {
			return "All playlists"
		}
		return fmt.Sprintf("Search %s", s.Term)
	default:
		return fmt.Sprintf("%s's playlists", name)
	}
}

func (s Source) validate() error {
	if s.Kind != SearchResults && s.UserID == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	return nil
}

// ExportEngine loads collections through the API and writes them to disk.
type ExportEngine struct {
	svc      services.Service
	pageSize int
	logger   *log.Logger
}

// NewExportEngine creates an engine that pages through svc pageSize items at a time, at most
// [shared.MaxPageSize].
func NewExportEngine(svc services.Service, pageSize int, logger *log.Logger) *ExportEngine {
	if pageSize <= 0 {
		pageSize = paging.DefaultPageSize
	}
	pageSize = min(pageSize, shared.MaxPageSize)
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExportEngine{svc: svc, pageSize: pageSize, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Collect loads every playlist in src, in the order the API returns them.
func (e *ExportEngine) Collect(ctx context.Context, src Source, progress chan<- ProgressUpdate) (*formatter.Collection, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}
	if err := src.validate(); err != nil {
		return nil, err
	}

	var owner *models.Profile
	if src.UserID != "" {
		e.sendProgress(progress, fetchProfileUpdate(src))
		p, err := e.svc.Profile(ctx, src.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch profile %s: %w", src.UserID, err)
		}
		owner = p
	}

	feed := paging.NewFeed(e.pageSize, src.fetcher(e.svc), paging.WithLogger(shared.WithLogger(e.logger, "source", src.String())))
	feed.Bind(src.String(), nil)

	unsubscribe := feed.Controller().Subscribe(func(s paging.State) {
		if !s.Loading {
			e.sendProgress(progress, pageUpdate(src, s.VisibleCount, s.HasMore))
		}
	})
	defer unsubscribe()

	items, err := paging.Drain(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src, err)
	}

	e.logger.Debug("collected", "source", src.String(), "playlists", len(items))
	return &formatter.Collection{Name: src.title(owner), Owner: owner, Playlists: items}, nil
}
