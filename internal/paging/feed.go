package paging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playshare/internal/models"
)

// Fetcher loads up to limit items of a collection starting at offset.
type Fetcher[T any] func(ctx context.Context, offset, limit int) (models.Page[T], error)

// Result is a settled fetch, tagged with the ticket it was issued under.
type Result[T any] struct {
	ticket    Ticket
	offset    int
	requested int
	page      models.Page[T]
	err       error
}

// Err returns the fetch error, if any.
func (r Result[T]) Err() error {
	return r.err
}

// Generation returns the generation the fetch was issued for.
func (r Result[T]) Generation() uint64 {
	return r.ticket.Generation
}

// Fetch performs one authorised fetch. It is safe to run on another goroutine.
type Fetch[T any] func(ctx context.Context) Result[T]

// Feed is a paginated collection: the items fetched so far plus the [Controller] governing them.
type Feed[T any] struct {
	mu     sync.Mutex
	ctrl   *Controller
	fetch  Fetcher[T]
	items  []T
	logger *log.Logger
}

// FeedOption configures a [Feed].
type FeedOption func(*feedOptions)

type feedOptions struct {
	logger *log.Logger
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *log.Logger) FeedOption {
	return func(o *feedOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewFeed returns an empty feed that loads pageSize items per fetch.
func NewFeed[T any](pageSize int, fetch Fetcher[T], opts ...FeedOption) *Feed[T] {
	o := feedOptions{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Feed[T]{ctrl: New(pageSize), fetch: fetch, logger: o.logger}
}

// Controller returns the feed's controller, for reading state and subscribing.
func (f *Feed[T]) Controller() *Controller {
	return f.ctrl
}

// State returns the controller's current state.
func (f *Feed[T]) State() State {
	return f.ctrl.Snapshot()
}

// Prime starts the first fetch of a generation. It returns nil when items are already loaded
// or a fetch is in flight.
func (f *Feed[T]) Prime() Fetch[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) > 0 {
		return nil
	}
	return f.next()
}

// NearBottom handles a near-bottom signal. It returns nil for [NoOp]; otherwise Loading is
// already set when it returns and the caller must run the fetch and [Feed.Apply] its result.
func (f *Feed[T]) NearBottom() Fetch[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next()
}

func (f *Feed[T]) next() Fetch[T] {
	ticket, ok := f.ctrl.Begin()
	if !ok {
		return nil
	}

	offset, limit, fetch := len(f.items), f.ctrl.PageSize(), f.fetch
	f.logger.Debug("fetch more", "generation", ticket.Generation, "offset", offset, "limit", limit)

	return func(ctx context.Context) Result[T] {
		r := Result[T]{ticket: ticket, offset: offset, requested: limit}
		r.page, r.err = fetch(ctx, offset, limit)
		return r
	}
}

// Apply settles a fetch. Results from an older generation are dropped and reported with false.
func (f *Feed[T]) Apply(r Result[T]) (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.err != nil {
		s, applied := f.ctrl.OnFetchSettled(r.ticket, Failed(r.err))
		if applied {
			f.logger.Warn("fetch failed", "offset", r.offset, "error", r.err)
		}
		return s, applied
	}

	if r.offset != len(f.items) && r.ticket.Generation == f.ctrl.Generation() {
		// only reachable if a caller applied results out of order
		err := fmt.Errorf("result offset %d does not follow %d loaded items", r.offset, len(f.items))
		return f.ctrl.OnFetchSettled(r.ticket, Failed(err))
	}

	items := append(f.items[:len(f.items):len(f.items)], r.page.Items...)
	outcome := Succeeded(len(items), len(r.page.Items), r.requested)
	if r.page.Total != nil {
		outcome = outcome.WithTotal(*r.page.Total)
	}

	s, applied := f.ctrl.OnFetchSettled(r.ticket, outcome)
	if !applied {
		f.logger.Debug("discarded stale fetch", "generation", r.ticket.Generation, "offset", r.offset)
		return s, false
	}
	f.items = items
	return s, true
}

// Visible returns the items the consumer should render.
func (f *Feed[T]) Visible() []T {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.ctrl.Snapshot().VisibleCount
	if n > len(f.items) {
		n = len(f.items)
	}
	out := make([]T, n)
	copy(out, f.items[:n])
	return out
}

// Len returns the number of items fetched in the current generation.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Reset discards the fetched items and starts a new generation.
func (f *Feed[T]) Reset() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	return f.ctrl.Reset()
}

// Bind points the feed at a collection and fetcher. When identity differs from the current
// one the items are discarded and a new generation starts; it reports whether that happened.
func (f *Feed[T]) Bind(identity string, fetch Fetcher[T]) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fetch != nil {
		f.fetch = fetch
	}
	if !f.ctrl.Bind(identity) {
		return false
	}
	f.items = nil
	return true
}

// Drain fetches until the source is exhausted and returns everything loaded.
//
// Fetches run sequentially on the calling goroutine. The first failure stops the drain.
func Drain[T any](ctx context.Context, f *Feed[T]) ([]T, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fetch := f.NearBottom()
		if fetch == nil {
			break
		}

		r := fetch(ctx)
		if _, applied := f.Apply(r); !applied {
			return nil, errors.New("feed was reset while draining")
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out, nil
}
