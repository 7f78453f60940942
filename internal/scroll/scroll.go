package scroll

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultThreshold = 5
	DefaultRateLimit = 500 * time.Millisecond
)

// Metrics describes a scrollable viewport. Units are whatever the source measures in
// (pixels in a browser, lines in a terminal).
type Metrics struct {
	ScrollTop    int
	ScrollHeight int
	ClientHeight int
}

// NearBottom reports whether the visible window ends within threshold of the content end.
// Empty content never counts as near the bottom.
func (m Metrics) NearBottom(threshold int) bool {
	if m.ScrollHeight <= 0 || m.ClientHeight <= 0 {
		return false
	}
	return m.ScrollTop+m.ClientHeight >= m.ScrollHeight-threshold
}

// Source is a scrollable viewport.
type Source interface {
	// Metrics returns the current metrics, or false when they are unavailable.
	Metrics() (Metrics, bool)
	// Subscribe calls fn on every scroll event until unsubscribe is called.
	Subscribe(fn func()) (unsubscribe func())
}

type options struct {
	threshold int
	rateLimit time.Duration
	logger    *log.Logger
}

// Option configures [Attach].
type Option func(*options)

// WithThreshold sets how close to the end counts as near the bottom.
func WithThreshold(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.threshold = n
		}
	}
}

// WithRateLimit sets the throttle window.
func WithRateLimit(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.rateLimit = d
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Handle is an attached sampler.
type Handle struct {
	mu          sync.Mutex
	src         Source
	fn          func()
	opts        options
	attached    bool
	pending     bool
	timer       *time.Timer
	unsubscribe func()
	inflight    sync.WaitGroup
}

// Attach registers a throttled near-bottom observer on src.
func Attach(src Source, onNearBottom func(), opts ...Option) *Handle {
	o := options{
		threshold: DefaultThreshold,
		rateLimit: DefaultRateLimit,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handle{src: src, fn: onNearBottom, opts: o, attached: true}

	// hold the lock so an event delivered during Subscribe waits for unsubscribe to be stored
	h.mu.Lock()
	h.unsubscribe = src.Subscribe(h.onScroll)
	h.mu.Unlock()

	return h
}

// Attached reports whether the handle still observes its source.
func (h *Handle) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

// Release detaches the observer. Safe to call more than once.
func (h *Handle) Release() {
	h.mu.Lock()
	if !h.attached {
		h.mu.Unlock()
		return
	}
	h.attached = false
	h.pending = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.inflight.Wait()
}

func (h *Handle) onScroll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.attached || h.pending {
		return
	}
	h.pending = true
	h.timer = time.AfterFunc(h.opts.rateLimit, h.fire)
}

// fire runs on the timer goroutine at the trailing edge of a window.
func (h *Handle) fire() {
	h.mu.Lock()
	if !h.attached || !h.pending {
		h.mu.Unlock()
		return
	}
	h.pending = false
	h.timer = nil

	m, ok := h.src.Metrics()
	near := ok && m.NearBottom(h.opts.threshold)
	if near {
		h.inflight.Add(1)
	}
	h.mu.Unlock()

	if !near {
		return
	}
	defer h.inflight.Done()

	h.opts.logger.Debug("near bottom", "scrollTop", m.ScrollTop, "clientHeight", m.ClientHeight, "scrollHeight", m.ScrollHeight)
	h.fn()
}
