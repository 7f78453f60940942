package scroll

import "sync"

// ViewportSource is a [Source] whose metrics are pushed by the owner of the viewport.
//
// The UI loop calls Update after every change to its viewport; subscribers are notified
// whenever the metrics differ from the previous ones. Safe for concurrent use.
type ViewportSource struct {
	mu     sync.Mutex
	m      Metrics
	ok     bool
	subs   map[int]func()
	nextID int
}

// NewViewportSource returns a source with no metrics available yet.
func NewViewportSource() *ViewportSource {
	return &ViewportSource{subs: make(map[int]func())}
}

// Metrics implements [Source].
func (s *ViewportSource) Metrics() (Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m, s.ok
}

// Subscribe implements [Source].
func (s *ViewportSource) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Subscribers returns the number of registered subscribers.
func (s *ViewportSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Update stores m and emits a scroll event if it changed.
func (s *ViewportSource) Update(m Metrics) {
	s.mu.Lock()
	if s.ok && s.m == m {
		s.mu.Unlock()
		return
	}
	s.m, s.ok = m, true
	fns := s.snapshot()
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Clear marks the metrics unavailable, e.g. while the viewport is not rendered.
func (s *ViewportSource) Clear() {
	s.mu.Lock()
	s.m, s.ok = Metrics{}, false
	s.mu.Unlock()
}

func (s *ViewportSource) snapshot() []func() {
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}
