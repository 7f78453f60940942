package paging

import (
	"sync"
)

// DefaultPageSize is the number of items requested per fetch.
const DefaultPageSize = 12

// State is the read model of a paginated collection.
type State struct {
	VisibleCount int  // items the consumer renders from the head of its list
	Loading      bool // a fetch is outstanding
	HasMore      bool // the source may still have unseen items
}

// Initialize returns the state of a collection nothing has been fetched for.
func Initialize(pageSize int) State {
	return State{VisibleCount: pageSize, Loading: false, HasMore: true}
}

// Action is the decision taken for a near-bottom signal.
type Action int

const (
	NoOp Action = iota
	FetchMore
)

func (a Action) String() string {
	switch a {
	case FetchMore:
		return "fetch_more"
	default:
		return "noop"
	}
}

// Ticket authorises one fetch and tags it with the generation it was issued for.
type Ticket struct {
	Generation uint64
}

// Outcome is the result of a fetch as far as the controller is concerned.
type Outcome struct {
	ok        bool
	visible   int
	fetched   int
	requested int
	total     *int
	err       error
}

// Succeeded reports a fetch that asked for requested items, received fetched of them, and
// brought the visible count to visible.
func Succeeded(visible, fetched, requested int) Outcome {
	return Outcome{ok: true, visible: visible, fetched: fetched, requested: requested}
}

// WithTotal attaches the source's total collection size to a successful outcome.
func (o Outcome) WithTotal(total int) Outcome {
	o.total = &total
	return o
}

// Failed reports a fetch that did not complete.
func Failed(err error) Outcome {
	return Outcome{err: err}
}

// Err returns the failure cause, if any.
func (o Outcome) Err() error {
	return o.err
}

// exhausted reports whether the source signalled that nothing is left.
func (o Outcome) exhausted() bool {
	if o.fetched < o.requested {
		return true
	}
	return o.total != nil && o.visible >= *o.total
}

// Controller owns the paging state of one collection. Safe for concurrent use.
type Controller struct {
	mu         sync.Mutex
	pageSize   int
	state      State
	generation uint64
	identity   string
	observers  map[int]func(State)
	nextID     int
}

// New returns a controller in the initial state. Non-positive page sizes use [DefaultPageSize].
func New(pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		pageSize:  pageSize,
		state:     Initialize(pageSize),
		observers: make(map[int]func(State)),
	}
}

// PageSize returns the number of items requested per fetch.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Identity returns the collection the controller is bound to.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// OnNearBottom decides whether a near-bottom signal should fetch more items.
func (c *Controller) OnNearBottom() Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decide()
}

func (c *Controller) decide() Action {
	if c.state.Loading || !c.state.HasMore {
		return NoOp
	}
	return FetchMore
}

// Begin takes the [FetchMore] decision and marks the controller loading in one step.
//
// It returns false when the decision is [NoOp]. The returned ticket must be passed to
// [Controller.OnFetchSettled] once the fetch completes.
func (c *Controller) Begin() (Ticket, bool) {
	c.mu.Lock()
	if c.decide() == NoOp {
		c.mu.Unlock()
		return Ticket{}, false
	}
	c.state.Loading = true
	t := Ticket{Generation: c.generation}
	c.notify()
	return t, true
}

// OnFetchSettled applies a fetch outcome.
//
// Success sets the visible count, clears Loading and derives HasMore from the source's signal.
// Failure clears Loading and leaves the rest untouched so the next near-bottom signal retries.
// Outcomes for an older generation are discarded and reported with false.
func (c *Controller) OnFetchSettled(t Ticket, o Outcome) (State, bool) {
	c.mu.Lock()
	if t.Generation != c.generation {
		s := c.state
		c.mu.Unlock()
		return s, false
	}

	c.state.Loading = false
	if o.ok {
		c.state.VisibleCount = o.visible
		c.state.HasMore = !o.exhausted()
	}
	s := c.state
	c.notify()
	return s, true
}

// Reset starts a new generation in the initial state.
func (c *Controller) Reset() State {
	c.mu.Lock()
	c.reset()
	s := c.state
	c.notify()
	return s
}

func (c *Controller) reset() {
	c.generation++
	c.state = Initialize(c.pageSize)
}

// Bind associates the controller with a collection identity, resetting when it changes.
// It reports whether a reset happened.
func (c *Controller) Bind(identity string) bool {
	c.mu.Lock()
	if identity == c.identity {
		c.mu.Unlock()
		return false
	}
	c.identity = identity
	c.reset()
	c.notify()
	return true
}

// Subscribe registers fn to receive a snapshot after every state change.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// notify must be called with c.mu held; it releases the lock before calling observers.
func (c *Controller) notify() {
	s := c.state
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
