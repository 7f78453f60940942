// Package modal tracks which overlay dialog is visible.
//
// A [Registry] holds at most one open [Name]. Opening a modal closes whichever one was open, and
// closing is scoped by name so a stale close from one dialog never dismisses another.
package modal

import "sync"

// Name identifies one of the application's modals. The zero value means no modal.
type Name int

const (
	none Name = iota
	SignIn
	SignUp
	ProfileEdit
	endNames
)

// Names lists every modal in declaration order.
func Names() []Name {
	return []Name{SignIn, SignUp, ProfileEdit}
}

// Valid reports whether n is one of the declared modals.
func (n Name) Valid() bool {
	return n > none && n < endNames
}

func (n Name) String() string {
	switch n {
	case SignIn:
		return "signin"
	case SignUp:
		return "signup"
	case ProfileEdit:
		return "profileEdit"
	default:
		return ""
	}
}

// Registry is the single source of truth for the open modal.
//
// Construct one per application with [NewRegistry] and pass it to every view that opens or
// closes dialogs.
type Registry struct {
	mu        sync.Mutex
	open      Name
	observers map[int]func(Name)
	nextID    int
}

// NewRegistry returns a registry with no modal open.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[int]func(Name))}
}

// Open makes name the only open modal. Invalid names are ignored.
func (r *Registry) Open(name Name) {
	if !name.Valid() {
		return
	}
	r.set(func(cur Name) (Name, bool) { return name, cur != name })
}

// Close dismisses name if, and only if, it is the open modal.
func (r *Registry) Close(name Name) {
	r.set(func(cur Name) (Name, bool) {
		if cur != name || !name.Valid() {
			return cur, false
		}
		return none, true
	})
}

// IsOpen reports whether name is the open modal.
func (r *Registry) IsOpen(name Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return name.Valid() && r.open == name
}

// Current returns the open modal, if any.
func (r *Registry) Current() (Name, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open, r.open != none
}

// Subscribe registers fn to receive the open modal after every change. The zero [Name] is
// delivered when the last modal closes.
func (r *Registry) Subscribe(fn func(Name)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// set applies a transition and notifies observers outside the lock when it changed state.
func (r *Registry) set(next func(cur Name) (Name, bool)) {
	r.mu.Lock()
	name, changed := next(r.open)
	if !changed {
		r.mu.Unlock()
		return
	}
	r.open = name
	fns := make([]func(Name), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(name)
	}
}
