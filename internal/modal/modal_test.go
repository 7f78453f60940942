package modal

import (
	"math/rand"
	"testing"
)

func openCount(r *Registry) int {
	n := 0
	for _, name := range Names() {
		if r.IsOpen(name) {
			n++
		}
	}
	return n
}

func TestRegistry(t *testing.T) {
	t.Run("starts closed", func(t *testing.T) {
		r := NewRegistry()
		if _, ok := r.Current(); ok {
			t.Error("expected no modal open on a new registry")
		}
		if openCount(r) != 0 {
			t.Error("expected every IsOpen to be false")
		}
	})

	t.Run("opening another modal closes the first", func(t *testing.T) {
		r := NewRegistry()
		r.Open(SignIn)
		r.Open(SignUp)

		if r.IsOpen(SignIn) {
			t.Error("expected signin to be closed after opening signup")
		}
		if !r.IsOpen(SignUp) {
			t.Error("expected signup to be open")
		}
	})

	t.Run("open is idempotent", func(t *testing.T) {
		r := NewRegistry()
		r.Open(ProfileEdit)
		r.Open(ProfileEdit)

		if cur, ok := r.Current(); !ok || cur != ProfileEdit {
			t.Errorf("expected profileEdit open, got %v (%v)", cur, ok)
		}
	})

	t.Run("close is scoped by name", func(t *testing.T) {
		r := NewRegistry()
		r.Open(SignUp)
		r.Close(SignIn)

		if !r.IsOpen(SignUp) {
			t.Error("closing a modal that is not open must not dismiss the open one")
		}

		r.Close(SignUp)
		if _, ok := r.Current(); ok {
			t.Error("expected no modal open after closing the open one")
		}
	})

	t.Run("invalid names are ignored", func(t *testing.T) {
		r := NewRegistry()
		r.Open(SignIn)
		r.Open(Name(42))
		r.Close(Name(0))

		if !r.IsOpen(SignIn) {
			t.Error("invalid names must not change state")
		}
		if r.IsOpen(Name(42)) {
			t.Error("invalid names are never open")
		}
	})

	t.Run("observers see changes only", func(t *testing.T) {
		r := NewRegistry()
		var seen []Name
		unsubscribe := r.Subscribe(func(n Name) { seen = append(seen, n) })

		r.Open(SignIn)
		r.Open(SignIn)
		r.Close(SignUp)
		r.Open(SignUp)
		r.Close(SignUp)
		unsubscribe()
		r.Open(ProfileEdit)

		want := []Name{SignIn, SignUp, none}
		if len(seen) != len(want) {
			t.Fatalf("expected %v, got %v", want, seen)
		}
		for i := range want {
			if seen[i] != want[i] {
				t.Errorf("notification %d: expected %v, got %v", i, want[i], seen[i])
			}
		}
	})

	t.Run("at most one modal open for random sequences", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		r := NewRegistry()
		names := Names()

		for i := 0; i < 1000; i++ {
			name := names[rng.Intn(len(names))]
			before, _ := r.Current()

			if rng.Intn(2) == 0 {
				r.Open(name)
			} else {
				r.Close(name)
				if before != name {
					if after, _ := r.Current(); after != before {
						t.Fatalf("step %d: close(%v) changed open modal from %v to %v", i, name, before, after)
					}
				}
			}

			if n := openCount(r); n > 1 {
				t.Fatalf("step %d: %d modals open", i, n)
			}
		}
	})
}

func TestNameString(t *testing.T) {
	tt := []struct {
		name Name
		want string
	}{
		{SignIn, "signin"},
		{SignUp, "signup"},
		{ProfileEdit, "profileEdit"},
		{Name(0), ""},
	}
	for _, tc := range tt {
		if got := tc.name.String(); got != tc.want {
			t.Errorf("Name(%d).String() = %q, want %q", int(tc.name), got, tc.want)
		}
	}
}
