package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playshare/internal/modal"
)

// form is the body of a modal: a titled column of text inputs.
type form struct {
	name   modal.Name
	title  string
	inputs []textinput.Model
	focus  int
	busy   bool
	err    error
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 32
	return in
}

func newPasswordInput() textinput.Model {
	in := newInput("password", 64)
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	return in
}

// newForm builds the form shown for name. Values prefill inputs in order.
func newForm(name modal.Name, values ...string) *form {
	f := &form{name: name}
	switch name {
	case modal.SignIn:
		f.title = "Sign in"
		f.inputs = []textinput.Model{newInput("user id", 32), newPasswordInput()}
	case modal.SignUp:
		f.title = "Create an account"
		f.inputs = []textinput.Model{newInput("user id", 32), newPasswordInput(), newInput("nickname", 32)}
	case modal.ProfileEdit:
		f.title = "Edit profile"
		f.inputs = []textinput.Model{newInput("nickname", 32), newInput("profile image url", 256)}
	}

	for i, v := range values {
		if i < len(f.inputs) {
			f.inputs[i].SetValue(v)
		}
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// values returns the trimmed input values in order.
func (f *form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

// missing names the first required field left empty. The profile image is optional.
func (f *form) missing() string {
	for i, v := range f.values() {
		if f.name == modal.ProfileEdit && i == 1 {
			continue
		}
		if v == "" {
			return f.inputs[i].Placeholder
		}
	}
	return ""
}

func (f *form) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// last reports whether the focused input is the final one.
func (f *form) last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title))
	b.WriteString("\n")
	for _, in := range f.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	switch {
	case f.busy:
		b.WriteString(styles.warn.Render("working..."))
	case f.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", f.err)))
	}
	return styles.modal.Render(strings.TrimRight(b.String(), "\n"))
}
