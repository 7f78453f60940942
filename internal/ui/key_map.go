package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next    key.Binding
	prev    key.Binding
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	search  key.Binding
	order   key.Binding
	like    key.Binding
	follow  key.Binding
	copy    key.Binding
	refresh key.Binding
	signIn  key.Binding
	signUp  key.Binding
	edit    key.Binding
	back    key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		prev:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open user")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		order:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		like:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		follow:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy link")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		signIn:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign in")),
		signUp:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "sign up")),
		edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.up, k.down, k.enter, k.like, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.up, k.down},
		{k.enter, k.search, k.order, k.refresh},
		{k.like, k.follow, k.copy},
		{k.signIn, k.signUp, k.edit, k.back},
		{k.help, k.quit},
	}
}

// formKeys are shown while a modal form has focus.
func (k keyMap) formKeys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		k.back,
	}
}
