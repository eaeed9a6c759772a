package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the room view.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	send  key.Binding
	next  key.Binding
	prev  key.Binding
	sync  key.Binding
	pause key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send / play selected")),
		next:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next")),
		prev:  key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "previous")),
		sync:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sync time")),
		pause: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "pause/resume")),
		quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.send, k.next, k.sync, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.send},
		{k.next, k.prev, k.sync},
		{k.pause, k.quit},
	}
}
