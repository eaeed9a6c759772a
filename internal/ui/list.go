package ui

import (
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = queueItem{}

// queueItem is one playlist entry in the room queue.
type queueItem struct {
	id      string
	title   string
	artists string
	current bool
}

func (i queueItem) FilterValue() string { return i.id }

func (i queueItem) Title() string {
	title := i.id
	if i.title != "" {
		title = i.title
	}
	if i.current {
		return "▶ " + title
	}
	return title
}

func (i queueItem) Description() string {
	if i.artists != "" {
		return i.artists
	}
	return i.id
}
