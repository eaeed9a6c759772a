package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/room"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgEventReceived MsgKind = iota
	MsgDisconnected
	MsgSent
	MsgLoaded
	MsgResolved
	MsgTick
)

// eventReceivedMsg is the constructor for [MsgEventReceived]
func eventReceivedMsg(e room.Event) Msg {
	return Msg{kind: MsgEventReceived, data: e}
}

// disconnectedMsg is the constructor for [MsgDisconnected]
func disconnectedMsg() Msg {
	return Msg{kind: MsgDisconnected}
}

// sentMsg is the constructor for [MsgSent]
func sentMsg(kind room.Kind, err error) Msg {
	return Msg{
		kind: MsgSent,
		data: struct {
			kind room.Kind
			err  error
		}{kind, err},
	}
}

// loadedMsg is the constructor for [MsgLoaded], reported after the local player was driven.
func loadedMsg(target string, err error) Msg {
	return Msg{
		kind: MsgLoaded,
		data: struct {
			target string
			err    error
		}{target, err},
	}
}

// resolvedMsg is the constructor for [MsgResolved]
func resolvedMsg(id string, meta *models.TrackMetadata, err error) Msg {
	return Msg{
		kind: MsgResolved,
		data: struct {
			id   string
			meta *models.TrackMetadata
			err  error
		}{id, meta, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
