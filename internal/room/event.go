// package room holds the broadcast events exchanged inside a room and the reducer that
// folds them into the rendered playback state.
package room

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/colisten/internal/shared"
)

// Kind is the wire name of an event.
type Kind string

const (
	KindPlay          Kind = "play"
	KindPlaySpotify   Kind = "play-spotify"
	KindSyncTime      Kind = "sync-time"
	KindChat          Kind = "chat"
	KindSpotifyPause  Kind = "spotify-pause"
	KindSpotifyResume Kind = "spotify-resume"
	KindSnapshot      Kind = "snapshot" // server to client only
)

var (
	ErrUnknownEvent   = fmt.Errorf("%w: unknown event", shared.ErrInvalidInput)
	ErrMalformedEvent = fmt.Errorf("%w: malformed event", shared.ErrInvalidInput)
	ErrEmptyMessage   = fmt.Errorf("%w: empty chat message", shared.ErrInvalidInput)
)

// Event is one of [Play], [PlaySpotify], [SyncTime], [Chat], [SpotifyPause],
// [SpotifyResume] or [Snapshot].
type Event interface {
	Kind() Kind
	event()
}

// Play switches a YouTube room to VideoID. Playlist is the full queue as known by the sender.
type Play struct {
	VideoID  string   `json:"videoId"`
	Playlist []string `json:"playlist"`
	Time     *float64 `json:"time,omitempty"`
}

// PlaySpotify switches a Spotify room to URI.
type PlaySpotify struct {
	URI      string   `json:"uri"`
	Playlist []string `json:"playlist"`
	Time     *float64 `json:"time,omitempty"`
}

// SyncTime carries a playback position in seconds, used as a one-shot seek hint.
type SyncTime struct {
	Time float64 `json:"time"`
}

// Chat is a chat line. Emoji travel as literal characters.
type Chat struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type SpotifyPause struct{}

type SpotifyResume struct{}

// Snapshot carries the reduced state of a room to a participant that just joined.
type Snapshot struct {
	State State `json:"state"`
}

func (Play) Kind() Kind          { return KindPlay }
func (PlaySpotify) Kind() Kind   { return KindPlaySpotify }
func (SyncTime) Kind() Kind      { return KindSyncTime }
func (Chat) Kind() Kind          { return KindChat }
func (SpotifyPause) Kind() Kind  { return KindSpotifyPause }
func (SpotifyResume) Kind() Kind { return KindSpotifyResume }
func (Snapshot) Kind() Kind      { return KindSnapshot }

func (Play) event()          {}
func (PlaySpotify) event()   {}
func (SyncTime) event()      {}
func (Chat) event()          {}
func (SpotifyPause) event()  {}
func (SpotifyResume) event() {}
func (Snapshot) event()      {}

// Envelope is the wire shape of every event.
type Envelope struct {
	Event   Kind            `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps e in an [Envelope] and marshals it.
func Encode(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case Play:
		ev.Playlist = nonNil(ev.Playlist)
		e = ev
	case PlaySpotify:
		ev.Playlist = nonNil(ev.Playlist)
		e = ev
	case Snapshot:
		ev.State.Playlist = nonNil(ev.State.Playlist)
		e = ev
	case nil:
		return nil, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Event: e.Kind(), Payload: payload})
}

// Decode parses and validates an [Envelope].
//
// Unknown event names and envelopes that are not JSON objects are rejected. A payload that
// does not fit its event's shape is replaced by the zero payload, and missing playlists
// decode as empty lists. Chat lines with no visible text are rejected.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Event {
	case KindPlay:
		var p Play
		decodePayload(env.Payload, &p)
		p.Playlist = nonNil(p.Playlist)
		return p, nil
	case KindPlaySpotify:
		var p PlaySpotify
		decodePayload(env.Payload, &p)
		p.Playlist = nonNil(p.Playlist)
		return p, nil
	case KindSyncTime:
		var p SyncTime
		decodePayload(env.Payload, &p)
		return p, nil
	case KindChat:
		var p Chat
		decodePayload(env.Payload, &p)
		if strings.TrimSpace(p.Message) == "" {
			return nil, ErrEmptyMessage
		}
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = "Anonymous"
		}
		return p, nil
	case KindSpotifyPause:
		return SpotifyPause{}, nil
	case KindSpotifyResume:
		return SpotifyResume{}, nil
	case KindSnapshot:
		var p Snapshot
		decodePayload(env.Payload, &p)
		p.State.Playlist = nonNil(p.State.Playlist)
		return p, nil
	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodePayload fills dst from raw, resetting it to its zero value when raw does not fit.
func decodePayload[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var zero T
		*dst = zero
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
