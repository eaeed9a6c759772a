package room

import (
	"fmt"
	"slices"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

// State is the playback state a participant renders for a room.
type State struct {
	Mode       models.RoomMode `json:"mode,omitempty"`
	VideoID    string          `json:"videoId"`
	SpotifyURI string          `json:"spotifyUri"`
	Playlist   []string        `json:"playlist"`
	Time       *float64        `json:"time,omitempty"`
}

// Apply returns the state after e. It never fails.
//
// Play events replace the identifier, playlist, mode and time wholesale; there is no merge
// against the previous state, so the last event delivered wins. SyncTime only moves the
// stored position and a Snapshot replaces everything. Other events leave the state as is.
func (s State) Apply(e Event) State {
	switch ev := e.(type) {
	case Play:
		return State{
			Mode:     models.ModeYouTube,
			VideoID:  ev.VideoID,
			Playlist: slices.Clone(nonNil(ev.Playlist)),
			Time:     cloneTime(ev.Time),
		}
	case PlaySpotify:
		return State{
			Mode:       models.ModeSpotify,
			SpotifyURI: ev.URI,
			Playlist:   slices.Clone(nonNil(ev.Playlist)),
			Time:       cloneTime(ev.Time),
		}
	case SyncTime:
		t := ev.Time
		s.Time = &t
		return s
	case Snapshot:
		return ev.State.Clone()
	default:
		return s
	}
}

// Clone returns a deep copy of s with a non-nil playlist.
func (s State) Clone() State {
	s.Playlist = slices.Clone(nonNil(s.Playlist))
	s.Time = cloneTime(s.Time)
	return s
}

// Current returns the now playing identifier for the active mode.
func (s State) Current() string {
	if s.Mode == models.ModeSpotify {
		return s.SpotifyURI
	}
	return s.VideoID
}

// IsZero reports whether no play event has been applied yet.
func (s State) IsZero() bool {
	return s.Mode == "" && s.VideoID == "" && s.SpotifyURI == "" && len(s.Playlist) == 0 && s.Time == nil
}

// Enqueue builds the event that makes id the room's now playing item, appending it to the
// playlist when it is not already queued.
func (s State) Enqueue(mode models.RoomMode, id string) (Event, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: identifier is required", shared.ErrMissingArgument)
	}

	playlist := AddToPlaylist(s.Playlist, id)
	switch mode {
	case models.ModeYouTube:
		return Play{VideoID: id, Playlist: playlist}, nil
	case models.ModeSpotify:
		return PlaySpotify{URI: id, Playlist: playlist}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidInput, mode)
	}
}

// AddToPlaylist returns a copy of list with id appended unless it is already present.
// First insertion order is kept.
func AddToPlaylist(list []string, id string) []string {
	out := slices.Clone(nonNil(list))
	if slices.Contains(out, id) {
		return out
	}
	return append(out, id)
}

func cloneTime(t *float64) *float64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
