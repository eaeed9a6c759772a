// package identifiers converts user-supplied track references into the canonical form
// broadcast to a room: "spotify:<kind>:<id>" URIs for Spotify rooms and bare
// video ids for YouTube rooms.
//
// Normalization never checks that an identifier exists. Bad input surfaces later as a
// playback or metadata failure.
package identifiers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

// Spotify entity kinds that can be queued in a room.
const (
	KindTrack    = "track"
	KindAlbum    = "album"
	KindPlaylist = "playlist"
)

const spotifyURIPrefix = "spotify:"

var (
	spotifyURLPattern = regexp.MustCompile(`open\.spotify\.com/(?:intl-[A-Za-z-]+/)?(track|album|playlist)/([^?#/\s]+)`)
	youTubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// Normalize dispatches to [NormalizeSpotify] or [NormalizeYouTube] by room mode.
func Normalize(mode models.RoomMode, input string) (string, error) {
	switch mode {
	case models.ModeSpotify:
		return NormalizeSpotify(input), nil
	case models.ModeYouTube:
		return NormalizeYouTube(input), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidInput, mode)
	}
}

// NormalizeSpotify returns a spotify: URI for share links and passes URIs and bare ids through trimmed.
func NormalizeSpotify(input string) string {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, spotifyURIPrefix) {
		return s
	}
	if m := spotifyURLPattern.FindStringSubmatch(s); m != nil {
		return spotifyURIPrefix + m[1] + ":" + m[2]
	}
	return s
}

// NormalizeYouTube extracts the video id from watch, short, embed, shorts and music links.
// Anything else is returned trimmed.
func NormalizeYouTube(input string) string {
	s := strings.TrimSpace(input)
	if !strings.Contains(s, "youtube.com") && !strings.Contains(s, "youtu.be") {
		return s
	}

	raw := s
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return s
	}

	host := strings.ToLower(u.Hostname())
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch {
	case host == "youtu.be":
		if len(parts) > 0 {
			return parts[0]
		}
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if len(parts) == 1 && parts[0] == "watch" {
			if v := u.Query().Get("v"); v != "" {
				return v
			}
		}
		if len(parts) >= 2 {
			switch parts[0] {
			case "embed", "shorts", "live", "v":
				return parts[1]
			}
		}
	}
	return s
}

// ExtractSpotifyID returns the bare id when input is a URI or share link of the given kind.
func ExtractSpotifyID(input, kind string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}

	if prefix := spotifyURIPrefix + kind + ":"; strings.HasPrefix(s, prefix) {
		id := strings.TrimPrefix(s, prefix)
		if id == "" || strings.Contains(id, ":") {
			return "", false
		}
		return id, true
	}

	if m := spotifyURLPattern.FindStringSubmatch(s); m != nil && m[1] == kind {
		return m[2], true
	}
	return "", false
}

// SpotifyKind returns the entity kind of a spotify: URI, or an empty string.
func SpotifyKind(uri string) string {
	parts := strings.Split(strings.TrimSpace(uri), ":")
	if len(parts) != 3 || parts[0] != "spotify" {
		return ""
	}
	return parts[1]
}

// PlayTarget is what the Spotify play endpoint should start: either explicit track URIs
// or a context (album, playlist, artist).
type PlayTarget struct {
	URIs       []string
	ContextURI string
}

// SpotifyPlayTarget maps an identifier to a [PlayTarget].
//
// Track URIs are played directly, other spotify: URIs are played as a context and bare
// ids are assumed to be tracks.
func SpotifyPlayTarget(id string) PlayTarget {
	id = strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(id, spotifyURIPrefix+KindTrack+":"):
		return PlayTarget{URIs: []string{id}}
	case strings.HasPrefix(id, spotifyURIPrefix):
		return PlayTarget{ContextURI: id}
	default:
		return PlayTarget{URIs: []string{spotifyURIPrefix + KindTrack + ":" + id}}
	}
}

// ValidYouTubeID reports whether id has the shape of a YouTube video id.
func ValidYouTubeID(id string) bool {
	return youTubeIDPattern.MatchString(id)
}
