package identifiers

import (
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

func TestNormalizeSpotify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"share link with query", "https://open.spotify.com/track/abc123?si=xyz", "spotify:track:abc123"},
		{"share link without scheme", "open.spotify.com/playlist/37i9dQZF1DX", "spotify:playlist:37i9dQZF1DX"},
		{"album link", "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", "spotify:album:1DFixLWuPkv3KT3TnV35m3"},
		{"localized link", "https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"link with fragment", "https://open.spotify.com/track/abc#frag", "spotify:track:abc"},
		{"uri passes through", "spotify:track:abc123", "spotify:track:abc123"},
		{"uri is trimmed", "  spotify:album:xyz \n", "spotify:album:xyz"},
		{"bare id", "4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"unsupported kind", "https://open.spotify.com/artist/abc", "https://open.spotify.com/artist/abc"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSpotify(tt.input); got != tt.want {
				t.Errorf("NormalizeSpotify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeYouTube(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch link", "https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch link www", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"v not first", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"music", "https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"short link without scheme", "youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ"},
		{"shorts", "https://youtube.com/shorts/abcdefghijk", "abcdefghijk"},
		{"trimmed", "  dQw4w9WgXcQ\t", "dQw4w9WgXcQ"},
		{"watch without v", "https://youtube.com/watch", "https://youtube.com/watch"},
		{"other host", "https://example.com/watch?v=nope", "https://example.com/watch?v=nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeYouTube(tt.input); got != tt.want {
				t.Errorf("NormalizeYouTube(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://open.spotify.com/track/abc123?si=xyz",
		"spotify:playlist:37i9dQZF1DX",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"dQw4w9WgXcQ",
		"  plain text  ",
	}

	for _, mode := range []models.RoomMode{models.ModeSpotify, models.ModeYouTube} {
		for _, input := range inputs {
			once, err := Normalize(mode, input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			twice, _ := Normalize(mode, once)
			if once != twice {
				t.Errorf("%s: Normalize not idempotent for %q: %q then %q", mode, input, once, twice)
			}
		}
	}
}

func TestNormalizeUnknownMode(t *testing.T) {
	if _, err := Normalize(models.RoomMode("vinyl"), "x"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractSpotifyID(t *testing.T) {
	tests := []struct {
		input  string
		kind   string
		want   string
		wantOK bool
	}{
		{"spotify:track:abc", KindTrack, "abc", true},
		{"spotify:playlist:pl1", KindPlaylist, "pl1", true},
		{"spotify:playlist:pl1", KindTrack, "", false},
		{"https://open.spotify.com/playlist/pl1?si=1", KindPlaylist, "pl1", true},
		{"https://open.spotify.com/track/t1", KindPlaylist, "", false},
		{"spotify:track:", KindTrack, "", false},
		{"", KindTrack, "", false},
		{"abc", KindTrack, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.kind, func(t *testing.T) {
			got, ok := ExtractSpotifyID(tt.input, tt.kind)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractSpotifyID(%q, %q) = (%q, %v), want (%q, %v)", tt.input, tt.kind, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSpotifyKind(t *testing.T) {
	if got := SpotifyKind("spotify:album:x"); got != KindAlbum {
		t.Errorf("expected album, got %q", got)
	}
	if got := SpotifyKind("abc"); got != "" {
		t.Errorf("expected empty kind, got %q", got)
	}
}

func TestSpotifyPlayTarget(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want PlayTarget
	}{
		{"track uri", "spotify:track:abc", PlayTarget{URIs: []string{"spotify:track:abc"}}},
		{"playlist uri", "spotify:playlist:pl", PlayTarget{ContextURI: "spotify:playlist:pl"}},
		{"album uri", "spotify:album:al", PlayTarget{ContextURI: "spotify:album:al"}},
		{"bare id", "abc", PlayTarget{URIs: []string{"spotify:track:abc"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpotifyPlayTarget(tt.id); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SpotifyPlayTarget(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidYouTubeID(t *testing.T) {
	for id, want := range map[string]bool{
		"dQw4w9WgXcQ":  true,
		"a-b_c1234XY":  true,
		"short":        false,
		"dQw4w9WgXcQ!": false,
		"":             false,
	} {
		if got := ValidYouTubeID(id); got != want {
			t.Errorf("ValidYouTubeID(%q) = %v, want %v", id, got, want)
		}
	}
}
