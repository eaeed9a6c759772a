package room

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

func ptr(f float64) *float64 { return &f }

func TestDecode(t *testing.T) {
	t.Run("Play", func(t *testing.T) {
		ev, err := Decode([]byte(`{"event":"play","payload":{"videoId":"X","playlist":["X"],"time":12.5}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		play, ok := ev.(Play)
		if !ok {
			t.Fatalf("expected Play, got %T", ev)
		}
		if play.VideoID != "X" || !reflect.DeepEqual(play.Playlist, []string{"X"}) || play.Time == nil || *play.Time != 12.5 {
			t.Errorf("unexpected payload %+v", play)
		}
	})

	t.Run("PlaySpotify", func(t *testing.T) {
		ev, err := Decode([]byte(`{"event":"play-spotify","payload":{"uri":"spotify:track:a","playlist":["spotify:track:a"]}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ev.(PlaySpotify).URI; got != "spotify:track:a" {
			t.Errorf("expected uri spotify:track:a, got %q", got)
		}
	})

	t.Run("Missing Playlist Defaults To Empty", func(t *testing.T) {
		ev, err := Decode([]byte(`{"event":"play","payload":{"videoId":"X"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		play := ev.(Play)
		if play.Playlist == nil || len(play.Playlist) != 0 {
			t.Errorf("expected empty playlist, got %#v", play.Playlist)
		}
	})

	t.Run("Mismatched Payload Defaults To Zero", func(t *testing.T) {
		for _, raw := range []string{
			`{"event":"play","payload":{"videoId":42,"playlist":"nope"}}`,
			`{"event":"play","payload":"garbage"}`,
			`{"event":"play","payload":null}`,
			`{"event":"play"}`,
		} {
			ev, err := Decode([]byte(raw))
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", raw, err)
			}
			play := ev.(Play)
			if play.VideoID != "" || len(play.Playlist) != 0 || play.Playlist == nil {
				t.Errorf("%s: expected zero payload, got %+v", raw, play)
			}
		}
	})

	t.Run("SyncTime", func(t *testing.T) {
		ev, err := Decode([]byte(`{"event":"sync-time","payload":{"time":30}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.(SyncTime).Time != 30 {
			t.Errorf("expected time 30, got %v", ev.(SyncTime).Time)
		}
	})

	t.Run("Chat", func(t *testing.T) {
		ev, err := Decode([]byte(`{"event":"chat","payload":{"name":"ana","message":"❤️"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chat := ev.(Chat)
		if chat.Name != "ana" || chat.Message != "❤️" {
			t.Errorf("unexpected chat %+v", chat)
		}

		ev, err = Decode([]byte(`{"event":"chat","payload":{"message":"hi"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.(Chat).Name != "Anonymous" {
			t.Errorf("expected default name, got %q", ev.(Chat).Name)
		}
	})

	t.Run("Blank Chat Rejected", func(t *testing.T) {
		_, err := Decode([]byte(`{"event":"chat","payload":{"name":"ana","message":"   "}}`))
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("expected ErrEmptyMessage, got %v", err)
		}
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected error to be ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Pause And Resume", func(t *testing.T) {
		for raw, want := range map[string]Kind{
			`{"event":"spotify-pause","payload":{}}`:  KindSpotifyPause,
			`{"event":"spotify-resume","payload":{}}`: KindSpotifyResume,
			`{"event":"spotify-resume"}`:              KindSpotifyResume,
		} {
			ev, err := Decode([]byte(raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Kind() != want {
				t.Errorf("expected %s, got %s", want, ev.Kind())
			}
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			raw  string
			want error
		}{
			{`{"event":"dance","payload":{}}`, ErrUnknownEvent},
			{`not json`, ErrMalformedEvent},
			{`[1,2]`, ErrMalformedEvent},
			{`{"payload":{}}`, ErrMalformedEvent},
		}
		for _, tt := range tests {
			if _, err := Decode([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("Decode(%s) error = %v, want %v", tt.raw, err, tt.want)
			}
		}
	})
}

func TestEncode(t *testing.T) {
	events := []Event{
		Play{VideoID: "X", Playlist: []string{"X"}, Time: ptr(3)},
		PlaySpotify{URI: "spotify:track:a"},
		SyncTime{Time: 4},
		Chat{Name: "ana", Message: "hi 👋"},
		SpotifyPause{},
		SpotifyResume{},
		Snapshot{State: State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}}},
	}

	for _, ev := range events {
		t.Run(string(ev.Kind()), func(t *testing.T) {
			data, err := Encode(ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(string(data), `"event":"`+string(ev.Kind())+`"`) {
				t.Errorf("envelope missing event name: %s", data)
			}

			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if decoded.Kind() != ev.Kind() {
				t.Errorf("expected %s, got %s", ev.Kind(), decoded.Kind())
			}
		})
	}

	t.Run("Nil Playlist Encodes As Empty List", func(t *testing.T) {
		data, err := Encode(PlaySpotify{URI: "spotify:track:a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"playlist":[]`) {
			t.Errorf("expected empty playlist, got %s", data)
		}
	})

	t.Run("Nil Event", func(t *testing.T) {
		if _, err := Encode(nil); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("expected ErrMalformedEvent, got %v", err)
		}
	})
}

func TestStateApply(t *testing.T) {
	t.Run("Last Writer Wins", func(t *testing.T) {
		ids := []string{"a", "b", "c", "b", "z"}
		var s State
		for _, id := range ids {
			s = s.Apply(Play{VideoID: id, Playlist: []string{id}})
		}
		if s.VideoID != ids[len(ids)-1] {
			t.Errorf("expected last identifier %q, got %q", ids[len(ids)-1], s.VideoID)
		}
	})

	t.Run("Two Clients", func(t *testing.T) {
		a := Play{VideoID: "X", Playlist: []string{"X"}}
		b := Play{VideoID: "Y", Playlist: []string{"X", "Y"}}

		var clientA, clientB State
		for _, ev := range []Event{a, b} {
			clientA = clientA.Apply(ev)
			clientB = clientB.Apply(ev)
		}

		for name, s := range map[string]State{"A": clientA, "B": clientB} {
			if s.VideoID != "Y" {
				t.Errorf("client %s: expected Y, got %q", name, s.VideoID)
			}
			if !reflect.DeepEqual(s.Playlist, []string{"X", "Y"}) {
				t.Errorf("client %s: expected [X Y], got %v", name, s.Playlist)
			}
		}
	})

	t.Run("Play Replaces Wholesale", func(t *testing.T) {
		s := State{Mode: models.ModeSpotify, SpotifyURI: "spotify:track:a", Playlist: []string{"q"}, Time: ptr(10)}
		s = s.Apply(Play{VideoID: "X", Playlist: []string{"X"}})

		want := State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}}
		if !reflect.DeepEqual(s, want) {
			t.Errorf("expected %+v, got %+v", want, s)
		}
	})

	t.Run("PlaySpotify Clears Video", func(t *testing.T) {
		s := State{Mode: models.ModeYouTube, VideoID: "X"}.Apply(PlaySpotify{URI: "spotify:track:a", Playlist: []string{}, Time: ptr(1)})
		if s.VideoID != "" || s.SpotifyURI != "spotify:track:a" || s.Mode != models.ModeSpotify {
			t.Errorf("unexpected state %+v", s)
		}
		if s.Current() != "spotify:track:a" {
			t.Errorf("expected current spotify uri, got %q", s.Current())
		}
	})

	t.Run("SyncTime Only Moves Position", func(t *testing.T) {
		s := State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}}
		next := s.Apply(SyncTime{Time: 42})
		if next.VideoID != "X" || !reflect.DeepEqual(next.Playlist, []string{"X"}) {
			t.Errorf("sync-time changed more than the time: %+v", next)
		}
		if next.Time == nil || *next.Time != 42 {
			t.Errorf("expected time 42, got %v", next.Time)
		}
	})

	t.Run("Other Events Leave State", func(t *testing.T) {
		s := State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}}
		for _, ev := range []Event{Chat{Name: "a", Message: "b"}, SpotifyPause{}, SpotifyResume{}} {
			if got := s.Apply(ev); !reflect.DeepEqual(got, s) {
				t.Errorf("%s changed state to %+v", ev.Kind(), got)
			}
		}
	})

	t.Run("Snapshot Replaces", func(t *testing.T) {
		snap := State{Mode: models.ModeYouTube, VideoID: "Y", Playlist: []string{"X", "Y"}, Time: ptr(5)}
		got := State{}.Apply(Snapshot{State: snap})
		if !reflect.DeepEqual(got, snap) {
			t.Errorf("expected %+v, got %+v", snap, got)
		}
	})

	t.Run("No Aliasing", func(t *testing.T) {
		playlist := []string{"X"}
		s := State{}.Apply(Play{VideoID: "X", Playlist: playlist})
		playlist[0] = "mutated"
		if s.Playlist[0] != "X" {
			t.Error("state playlist shares memory with the event")
		}
	})

	t.Run("IsZero", func(t *testing.T) {
		if !(State{}).IsZero() {
			t.Error("expected zero state")
		}
		if (State{}).Apply(SyncTime{Time: 1}).IsZero() {
			t.Error("expected non-zero state after sync-time")
		}
	})
}

func TestAddToPlaylist(t *testing.T) {
	tests := []struct {
		name string
		list []string
		id   string
		want []string
	}{
		{"empty", nil, "a", []string{"a"}},
		{"append", []string{"a"}, "b", []string{"a", "b"}},
		{"duplicate", []string{"a", "b"}, "a", []string{"a", "b"}},
		{"duplicate last", []string{"a", "b"}, "b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddToPlaylist(tt.list, tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AddToPlaylist(%v, %q) = %v, want %v", tt.list, tt.id, got, tt.want)
			}
		})
	}

	t.Run("Does Not Mutate Input", func(t *testing.T) {
		list := make([]string, 1, 4)
		list[0] = "a"
		_ = AddToPlaylist(list, "b")
		if len(list) != 1 || list[:2][1] != "" {
			t.Error("input slice was modified")
		}
	})
}

func TestEnqueue(t *testing.T) {
	s := State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}}

	ev, err := s.Enqueue(models.ModeYouTube, "Y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Play{VideoID: "Y", Playlist: []string{"X", "Y"}}
	if !reflect.DeepEqual(ev, want) {
		t.Errorf("expected %+v, got %+v", want, ev)
	}

	ev, err = s.Enqueue(models.ModeYouTube, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ev.(Play).Playlist; !reflect.DeepEqual(got, []string{"X"}) {
		t.Errorf("re-queueing duplicated the entry: %v", got)
	}

	ev, err = State{}.Enqueue(models.ModeSpotify, "spotify:track:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ev.(PlaySpotify); !ok {
		t.Errorf("expected PlaySpotify, got %T", ev)
	}

	if _, err := s.Enqueue(models.ModeYouTube, ""); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if _, err := s.Enqueue("vinyl", "a"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStateClone(t *testing.T) {
	s := State{Mode: models.ModeYouTube, VideoID: "X", Playlist: []string{"X"}, Time: ptr(1)}
	c := s.Clone()
	c.Playlist[0] = "changed"
	*c.Time = 9
	if s.Playlist[0] != "X" || *s.Time != 1 {
		t.Error("clone shares memory with the original")
	}

	if got := (State{}).Clone().Playlist; got == nil {
		t.Error("expected non-nil playlist")
	}
}
