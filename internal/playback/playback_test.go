package playback

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

type fakePlayer struct {
	transferErr error
	playErr     error
	calls       []string
	target      identifiers.PlayTarget
	position    int
}

func (f *fakePlayer) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	f.calls = append(f.calls, "transfer:"+deviceID)
	return f.transferErr
}

func (f *fakePlayer) Play(ctx context.Context, deviceID string, target identifiers.PlayTarget, positionMs int) error {
	f.calls = append(f.calls, "play:"+deviceID)
	f.target = target
	f.position = positionMs
	return f.playErr
}

func TestBestEffort(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	logger.SetLevel(log.DebugLevel)

	ran := false
	BestEffort(context.Background(), logger, "step", func(context.Context) error {
		ran = true
		return errors.New("no active device")
	})

	if !ran {
		t.Error("expected fn to run")
	}
	if !strings.Contains(buf.String(), "no active device") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}
}

func TestSpotifyAdapter(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})
	ctx := context.Background()

	t.Run("Transfer Then Play", func(t *testing.T) {
		player := &fakePlayer{}
		err := NewSpotifyAdapter(player, logger).Load(ctx, Command{Target: "spotify:track:abc", OffsetMs: 900, DeviceID: "dev"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(player.calls, ",") != "transfer:dev,play:dev" {
			t.Errorf("unexpected call order %v", player.calls)
		}
		if player.position != 900 || player.target.URIs[0] != "spotify:track:abc" {
			t.Errorf("unexpected play args %+v %d", player.target, player.position)
		}
	})

	t.Run("Transfer Failure Swallowed", func(t *testing.T) {
		player := &fakePlayer{transferErr: &services.APIError{StatusCode: 404, Body: "no device"}}
		if err := NewSpotifyAdapter(player, logger).Load(ctx, Command{Target: "abc", DeviceID: "dev"}); err != nil {
			t.Errorf("transfer failure should not surface, got %v", err)
		}
		if len(player.calls) != 2 {
			t.Errorf("expected play after failed transfer, got %v", player.calls)
		}
	})

	t.Run("Play Failure Surfaces", func(t *testing.T) {
		playErr := &services.APIError{StatusCode: 403, Body: "premium required"}
		player := &fakePlayer{playErr: playErr}
		err := NewSpotifyAdapter(player, logger).Load(ctx, Command{Target: "abc", DeviceID: "dev"})
		if !errors.Is(err, playErr) {
			t.Errorf("expected play error, got %v", err)
		}
	})

	t.Run("Share Link Normalized", func(t *testing.T) {
		player := &fakePlayer{}
		NewSpotifyAdapter(player, logger).Load(ctx, Command{Target: "https://open.spotify.com/playlist/p1?si=1", DeviceID: "dev"})
		if player.target.ContextURI != "spotify:playlist:p1" {
			t.Errorf("expected playlist context, got %+v", player.target)
		}
	})

	t.Run("Missing Arguments", func(t *testing.T) {
		player := &fakePlayer{}
		adapter := NewSpotifyAdapter(player, logger)
		for _, cmd := range []Command{{Target: "abc"}, {DeviceID: "dev"}, {Target: "  ", DeviceID: "dev"}} {
			if err := adapter.Load(ctx, cmd); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("%+v: expected ErrMissingArgument, got %v", cmd, err)
			}
		}
		if len(player.calls) != 0 {
			t.Errorf("expected no upstream calls, got %v", player.calls)
		}
	})
}

func TestEmbedAdapter(t *testing.T) {
	var opened string
	adapter := NewEmbedAdapter(func(url string) error {
		opened = url
		return nil
	})

	if err := adapter.Load(context.Background(), Command{Target: "https://youtu.be/dQw4w9WgXcQ", OffsetMs: 42500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1&start=42" {
		t.Errorf("unexpected URL %s", opened)
	}

	if err := adapter.Load(context.Background(), Command{}); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestDispatcher(t *testing.T) {
	var got []string
	record := func(name string) Adapter {
		return AdapterFunc(func(ctx context.Context, cmd Command) error {
			got = append(got, name+":"+cmd.Target)
			return nil
		})
	}

	d := NewDispatcher().
		Register(models.ModeYouTube, record("yt")).
		Register(models.ModeSpotify, record("sp"))

	d.Dispatch(context.Background(), models.ModeYouTube, Command{Target: "a"})
	d.Dispatch(context.Background(), models.ModeSpotify, Command{Target: "b"})

	if strings.Join(got, ",") != "yt:a,sp:b" {
		t.Errorf("unexpected dispatch %v", got)
	}

	if err := NewDispatcher().Dispatch(context.Background(), models.ModeYouTube, Command{}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSecondsToMs(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		in   *float64
		want int
	}{
		{"nil", nil, 0},
		{"negative", ptr(-2), 0},
		{"zero", ptr(0), 0},
		{"fraction", ptr(1.5), 1500},
		{"not a number", ptr(math.NaN()), 0},
		{"huge", ptr(1e300), maxOffsetSeconds * 1000},
		{"infinite", ptr(math.Inf(1)), maxOffsetSeconds * 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecondsToMs(tt.in); got != tt.want {
				t.Errorf("SecondsToMs() = %d, want %d", got, tt.want)
			}
		})
	}
}
