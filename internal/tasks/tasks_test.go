package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
	tu "github.com/desertthunder/colisten/internal/testing"
)

// catalog is a metadata provider keyed by identifier. Unknown ids fail with ErrTrackNotFound.
type catalog struct {
	mu    sync.Mutex
	names map[string]string
	calls map[string]int
}

func newCatalog(names map[string]string) *catalog {
	return &catalog{names: names, calls: make(map[string]int)}
}

func (c *catalog) Authenticate(ctx context.Context, credentials map[string]string) error { return nil }
func (c *catalog) Name() string                                                          { return "catalog" }

func (c *catalog) Metadata(ctx context.Context, id string) (*models.TrackMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[id]++
	name, ok := c.names[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return &models.TrackMetadata{ID: id, Name: name, DurationMs: 60000}, nil
}

func (c *catalog) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func sourceOf(svc services.Service) MetadataSource {
	return func(models.RoomMode) (services.Service, error) { return svc, nil }
}

func testRoom(id, name, code string, mode models.RoomMode) *models.Room {
	rm := models.NewRoom(0, name, mode, "owner-1")
	rm.SetID(id)
	rm.SetJoinCode(code)
	return rm
}

// stateServer serves GET /api/rooms/{id}/state from states. Missing rooms get a 404.
func stateServer(t *testing.T, states map[string]room.State) *tu.RecordingServer {
	t.Helper()
	return tu.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/rooms/"), "/state")
		st, ok := states[id]
		if !ok {
			http.Error(w, `{"error":"room not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestNewQueueEngine(t *testing.T) {
	tests := []struct {
		name        string
		opts        EngineOpts
		wantWorkers int
		wantLimit   float64
	}{
		{name: "defaults", opts: EngineOpts{}, wantWorkers: defaultWorkers, wantLimit: defaultRateLimit},
		{name: "custom", opts: EngineOpts{Workers: 2, RateLimit: 20}, wantWorkers: 2, wantLimit: 20},
		{name: "capped workers", opts: EngineOpts{Workers: 50}, wantWorkers: maxWorkers, wantLimit: defaultRateLimit},
		{name: "negative values", opts: EngineOpts{Workers: -1, RateLimit: -3}, wantWorkers: defaultWorkers, wantLimit: defaultRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewQueueEngine(nil, nil, tt.opts)
			if e.workers != tt.wantWorkers {
				t.Errorf("workers = %d, want %d", e.workers, tt.wantWorkers)
			}
			if float64(e.limit) != tt.wantLimit {
				t.Errorf("limit = %v, want %v", e.limit, tt.wantLimit)
			}
			if e.logger == nil {
				t.Error("expected a default logger")
			}
		})
	}
}

func TestFetchState(t *testing.T) {
	at := 42.5
	rs := stateServer(t, map[string]room.State{
		"live":  {Mode: models.ModeYouTube, VideoID: "dQw4w9WgXcQ", Playlist: []string{"dQw4w9WgXcQ", "9bZkp7q19f0"}, Time: &at},
		"empty": {Mode: models.ModeSpotify},
	})
	e := NewQueueEngine(services.NewAPIService(rs.URL, nil), nil, EngineOpts{})

	t.Run("decodes state", func(t *testing.T) {
		st, err := e.FetchState(context.Background(), "live")
		if err != nil {
			t.Fatalf("FetchState failed: %v", err)
		}
		if st.VideoID != "dQw4w9WgXcQ" || len(st.Playlist) != 2 {
			t.Errorf("unexpected state: %+v", st)
		}
		if st.Time == nil || *st.Time != at {
			t.Errorf("expected time %v, got %v", at, st.Time)
		}
	})

	t.Run("nil playlist becomes empty", func(t *testing.T) {
		st, err := e.FetchState(context.Background(), "empty")
		if err != nil {
			t.Fatalf("FetchState failed: %v", err)
		}
		if st.Playlist == nil || len(st.Playlist) != 0 {
			t.Errorf("expected empty non-nil playlist, got %#v", st.Playlist)
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := e.FetchState(context.Background(), "missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("escapes room id", func(t *testing.T) {
		_, _ = e.FetchState(context.Background(), "a/b")
		reqs := rs.Requests()
		if last := reqs[len(reqs)-1]; last != "GET /api/rooms/a/b/state" && last != "GET /api/rooms/a%2Fb/state" {
			t.Errorf("unexpected request %q", last)
		}
	})

	t.Run("no server client", func(t *testing.T) {
		_, err := NewQueueEngine(nil, nil, EngineOpts{}).FetchState(context.Background(), "live")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		down := NewQueueEngine(services.NewAPIService("http://127.0.0.1:1", nil), nil, EngineOpts{})
		_, err := down.FetchState(context.Background(), "live")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("dedupes and records failures", func(t *testing.T) {
		cat := newCatalog(map[string]string{"a": "First", "b": "Second"})
		e := NewQueueEngine(nil, sourceOf(cat), EngineOpts{Workers: 3, RateLimit: 1000})
		progress := make(chan ProgressUpdate, 10)

		res, err := e.Resolve(ctx, progress, models.ModeYouTube, []string{"a", "b", "a", "", "zzz", "b"})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(res.Meta) != 2 || res.Meta["a"].Name != "First" || res.Meta["b"].Name != "Second" {
			t.Errorf("unexpected metadata: %+v", res.Meta)
		}
		if !errors.Is(res.Failed["zzz"], shared.ErrTrackNotFound) {
			t.Errorf("expected zzz to fail with ErrTrackNotFound, got %v", res.Failed["zzz"])
		}
		for _, id := range []string{"a", "b", "zzz"} {
			if n := cat.count(id); n != 1 {
				t.Errorf("expected one lookup for %s, got %d", id, n)
			}
		}

		updates := drain(progress)
		if len(updates) != 3 {
			t.Fatalf("expected 3 progress updates, got %d", len(updates))
		}
		for _, u := range updates {
			if u.Phase != ResolveMetadata || u.Total != 3 {
				t.Errorf("unexpected update %+v", u)
			}
		}
		if last := updates[len(updates)-1]; last.Step != 3 {
			t.Errorf("expected final step 3, got %d", last.Step)
		}
	})

	t.Run("empty input needs no source", func(t *testing.T) {
		e := NewQueueEngine(nil, nil, EngineOpts{})
		res, err := e.Resolve(ctx, nil, models.ModeYouTube, nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(res.Meta) != 0 || len(res.Failed) != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})

	t.Run("nil source", func(t *testing.T) {
		e := NewQueueEngine(nil, nil, EngineOpts{})
		_, err := e.Resolve(ctx, nil, models.ModeYouTube, []string{"a"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("source error", func(t *testing.T) {
		e := NewQueueEngine(nil, func(models.RoomMode) (services.Service, error) {
			return nil, shared.ErrNotAuthenticated
		}, EngineOpts{})
		_, err := e.Resolve(ctx, nil, models.ModeSpotify, []string{"spotify:track:x"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("source receives mode", func(t *testing.T) {
		var got models.RoomMode
		mock := &tu.MockService{Meta: &models.TrackMetadata{Name: "x"}}
		e := NewQueueEngine(nil, func(m models.RoomMode) (services.Service, error) {
			got = m
			return mock, nil
		}, EngineOpts{RateLimit: 1000})
		if _, err := e.Resolve(ctx, nil, models.ModeSpotify, []string{"spotify:track:x"}); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != models.ModeSpotify {
			t.Errorf("expected spotify mode, got %q", got)
		}
		if mock.CallCount() != 1 {
			t.Errorf("expected 1 call, got %d", mock.CallCount())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		e := NewQueueEngine(nil, sourceOf(newCatalog(map[string]string{"a": "A"})), EngineOpts{})
		_, err := e.Resolve(cctx, nil, models.ModeYouTube, []string{"a", "b", "c"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	at := 12.0
	rs := stateServer(t, map[string]room.State{
		"room-1": {Mode: models.ModeYouTube, VideoID: "b", Playlist: []string{"a", "b"}, Time: &at},
		"room-3": {Playlist: []string{"a"}},
	})
	api := services.NewAPIService(rs.URL, nil)
	cat := newCatalog(map[string]string{"a": "First", "b": "Second"})
	e := NewQueueEngine(api, sourceOf(cat), EngineOpts{RateLimit: 1000})

	t.Run("live room", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		snap, err := e.Snapshot(ctx, progress, testRoom("room-1", "Lounge", "ABC234", models.ModeYouTube))
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if !snap.Live {
			t.Error("expected live snapshot")
		}
		if got := snap.Queue.State.Current(); got != "b" {
			t.Errorf("expected current b, got %q", got)
		}
		if len(snap.Queue.Meta) != 2 || snap.Queue.Meta["b"].Name != "Second" {
			t.Errorf("unexpected metadata: %+v", snap.Queue.Meta)
		}

		updates := drain(progress)
		if len(updates) == 0 || updates[0].Phase != FetchState {
			t.Errorf("expected fetch update first, got %+v", updates)
		}
	})

	t.Run("unknown room is idle", func(t *testing.T) {
		snap, err := e.Snapshot(ctx, nil, testRoom("room-2", "Office", "XYZ789", models.ModeSpotify))
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.Live {
			t.Error("expected non-live snapshot")
		}
		if snap.Queue.State.Mode != models.ModeSpotify || len(snap.Queue.State.Playlist) != 0 {
			t.Errorf("expected idle spotify state, got %+v", snap.Queue.State)
		}
	})

	t.Run("missing mode falls back to room", func(t *testing.T) {
		snap, err := e.Snapshot(ctx, nil, testRoom("room-3", "Den", "DEF456", models.ModeYouTube))
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.Queue.State.Mode != models.ModeYouTube {
			t.Errorf("expected youtube mode, got %q", snap.Queue.State.Mode)
		}
	})

	t.Run("metadata unavailable", func(t *testing.T) {
		bare := NewQueueEngine(api, nil, EngineOpts{})
		snap, err := bare.Snapshot(ctx, nil, testRoom("room-1", "Lounge", "ABC234", models.ModeYouTube))
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.Queue.Meta == nil || len(snap.Queue.Meta) != 0 {
			t.Errorf("expected empty metadata, got %+v", snap.Queue.Meta)
		}
		if len(snap.Queue.State.Playlist) != 2 {
			t.Errorf("expected playlist to survive, got %v", snap.Queue.State.Playlist)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.Snapshot(cctx, nil, testRoom("room-1", "Lounge", "ABC234", models.ModeYouTube))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{FetchState, "fetch_state"},
		{ResolveMetadata, "resolve_metadata"},
		{ExportQueue, "export_queue"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestSendProgressNeverBlocks(t *testing.T) {
	e := NewQueueEngine(nil, nil, EngineOpts{})
	full := make(chan ProgressUpdate)
	e.sendProgress(full, fetchStateUpdate(1, 1, "x"))
	e.sendProgress(nil, fetchStateUpdate(1, 1, "x"))
}
