package tasks

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/colisten/internal/formatter"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

// APIClient defines the interface for making requests to the room server.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// MetadataSource returns the metadata provider for a room mode.
type MetadataSource func(mode models.RoomMode) (services.Service, error)

// EngineOpts tunes metadata resolution.
type EngineOpts struct {
	Workers   int     // Concurrent lookups (default 4, max 10)
	RateLimit float64 // Lookups per second across workers (default 5)
	Logger    *log.Logger
}

// QueueEngine reads live room state from the server and resolves display metadata for its queue.
type QueueEngine struct {
	api     APIClient
	source  MetadataSource
	workers int
	limit   rate.Limit
	logger  *log.Logger
}

// ResolveResult holds the metadata found for each identifier and the failures for the rest.
type ResolveResult struct {
	Meta   map[string]*models.TrackMetadata
	Failed map[string]error
}

// Snapshot is a room's queue as seen at one moment. Live is false when the server could not be reached.
type Snapshot struct {
	Queue formatter.Queue
	Live  bool
}

// NewQueueEngine creates a new QueueEngine. source may be nil, in which case no metadata is resolved.
func NewQueueEngine(api APIClient, source MetadataSource, opts EngineOpts) *QueueEngine {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &QueueEngine{
		api:     api,
		source:  source,
		workers: opts.Workers,
		limit:   rate.Limit(opts.RateLimit),
		logger:  opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *QueueEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FetchState asks the server for the reduced state of roomID.
func (e *QueueEngine) FetchState(ctx context.Context, roomID string) (room.State, error) {
	var state room.State
	if e.api == nil {
		return state, fmt.Errorf("%w: no server client", shared.ErrServiceUnavailable)
	}

	resp, err := e.api.Get(ctx, "/api/rooms/"+url.PathEscape(roomID)+"/state")
	if err != nil {
		return state, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return state, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if err := resp.Decode(&state); err != nil {
		return state, err
	}
	if state.Playlist == nil {
		state.Playlist = []string{}
	}
	return state, nil
}

// Resolve looks up metadata for ids with a bounded, rate-limited worker pool.
//
// Duplicate ids are looked up once. Individual failures are recorded in the result;
// only a missing provider or a cancelled context fails the call.
func (e *QueueEngine) Resolve(ctx context.Context, progress chan<- ProgressUpdate, mode models.RoomMode, ids []string) (*ResolveResult, error) {
	result := &ResolveResult{
		Meta:   make(map[string]*models.TrackMetadata),
		Failed: make(map[string]error),
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return result, nil
	}

	if e.source == nil {
		return nil, fmt.Errorf("%w: no metadata source", shared.ErrServiceUnavailable)
	}
	svc, err := e.source(mode)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(e.limit, 1)
	jobs := make(chan string)

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	for range min(e.workers, len(unique)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				var meta *models.TrackMetadata
				err := limiter.Wait(ctx)
				if err == nil {
					meta, err = svc.Metadata(ctx, id)
				}

				mu.Lock()
				done++
				if err != nil {
					result.Failed[id] = err
				} else {
					result.Meta[id] = meta
				}
				update := resolveUpdate(done, len(unique), id, err)
				mu.Unlock()

				e.sendProgress(progress, update)
			}
		}()
	}

feed:
	for _, id := range unique {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Snapshot fetches rm's live state and resolves metadata for its queue.
//
// An unreachable server yields an idle, non-live snapshot. Metadata failures leave entries unresolved.
func (e *QueueEngine) Snapshot(ctx context.Context, progress chan<- ProgressUpdate, rm *models.Room) (*Snapshot, error) {
	e.sendProgress(progress, fetchStateUpdate(1, 1, rm.Name()))

	snap := &Snapshot{Queue: formatter.Queue{Room: rm}, Live: true}
	state, err := e.FetchState(ctx, rm.ID())
	if err != nil {
		e.logger.Warn("could not fetch live state, treating room as idle", "room", rm.ID(), "error", err)
		state = room.State{Mode: rm.Mode(), Playlist: []string{}}
		snap.Live = false
	}
	if state.Mode == "" {
		state.Mode = rm.Mode()
	}
	snap.Queue.State = state

	resolved, err := e.Resolve(ctx, progress, state.Mode, state.Playlist)
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		e.logger.Debug("queue metadata unavailable", "room", rm.ID(), "error", err)
		snap.Queue.Meta = map[string]*models.TrackMetadata{}
	default:
		for id, ferr := range resolved.Failed {
			e.logger.Debug("metadata lookup failed", "id", id, "error", ferr)
		}
		snap.Queue.Meta = resolved.Meta
	}
	return snap, nil
}
