package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/colisten/internal/formatter"
	"github.com/desertthunder/colisten/internal/models"
)

const manifestName = "export_manifest.json"

// BulkExportOpts contains configuration for exporting several room queues at once.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default text)
	OutputDir  string           // Base output directory (default: colisten_export_{epoch})
	NumWorkers int              // Concurrent room exports (default: engine workers)
}

// RoomExportResult is the outcome for one room.
type RoomExportResult struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	JoinCode string `json:"join_code"`
	File     string `json:"file,omitempty"`
	Live     bool   `json:"live"`
	Entries  int    `json:"entries"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export. It is also written as the manifest.
type BulkExportResult struct {
	Format            formatter.Format   `json:"format"`
	OutputDirectory   string             `json:"output_directory"`
	ExportedAt        time.Time          `json:"exported_at"`
	TotalRooms        int                `json:"total_rooms"`
	SuccessfulExports int                `json:"successful_exports"`
	FailedExports     int                `json:"failed_exports"`
	Results           []RoomExportResult `json:"results"`
	ManifestPath      string             `json:"-"`
}

// BulkExport snapshots and writes the queue of every room concurrently, then writes a manifest.
//
// A room that fails to export does not stop the others.
func (e *QueueEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, rooms []*models.Room, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("colisten_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = e.workers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		TotalRooms:      len(rooms),
		Results:         make([]RoomExportResult, 0, len(rooms)),
	}

	jobs := make(chan *models.Room, len(rooms))
	results := make(chan RoomExportResult, len(rooms))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	for _, rm := range rooms {
		jobs <- rm
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(rooms), res.RoomName, res.File))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(rooms), res.RoomName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	data, err := formatter.ToJSON(result)
	if err != nil {
		return result, err
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports rooms from the jobs channel.
func (e *QueueEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan *models.Room,
	results chan<- RoomExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for rm := range jobs {
		if ctx.Err() != nil {
			results <- RoomExportResult{RoomID: rm.ID(), RoomName: rm.Name(), JoinCode: rm.JoinCode(), Error: ctx.Err().Error()}
			continue
		}
		results <- e.exportRoom(ctx, rm, opts)
	}
}

// exportRoom writes one room's queue to {join code}_queue{ext} under the output directory.
func (e *QueueEngine) exportRoom(ctx context.Context, rm *models.Room, opts BulkExportOpts) RoomExportResult {
	res := RoomExportResult{RoomID: rm.ID(), RoomName: rm.Name(), JoinCode: rm.JoinCode()}

	snap, err := e.Snapshot(ctx, nil, rm)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Live = snap.Live
	res.Entries = len(snap.Queue.State.Playlist)

	path := filepath.Join(opts.OutputDir, rm.JoinCode()+"_queue"+opts.Format.Extension())
	written, err := formatter.WriteQueueExport(snap.Queue, opts.Format, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.File = written
	res.Success = true
	return res
}
