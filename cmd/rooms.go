package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/colisten/internal/formatter"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/repositories"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/desertthunder/colisten/internal/tasks"
	"github.com/urfave/cli/v3"
)

// RoomCreate creates a room owned by --owner, creating the user on first use.
func (r *Runner) RoomCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: room name", shared.ErrMissingArgument)
	}
	mode, err := models.ParseRoomMode(cmd.String("mode"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	owner, err := st.users.GetOrCreate(cmd.String("owner"), "")
	if err != nil {
		return err
	}

	rm := models.NewRoom(0, name, mode, owner.ID())
	if err := st.rooms.Create(rm); err != nil {
		return err
	}
	r.logger.Info("room created", "id", rm.ID(), "code", rm.JoinCode(), "mode", rm.Mode())

	data, err := formatter.FormatRooms([]*models.Room{rm}, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// RoomList lists rooms owned by --owner, newest first.
func (r *Runner) RoomList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var rooms []*models.Room
	if owner, err := st.users.GetByEmail(cmd.String("owner")); err != nil {
		r.logger.Debug("owner not found", "error", err)
	} else if rooms, err = st.rooms.ListByOwner(owner.ID()); err != nil {
		return err
	}

	data, err := formatter.FormatRooms(rooms, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// RoomJoin resolves a join code to its room.
func (r *Runner) RoomJoin(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rm, err := st.rooms.GetByJoinCode(cmd.StringArg("code"))
	if err != nil {
		return err
	}

	data, err := formatter.FormatRooms([]*models.Room{rm}, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// RoomShow prints a room's live queue as reported by the server at base_url.
//
// An unreachable server is reported as an idle room.
func (r *Runner) RoomShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rm, err := st.findRoom(cmd.StringArg("room"))
	if err != nil {
		return err
	}

	snap, err := r.queueEngine(st, 0).Snapshot(ctx, nil, rm)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" || cmd.Bool("save") {
		written, err := formatter.WriteQueueExport(snap.Queue, format, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Queue written to %s\n", written)
	}

	data, err := formatter.FormatQueue(snap.Queue, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// RoomExport writes the queue of every room owned by --owner to --dir, one file per room.
func (r *Runner) RoomExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	owner, err := st.users.GetByEmail(cmd.String("owner"))
	if err != nil {
		return err
	}
	rooms, err := st.rooms.ListByOwner(owner.ID())
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return r.writePlainln("No rooms to export")
	}

	workers := int(cmd.Int("workers"))
	r.logger.Info("exporting rooms", "owner", owner.Email(), "rooms", len(rooms), "format", format)
	r.writePlain("Exporting %d rooms...\n\n", len(rooms))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			if update.Phase == tasks.ExportQueue {
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.queueEngine(st, workers).BulkExport(ctx, progressCh, rooms, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: workers,
	})
	close(progressCh)
	<-printed

	if err != nil {
		return err
	}

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Export Complete!\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalRooms)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d rooms:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s (%s): %s\n", res.RoomName, res.JoinCode, res.Error)
			}
		}
	}
	return nil
}

// queueEngine builds a [tasks.QueueEngine] that reads state from base_url and
// caches metadata lookups in st.
func (r *Runner) queueEngine(st *store, workers int) *tasks.QueueEngine {
	cache := repositories.NewTrackCacheAdapter(st.tracks)
	source := func(mode models.RoomMode) (services.Service, error) {
		return r.metadataService(mode, defaultTokenFile, cache)
	}
	return tasks.NewQueueEngine(r.api, source, tasks.EngineOpts{
		Workers:   workers,
		RateLimit: r.config.Credentials.Spotify.RequestsPerSecond,
		Logger:    r.logger,
	})
}
