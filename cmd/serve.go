package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/colisten/internal/realtime"
	"github.com/desertthunder/colisten/internal/repositories"
	"github.com/desertthunder/colisten/internal/server"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the room server until the command context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	realtimeConfig := r.config.Realtime
	if backend := cmd.String("backend"); backend != "" {
		realtimeConfig.Backend = backend
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	bus, err := realtime.NewBus(ctx, realtimeConfig)
	if err != nil {
		return fmt.Errorf("failed to start realtime bus: %w", err)
	}
	defer bus.Close()

	pool := realtime.NewPool(bus, shared.WithLogger(r.logger, "component", "realtime"), realtimeConfig.SendBuffer)

	app, err := server.New(server.Deps{
		Config:  r.config,
		Logger:  r.logger,
		Users:   st.users,
		Rooms:   st.rooms,
		Cache:   repositories.NewTrackCacheAdapter(st.tracks),
		Pool:    pool,
		Spotify: r.spotify,
		YouTube: r.youtube,
	})
	if err != nil {
		return err
	}

	r.logger.Info("starting server", "addr", addr, "backend", realtimeConfig.Backend, "database", r.config.Database.Path)
	if !r.spotify.Configured() {
		r.logger.Warn("spotify client id not set, Spotify login is disabled")
	}
	return app.ListenAndServe(ctx, addr)
}
