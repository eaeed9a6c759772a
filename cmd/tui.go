package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/playback"
	"github.com/desertthunder/colisten/internal/repositories"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/desertthunder/colisten/internal/ui"
	"github.com/urfave/cli/v3"
)

// Listen joins a room over the server's websocket and runs the terminal UI until the user quits.
func (r *Runner) Listen(ctx context.Context, cmd *cli.Command) error {
	rm, st, err := r.lookupRoom(ctx, cmd.StringArg("room"))
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	socketURL, err := ui.SocketURL(r.config.Server.BaseURL, rm.ID(), cmd.String("name"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	conn, err := ui.Dial(ctx, socketURL, shared.WithLogger(fileLogger, "component", "socket"))
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := ui.Options{
		Conn:     conn,
		Room:     rm,
		Name:     cmd.String("name"),
		Player:   playback.NewDispatcher(),
		DeviceID: cmd.String("device"),
		Logger:   fileLogger,
	}
	if !cmd.Bool("no-browser") {
		opts.Player.Register(models.ModeYouTube, playback.NewEmbedAdapter(shared.OpenBrowser))
	}

	var cache services.MetadataCache
	if st != nil {
		cache = repositories.NewTrackCacheAdapter(st.tracks)
	}
	if svc, err := r.metadataService(rm.Mode(), cmd.String("token-file"), cache); err != nil {
		fileLogger.Warn("queue metadata disabled", "error", err)
	} else {
		opts.Resolver = svc.Metadata
	}

	if rm.Mode() == models.ModeSpotify {
		r.wireSpotify(&opts, cmd.String("token-file"), fileLogger)
	}

	model := ui.NewModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if m, ok := final.(*ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

// wireSpotify registers the Connect player and pause controls when a device and saved token exist.
func (r *Runner) wireSpotify(opts *ui.Options, tokenFile string, logger *log.Logger) {
	if opts.DeviceID == "" {
		logger.Warn("no --device given, Spotify playback stays with the room only")
		return
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		logger.Warn("spotify playback disabled", "error", err)
		return
	}

	player := r.spotify.WithAccessToken(token.AccessToken)
	opts.Player.Register(models.ModeSpotify, playback.NewSpotifyAdapter(player, logger))
	opts.Controller = player
}

// lookupRoom finds ref in the local database, by id or join code, and falls back to asking
// the server by id. The returned store is nil when the database could not be opened.
func (r *Runner) lookupRoom(ctx context.Context, ref string) (*models.Room, *store, error) {
	st, err := r.openStore()
	if err != nil {
		r.logger.Debug("local database unavailable", "error", err)
	} else if rm, err := st.findRoom(ref); err == nil {
		return rm, st, nil
	} else if errors.Is(err, shared.ErrMissingArgument) {
		st.Close()
		return nil, nil, err
	}

	rm, err := r.fetchRoom(ctx, ref)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, err
	}
	return rm, st, nil
}

func (r *Runner) fetchRoom(ctx context.Context, id string) (*models.Room, error) {
	resp, err := r.api.Get(ctx, "/api/rooms/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", shared.ErrRoomNotFound, id)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var rm models.Room
	if err := resp.Decode(&rm); err != nil {
		return nil, err
	}
	return &rm, nil
}
