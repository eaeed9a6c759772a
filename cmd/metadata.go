package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/repositories"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// Normalize prints the canonical identifier for the input under --mode.
func (r *Runner) Normalize(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("input")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: input", shared.ErrMissingArgument)
	}

	mode, err := models.ParseRoomMode(cmd.String("mode"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	id, err := identifiers.Normalize(mode, input)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", id)
}

// Metadata looks up display metadata for the input. Results are cached unless --no-cache is set.
func (r *Runner) Metadata(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("input")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: input", shared.ErrMissingArgument)
	}

	mode, err := models.ParseRoomMode(cmd.String("mode"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	id, err := identifiers.Normalize(mode, input)
	if err != nil {
		return err
	}
	if mode == models.ModeYouTube && !identifiers.ValidYouTubeID(id) {
		return fmt.Errorf("%w: not a YouTube video: %s", shared.ErrInvalidArgument, input)
	}

	var cache services.MetadataCache
	if !cmd.Bool("no-cache") {
		st, err := r.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		cache = repositories.NewTrackCacheAdapter(st.tracks)
	}

	svc, err := r.metadataService(mode, cmd.String("token-file"), cache)
	if err != nil {
		return err
	}

	meta, err := svc.Metadata(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(meta, true)
	}

	r.writePlain("%s\n", meta.Name)
	if meta.Artists != "" {
		r.writePlain("  by %s\n", meta.Artists)
	}
	if meta.Album != "" {
		r.writePlain("  on %s\n", meta.Album)
	}
	if meta.DurationMs > 0 {
		r.writePlain("  %s\n", shared.FormatDuration(meta.DurationMs))
	}
	return nil
}

// metadataService picks the provider for mode, wrapped in cache when one is given.
// Spotify lookups need the token saved by 'spotify login'.
func (r *Runner) metadataService(mode models.RoomMode, tokenFile string, cache services.MetadataCache) (services.Service, error) {
	var (
		svc services.Service
		key string
	)
	switch mode {
	case models.ModeSpotify:
		token, err := loadToken(tokenFile)
		if err != nil {
			return nil, err
		}
		svc, key = r.spotify.WithAccessToken(token.AccessToken), "spotify"
	default:
		svc, key = r.youtube, "youtube"
	}

	if cache == nil {
		return svc, nil
	}
	return services.NewCachedService(svc, cache, key, r.logger), nil
}
